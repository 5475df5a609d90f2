// Package model defines the data structures used throughout the application.
package model

// AccessType is the closed set of access modes a deck can use for reading
// (visibleTo) and writing (editableBy).
type AccessType string

const (
	AccessPublic            AccessType = "PUBLIC"
	AccessPrivate           AccessType = "PRIVATE"
	AccessPasswordProtected AccessType = "PASSWORD_PROTECTED"
)

// AccessTypes lists every valid mode, in display order.
var AccessTypes = []AccessType{AccessPublic, AccessPrivate, AccessPasswordProtected}

// Valid reports whether a is one of the known modes.
func (a AccessType) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessPasswordProtected:
		return true
	}
	return false
}

func (a AccessType) String() string {
	return string(a)
}
