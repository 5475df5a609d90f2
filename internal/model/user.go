package model

import "time"

// User is an account in the user directory.
//
// Accounts are created by GitHub OAuth, so Username is the GitHub login and
// GitHubID is the stable external key. Both are unique in the store.
type User struct {
	ID        string    `json:"id"        bson:"_id"`
	Username  string    `json:"username"  bson:"username"`
	GitHubID  int64     `json:"githubId"  bson:"githubId"`
	Email     string    `json:"email"     bson:"email"`
	AvatarURL string    `json:"avatarUrl" bson:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
