package model

// MoveCard returns a copy of cards with cardID placed at index.
//
// cardID is removed first if present. If the remaining list is empty, or
// index is at or past its end, the card is appended; otherwise it is
// inserted before the element currently at index. The bound is measured on
// the list after removal, so the card always ends up at min(index, len).
//
// A card that was not in cards is simply inserted.
func MoveCard(cards []string, cardID string, index int) []string {
	out := make([]string, 0, len(cards)+1)
	for _, id := range cards {
		if id != cardID {
			out = append(out, id)
		}
	}

	if len(out) == 0 || index >= len(out) {
		return append(out, cardID)
	}

	out = append(out, "")
	copy(out[index+1:], out[index:])
	out[index] = cardID
	return out
}

// RemoveID returns ids without any occurrence of id, and whether it was present.
func RemoveID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, found
}

// ContainsID reports whether id is in ids.
func ContainsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
