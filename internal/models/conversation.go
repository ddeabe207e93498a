package models

import "strings"

// ConversationKey derives the identifier of the private conversation between
// two users. The two ids are sorted lexicographically before joining, so both
// participants compute the same key independently. A conversation has no
// stored record of its own, only the messages filed under this key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// ConversationPeer returns the other participant encoded in a conversation
// key, or "" when the user is not part of it.
func ConversationPeer(key, userID string) string {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	switch userID {
	case parts[0]:
		return parts[1]
	case parts[1]:
		return parts[0]
	}
	return ""
}
