package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationKeySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"0b54a98f-1f4a-4c4f-9c9c-111111111111", "8d2f66a1-5b3e-4d2a-8a0d-222222222222"},
		{"zed", "abe"},
		{"same", "same"},
	}

	for _, p := range pairs {
		assert.Equal(t, ConversationKey(p[0], p[1]), ConversationKey(p[1], p[0]))
	}

	// The smaller id always comes first.
	assert.Equal(t, "abe_zed", ConversationKey("zed", "abe"))
}

func TestConversationPeer(t *testing.T) {
	key := ConversationKey("alice", "bob")

	assert.Equal(t, "bob", ConversationPeer(key, "alice"))
	assert.Equal(t, "alice", ConversationPeer(key, "bob"))
	assert.Empty(t, ConversationPeer(key, "cara"))
	assert.Empty(t, ConversationPeer("not-a-key", "alice"))
}
