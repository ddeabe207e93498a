package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillverse/internal/models"
)

func TestViewMergesProfileAndMessages(t *testing.T) {
	now := time.Now()
	v := NewView(alice)

	v.ApplyProfile(models.User{ID: bob, Name: "Bob", PhotoURL: "http://x/b.jpg"}, true)
	v.ApplyMessages(bob, []models.Message{msg(bob, now, "hi")})

	rows := v.Rows("", false)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob", rows[0].Name)
	assert.True(t, rows[0].Online)
	assert.Equal(t, "hi", rows[0].LastText)
	assert.Equal(t, bob, rows[0].LastSender)
	assert.Equal(t, 1, rows[0].Unread)
}

func TestViewOutOfOrderUpdatesConverge(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{msg(bob, now.Add(-time.Minute), "one"), msg(bob, now, "two")}
	lastRead := now.Add(-30 * time.Second)
	peer := models.User{ID: bob, Name: "Bob"}

	// Same partial updates in two different delivery orders.
	a := NewView(alice)
	a.ApplyProfile(peer, true)
	a.ApplyMessages(bob, msgs)
	a.ApplyWatermark(bob, &lastRead)

	b := NewView(alice)
	b.ApplyWatermark(bob, &lastRead)
	b.ApplyProfile(peer, true)
	b.ApplyMessages(bob, msgs)

	assert.Equal(t, a.Rows("", false), b.Rows("", false))
	assert.Equal(t, 1, a.Rows("", false)[0].Unread)
}

func TestViewSeenBeforeMessagesArrive(t *testing.T) {
	now := time.Now()
	v := NewView(alice)

	// Peer watermark lands before the message snapshot; the seen flag must
	// still come out right once messages arrive.
	peerRead := now
	v.ApplyPeerWatermark(bob, &peerRead)
	v.ApplyMessages(bob, []models.Message{msg(alice, now.Add(-time.Second), "sent earlier")})

	rows := v.Rows("", false)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Seen)
}

func TestViewReadReceiptScenario(t *testing.T) {
	// A sends "hi"; B has no watermark, so B sees unread=1 and A's message is
	// not seen. B opens the conversation (watermark touch); A's view flips to
	// seen and B's unread drops to zero.
	sentAt := time.Now()
	hi := []models.Message{msg(alice, sentAt, "hi")}

	bView := NewView(bob)
	bView.ApplyProfile(models.User{ID: alice, Name: "Alice"}, true)
	bView.ApplyMessages(alice, hi)
	bView.ApplyWatermark(alice, nil)
	require.Equal(t, 1, bView.Rows("", false)[0].Unread)

	aView := NewView(alice)
	aView.ApplyProfile(models.User{ID: bob, Name: "Bob"}, false)
	aView.ApplyMessages(bob, hi)
	aView.ApplyPeerWatermark(bob, nil)
	require.False(t, aView.Rows("", false)[0].Seen)

	touched := sentAt.Add(time.Second)
	bView.ApplyWatermark(alice, &touched)
	assert.Equal(t, 0, bView.Rows("", false)[0].Unread)

	aView.ApplyPeerWatermark(bob, &touched)
	assert.True(t, aView.Rows("", false)[0].Seen)
}

func TestViewRowsSortedNewestFirst(t *testing.T) {
	now := time.Now()
	carol := "c3333333-0000-0000-0000-000000000000"
	v := NewView(alice)

	v.ApplyProfile(models.User{ID: bob, Name: "Bob"}, false)
	v.ApplyProfile(models.User{ID: carol, Name: "Carol"}, false)
	v.ApplyMessages(bob, []models.Message{msg(bob, now.Add(-time.Hour), "old")})
	v.ApplyMessages(carol, []models.Message{msg(carol, now, "new")})

	rows := v.Rows("", false)
	require.Len(t, rows, 2)
	assert.Equal(t, carol, rows[0].PeerID)
	assert.Equal(t, bob, rows[1].PeerID)
}

func TestViewSearchAndUnreadFilters(t *testing.T) {
	now := time.Now()
	carol := "c3333333-0000-0000-0000-000000000000"
	v := NewView(alice)

	v.ApplyProfile(models.User{ID: bob, Name: "Bob Martin"}, false)
	v.ApplyProfile(models.User{ID: carol, Name: "Carol"}, false)
	v.ApplyMessages(carol, []models.Message{msg(carol, now, "ping")})

	rows := v.Rows("mart", false)
	require.Len(t, rows, 1)
	assert.Equal(t, bob, rows[0].PeerID)

	rows = v.Rows("", true)
	require.Len(t, rows, 1)
	assert.Equal(t, carol, rows[0].PeerID)

	assert.Equal(t, 1, v.TotalUnread())
}
