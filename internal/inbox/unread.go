// Package inbox derives per-conversation read state. Nothing here is ever
// stored: unread counts, seen indicators and chat-list rows are recomputed
// from whatever snapshot of messages, watermarks and presence is currently
// held, so the derivation must tolerate out-of-order arrival of those
// snapshots.
package inbox

import (
	"time"

	"skillverse/internal/models"
)

// UnreadCount counts the viewer's unread messages in one conversation: peer
// messages newer than the watermark. A nil watermark means the conversation
// has never been read, so every peer message counts. Messages missing a
// sender or a timestamp are treated as not yet committed and never counted.
// Comparison happens in milliseconds; sub-millisecond precision from the
// store is deliberately ignored.
func UnreadCount(msgs []models.Message, viewerID string, lastRead *time.Time) int {
	unread := 0
	for _, m := range msgs {
		if m.SenderID == "" || m.CreatedAt.IsZero() {
			continue
		}
		if m.SenderID == viewerID {
			continue
		}
		if lastRead == nil || m.CreatedAt.UnixMilli() > lastRead.UnixMilli() {
			unread++
		}
	}
	return unread
}

// LastSentAt returns the timestamp of the sender's most recent message, if
// any.
func LastSentAt(msgs []models.Message, senderID string) (time.Time, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == senderID && !msgs[i].CreatedAt.IsZero() {
			return msgs[i].CreatedAt, true
		}
	}
	return time.Time{}, false
}

// Seen reports whether a message sent at lastSent has been read by the peer.
// Monotonic: watermarks only move forward, so once the peer watermark passes
// lastSent the indicator never flips back.
func Seen(lastSent time.Time, peerLastRead *time.Time) bool {
	if lastSent.IsZero() || peerLastRead == nil {
		return false
	}
	return peerLastRead.UnixMilli() >= lastSent.UnixMilli()
}

// ParseTimestamp coerces the timestamp shapes that arrive over the wire into
// a time.Time: native times, unix milliseconds, or an RFC3339 string.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case int64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(t), true
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
