package presence

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"skillverse/internal/models"
	"skillverse/internal/repositories"
)

// StaleAfter is the window during which a user still counts as online after
// their last activity, covering crashed clients that never wrote an offline
// transition.
const StaleAfter = 120 * time.Second

// Tracker records online/offline transitions and answers liveness queries.
// All writes are best-effort: presence is an approximation, so failures are
// logged and swallowed and the next transition self-heals the state.
type Tracker struct {
	users repositories.UserRepository
	rdb   *redis.Client // optional fast path, nil disables it
}

// NewTracker constructs a Tracker. rdb may be nil.
func NewTracker(users repositories.UserRepository, rdb *redis.Client) *Tracker {
	return &Tracker{users: users, rdb: rdb}
}

// MarkOnline flags the user online and stamps last_active. Called on login
// and on websocket connect.
func (t *Tracker) MarkOnline(ctx context.Context, userID string) {
	if err := t.users.SetPresence(ctx, userID, true); err != nil {
		log.Printf("presence online write failed for %s: %v", userID, err)
	}
	if t.rdb != nil {
		if err := t.rdb.Set(ctx, presenceKey(userID), "1", StaleAfter).Err(); err != nil {
			log.Printf("presence redis set failed for %s: %v", userID, err)
		}
	}
}

// MarkOffline flags the user offline and stamps last_active. Called on logout
// and on every websocket teardown path.
func (t *Tracker) MarkOffline(ctx context.Context, userID string) {
	if err := t.users.SetPresence(ctx, userID, false); err != nil {
		log.Printf("presence offline write failed for %s: %v", userID, err)
	}
	if t.rdb != nil {
		if err := t.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
			log.Printf("presence redis del failed for %s: %v", userID, err)
		}
	}
}

// Online reports whether the user should currently be shown as online,
// preferring the redis fast path and falling back to the stored flag plus
// the staleness window.
func (t *Tracker) Online(ctx context.Context, user models.User) bool {
	if t.rdb != nil {
		if n, err := t.rdb.Exists(ctx, presenceKey(user.ID)).Result(); err == nil && n > 0 {
			return true
		}
	}
	return IsOnline(user, time.Now())
}

// IsOnline is the pure staleness rule: a user counts as online if the flag is
// set or their last activity is fresher than StaleAfter. Missed offline
// writes (crash, network loss) age out after the window.
func IsOnline(user models.User, now time.Time) bool {
	if user.Online {
		return true
	}
	if user.LastActive.IsZero() {
		return false
	}
	return now.Sub(user.LastActive) < StaleAfter
}

func presenceKey(userID string) string {
	return "presence:" + userID
}
