package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"skillverse/internal/models"
)

func TestIsOnlineFlagSet(t *testing.T) {
	u := models.User{Online: true, LastActive: time.Now().Add(-time.Hour)}
	assert.True(t, IsOnline(u, time.Now()))
}

func TestIsOnlineFreshActivity(t *testing.T) {
	now := time.Now()
	u := models.User{Online: false, LastActive: now.Add(-30 * time.Second)}
	assert.True(t, IsOnline(u, now), "offline flag tolerated inside the staleness window")
}

func TestIsOnlineStaleActivity(t *testing.T) {
	now := time.Now()
	u := models.User{Online: false, LastActive: now.Add(-StaleAfter)}
	assert.False(t, IsOnline(u, now), "activity exactly at the window boundary is stale")

	u.LastActive = now.Add(-StaleAfter - time.Minute)
	assert.False(t, IsOnline(u, now))
}

func TestIsOnlineNoActivity(t *testing.T) {
	assert.False(t, IsOnline(models.User{}, time.Now()))
}
