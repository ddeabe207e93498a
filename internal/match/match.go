// Package match holds the pure aggregation helpers: skill matching, rating
// summaries and activity stats. Everything is a synchronous fold over an
// in-memory snapshot; nothing here talks to storage.
package match

import (
	"sort"
	"strings"
	"time"

	"skillverse/internal/models"
)

// Matches returns the candidates whose taught skills contain the viewer's
// learning interest, as a case-insensitive substring test. The check is
// single-directional and never matches the viewer themself. An empty
// learning field matches every candidate, since the empty string is a
// substring of any skill list.
func Matches(viewer models.User, candidates []models.User) []models.User {
	want := strings.ToLower(strings.TrimSpace(viewer.Learning))
	var out []models.User
	for _, c := range candidates {
		if c.ID == viewer.ID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Skills), want) {
			out = append(out, c)
		}
	}
	return out
}

// Sort orders users either by most recent activity (default) or by display
// name.
func Sort(users []models.User, by string) {
	if by == "name" {
		sort.SliceStable(users, func(i, j int) bool {
			return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
		})
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].LastActive.After(users[j].LastActive)
	})
}

// NewWithin counts users active inside the window, used for the "new
// matches" stat.
func NewWithin(users []models.User, now time.Time, window time.Duration) int {
	count := 0
	for _, u := range users {
		if u.LastActive.IsZero() {
			continue
		}
		if now.Sub(u.LastActive) <= window {
			count++
		}
	}
	return count
}

// ActivityHistogram buckets last-active timestamps into the trailing days,
// oldest bucket first. Users outside the range are dropped.
func ActivityHistogram(users []models.User, now time.Time, days int) []int {
	buckets := make([]int, days)
	for _, u := range users {
		if u.LastActive.IsZero() {
			continue
		}
		daysAgo := int(now.Sub(u.LastActive).Hours() / 24)
		if daysAgo < 0 || daysAgo >= days {
			continue
		}
		buckets[days-1-daysAgo]++
	}
	return buckets
}

// RatingSummary is the aggregate shown on a profile.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Rating averages every review found under the profile's sessions, excluding
// reviews written by the profile owner and ratings outside 1-5. With no
// qualifying reviews the summary is zero average, zero count.
func Rating(profileID string, sessions []models.Session, reviews []models.Review) RatingSummary {
	involved := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if s.Involves(profileID) {
			involved[s.ID] = true
		}
	}

	sum, count := 0, 0
	for _, r := range reviews {
		if !involved[r.SessionID] {
			continue
		}
		if r.ReviewerID == "" || r.ReviewerID == profileID {
			continue
		}
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		sum += r.Rating
		count++
	}
	if count == 0 {
		return RatingSummary{}
	}
	return RatingSummary{Average: float64(sum) / float64(count), Count: count}
}

// TopicCounts folds accepted sessions into taught-by-topic and
// learned-by-topic counts for the user: hosting counts as teaching, guesting
// as learning. Sessions without a topic file under "General".
func TopicCounts(sessions []models.Session, userID string) (taught, learned map[string]int) {
	taught = map[string]int{}
	learned = map[string]int{}
	for _, s := range sessions {
		if s.Status != models.SessionAccepted {
			continue
		}
		topic := s.Topic
		if topic == "" {
			topic = "General"
		}
		switch userID {
		case s.HostID:
			taught[topic]++
		case s.GuestID:
			learned[topic]++
		}
	}
	return taught, learned
}

// ExpiredSessions returns the sessions whose effective end is more than
// maxAge in the past. A session ending exactly maxAge ago is retained.
func ExpiredSessions(sessions []models.Session, now time.Time, maxAge time.Duration) []models.Session {
	cutoff := now.Add(-maxAge)
	var expired []models.Session
	for _, s := range sessions {
		end := s.EffectiveEnd()
		if end.IsZero() {
			continue
		}
		if end.Before(cutoff) {
			expired = append(expired, s)
		}
	}
	return expired
}
