package inbox

import (
	"sort"
	"strings"
	"sync"
	"time"

	"skillverse/internal/models"
)

// Row is the chat-list entry for one peer, assembled from three independent
// update streams: the peer's profile/presence snapshot, the conversation's
// message snapshot, and the viewer's own watermark.
type Row struct {
	PeerID     string    `json:"peer_id"`
	Name       string    `json:"name"`
	PhotoURL   string    `json:"photo_url"`
	Online     bool      `json:"online"`
	LastText   string    `json:"last_text"`
	LastSender string    `json:"last_sender"`
	LastAt     time.Time `json:"last_at"`
	Unread     int       `json:"unread"`
	Seen       bool      `json:"seen"`
}

type rowState struct {
	row      Row
	msgs     []models.Message
	lastRead *time.Time
	peerRead *time.Time
}

// View accumulates per-peer chat state for one viewer. Each Apply call merges
// a partial update into the peer's record, never a full replace, so presence
// and message updates for the same peer may arrive in either order and still
// converge to the same rows. Derived fields (unread, seen, last message) are
// recomputed from the stored pieces on every merge.
type View struct {
	viewerID string
	mu       sync.Mutex
	peers    map[string]*rowState
}

// NewView creates an empty view for the given viewer.
func NewView(viewerID string) *View {
	return &View{viewerID: viewerID, peers: make(map[string]*rowState)}
}

// ApplyProfile merges a peer profile/presence snapshot.
func (v *View) ApplyProfile(peer models.User, online bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state(peer.ID)
	st.row.Name = peer.Name
	st.row.PhotoURL = peer.PhotoURL
	st.row.Online = online
}

// ApplyMessages merges the conversation's current ordered message list and
// re-derives the last-message fields, the unread badge and the seen flag.
func (v *View) ApplyMessages(peerID string, msgs []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state(peerID)
	st.msgs = msgs
	v.derive(st)
}

// ApplyWatermark merges the viewer's own watermark for the conversation and
// re-derives the unread badge.
func (v *View) ApplyWatermark(peerID string, lastRead *time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state(peerID)
	st.lastRead = lastRead
	v.derive(st)
}

// ApplyPeerWatermark merges the peer's watermark and re-derives the seen flag
// for the viewer's last sent message.
func (v *View) ApplyPeerWatermark(peerID string, peerLastRead *time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state(peerID)
	st.peerRead = peerLastRead
	v.derive(st)
}

func (v *View) state(peerID string) *rowState {
	st, ok := v.peers[peerID]
	if !ok {
		st = &rowState{row: Row{PeerID: peerID}}
		v.peers[peerID] = st
	}
	return st
}

func (v *View) derive(st *rowState) {
	st.row.LastText = ""
	st.row.LastSender = ""
	st.row.LastAt = time.Time{}
	if n := len(st.msgs); n > 0 {
		last := st.msgs[n-1]
		st.row.LastText = last.Text
		st.row.LastSender = last.SenderID
		st.row.LastAt = last.CreatedAt
	}
	st.row.Unread = UnreadCount(st.msgs, v.viewerID, st.lastRead)
	st.row.Seen = false
	if lastSent, ok := LastSentAt(st.msgs, v.viewerID); ok {
		st.row.Seen = Seen(lastSent, st.peerRead)
	}
}

// Rows returns the current rows, newest conversation first. search filters by
// case-insensitive name substring; unreadOnly keeps rows with a non-zero
// badge.
func (v *View) Rows(search string, unreadOnly bool) []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	search = strings.ToLower(strings.TrimSpace(search))
	rows := make([]Row, 0, len(v.peers))
	for _, st := range v.peers {
		if unreadOnly && st.row.Unread == 0 {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(st.row.Name), search) {
			continue
		}
		rows = append(rows, st.row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LastAt.After(rows[j].LastAt)
	})
	return rows
}

// TotalUnread sums the unread badges across all peers.
func (v *View) TotalUnread() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	total := 0
	for _, st := range v.peers {
		total += st.row.Unread
	}
	return total
}
