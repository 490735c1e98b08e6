package ws

import (
	"context"
	"sort"
	"sync"
)

// Closer is a live connection the hub can shut down.
type Closer interface {
	Close() error
}

// Hub tracks live feed connections per channel.
type Hub struct {
	rooms map[string]map[Closer]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Closer]ConnInfo)}
}

// Add registers a connection under its channel.
func (h *Hub) Add(conn Closer, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[info.Channel]; !ok {
		h.rooms[info.Channel] = make(map[Closer]ConnInfo)
	}
	h.rooms[info.Channel][conn] = info
}

// Remove drops a connection; empty channels are forgotten.
func (h *Hub) Remove(channel string, conn Closer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channel]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channel)
		}
	}
}

// Count returns the number of live connections on channel.
func (h *Hub) Count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channel])
}

// ChannelStats is one row of Stats.
type ChannelStats struct {
	Channel     string   `json:"channel"`
	Connections int      `json:"connections"`
	Users       []string `json:"users"`
}

// Stats lists live channels in name order.
func (h *Hub) Stats() []ChannelStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ChannelStats, 0, len(h.rooms))
	for channel, conns := range h.rooms {
		seen := map[string]struct{}{}
		users := make([]string, 0, len(conns))
		for _, info := range conns {
			if _, dup := seen[info.Username]; dup {
				continue
			}
			seen[info.Username] = struct{}{}
			users = append(users, info.Username)
		}
		sort.Strings(users)
		out = append(out, ChannelStats{Channel: channel, Connections: len(conns), Users: users})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Shutdown closes every live connection, reporting each as a server
// initiated disconnect.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[Closer]ConnInfo)
	h.mu.Unlock()

	for _, conns := range rooms {
		for conn, info := range conns {
			_ = conn.Close()
			publishWSEvent(ctx, info, "ws_error", "server shutdown")
		}
	}
}
