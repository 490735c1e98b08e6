package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	closed bool
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}

	hub.Add(a, ConnInfo{Channel: "general", Username: "alice"})
	hub.Add(b, ConnInfo{Channel: "general", Username: "bob"})
	assert.Equal(t, 2, hub.Count("general"))

	hub.Remove("general", a)
	assert.Equal(t, 1, hub.Count("general"))

	hub.Remove("general", b)
	assert.Equal(t, 0, hub.Count("general"))
	assert.Empty(t, hub.rooms)
}

func TestHubStats(t *testing.T) {
	hub := NewHub()
	hub.Add(&fakeConn{}, ConnInfo{Channel: "random", Username: "carol"})
	hub.Add(&fakeConn{}, ConnInfo{Channel: "general", Username: "bob"})
	hub.Add(&fakeConn{}, ConnInfo{Channel: "general", Username: "alice"})
	hub.Add(&fakeConn{}, ConnInfo{Channel: "general", Username: "alice"})

	stats := hub.Stats()
	assert.Equal(t, []ChannelStats{
		{Channel: "general", Connections: 3, Users: []string{"alice", "bob"}},
		{Channel: "random", Connections: 1, Users: []string{"carol"}},
	}, stats)
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	hub.Add(a, ConnInfo{Channel: "general", Username: "alice"})

	hub.Shutdown(context.Background())
	assert.True(t, a.closed)
	assert.Equal(t, 0, hub.Count("general"))
}
