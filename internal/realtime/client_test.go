package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/conversation"
	"chat-feed/internal/models"
	"chat-feed/internal/tokens"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recorded
	frames   []string
	conns    chan *websocket.Conn
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{t: t, conns: make(chan *websocket.Conn, 4)}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/events") {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.conns <- conn
		return
	}

	body, _ := io.ReadAll(r.Body)
	fb.mu.Lock()
	fb.requests = append(fb.requests, recorded{
		method: r.Method,
		path:   r.URL.EscapedPath(),
		query:  r.URL.RawQuery,
		auth:   r.Header.Get("Authorization"),
		body:   string(body),
	})
	fb.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
		if r.URL.Query().Get("before") == "boom" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"m2","conversation_id":"general","created_by":"bob","created_at":"2024-03-01T12:01:00Z","body":[{"type":"text","text":"second"}]},
			{"id":"","created_by":"ghost"},
			{"id":"m1","conversation_id":"general","created_by":"alice","created_at":"2024-03-01T12:00:00Z","body":[{"type":"text","text":"first"}]}
		]}`))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (fb *fakeBackend) last() recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.requests[len(fb.requests)-1]
}

func newTestClient(srv *httptest.Server) *Client {
	issuer := tokens.NewIssuer("app.key", "secret", "chat", time.Hour)
	return NewClient("alice", issuer, Options{
		APIURL:    srv.URL,
		WSURL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Reconnect: time.Second,
	})
}

func TestQueryDecodesPageAndSkipsMalformedEntries(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newTestClient(srv)

	page, err := c.Query(context.Background(), "general", conversation.PageQuery{Before: "m9", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "first", page[1].Body.PlainText())

	req := fb.last()
	assert.Equal(t, "/channels/general/messages", req.path)
	assert.Equal(t, "before=m9&limit=2", req.query)
	assert.True(t, strings.HasPrefix(req.auth, "Bearer "))
}

func TestQueryReportsBackendFailure(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newTestClient(srv)

	_, err := c.Query(context.Background(), "general", conversation.PageQuery{Before: "boom"})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestActionsHitExpectedRoutes(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newTestClient(srv)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, "general", "hi @bob"))
	req := fb.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/channels/general/messages", req.path)
	var sent textRequest
	require.NoError(t, json.Unmarshal([]byte(req.body), &sent))
	assert.Equal(t, "hi @bob", sent.Text)
	assert.Equal(t, []string{"bob"}, sent.Body.Mentions())

	require.NoError(t, c.Edit(ctx, "general", "m1", "changed"))
	assert.Equal(t, http.MethodPatch, fb.last().method)
	assert.Equal(t, "/channels/general/messages/m1", fb.last().path)

	require.NoError(t, c.Delete(ctx, "general", "m1"))
	assert.Equal(t, http.MethodDelete, fb.last().method)

	require.NoError(t, c.AddReaction(ctx, "general", "m1", "like"))
	assert.Equal(t, "/channels/general/messages/m1/reactions", fb.last().path)
	assert.JSONEq(t, `{"type":"like"}`, fb.last().body)

	require.NoError(t, c.RemoveReaction(ctx, "general", "r1"))
	assert.Equal(t, "/channels/general/reactions/r1", fb.last().path)
}

func TestSubscribeDeliversValidEventsAndSkipsMalformed(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newTestClient(srv)

	events := make(chan models.Event, 4)
	unsubscribe, err := c.Subscribe(context.Background(), "general", func(ev models.Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	conn := <-fb.conns
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message.created"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reaction.deleted","reaction":{"reaction_id":"r1","kind":"deleted"}}`)))

	select {
	case ev := <-events:
		assert.Equal(t, models.EventReactionDeleted, ev.Type)
		assert.Equal(t, "r1", ev.Reaction.ReactionID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, events)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newTestClient(srv)

	var mu sync.Mutex
	count := 0
	unsubscribe, err := c.Subscribe(context.Background(), "general", func(models.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)
	conn := <-fb.conns
	defer conn.Close()

	unsubscribe()
	unsubscribe()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message.deleted","message":{"id":"m1"}}`))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestSubscribeFailsWhenBackendUnreachable(t *testing.T) {
	c := NewClient("alice", tokens.NewIssuer("k", "s", "chat", time.Hour), Options{
		WSURL: "ws://127.0.0.1:1",
	})
	_, err := c.Subscribe(context.Background(), "general", func(models.Event) {})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestDecodeEvent(t *testing.T) {
	_, ok := decodeEvent([]byte(`{"type":"message.created","message":{"id":"m1","body":[{"type":"bogus"}]}}`))
	assert.False(t, ok)

	ev, ok := decodeEvent([]byte(`{"type":"message.created","message":{"id":"m1","body":[{"type":"text","text":"x"}]}}`))
	assert.True(t, ok)
	assert.Equal(t, "m1", ev.Message.ID)
}
