package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"chat-feed/internal/conversation"
	"chat-feed/internal/models"
	"chat-feed/internal/observability"
)

// Subscribe opens the channel's event stream. ctx bounds the initial dial
// only; a dropped stream is redialed with exponential backoff until the
// returned handle is called or the reconnect budget runs out.
func (c *Client) Subscribe(ctx context.Context, channel string, handler conversation.EventHandler) (conversation.Unsubscribe, error) {
	conn, err := c.dial(ctx, channel)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		client:  c,
		channel: channel,
		handler: handler,
		cancel:  cancel,
		conn:    conn,
	}
	go sub.run(subCtx)

	c.log.Info("subscribed", "channel", channel)
	return sub.close, nil
}

func (c *Client) dial(ctx context.Context, channel string) (*websocket.Conn, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+channelPath(channel)+"/events", header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrBackend, channel, err)
	}
	return conn, nil
}

type subscription struct {
	client  *Client
	channel string
	handler conversation.EventHandler
	cancel  context.CancelFunc
	closed  atomic.Bool
	once    sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscription) close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		s.client.log.Info("unsubscribed", "channel", s.channel)
	})
}

func (s *subscription) run(ctx context.Context) {
	log := s.client.log.With("channel", s.channel)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		s.read(conn)
		if s.closed.Load() {
			return
		}

		log.Warn("event stream dropped, reconnecting")
		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = s.client.reconnect
		var next *websocket.Conn
		err := backoff.Retry(func() error {
			var err error
			next, err = s.client.dial(ctx, s.channel)
			return err
		}, backoff.WithContext(policy, ctx))
		if err != nil {
			if !s.closed.Load() {
				log.Error("event stream lost", "error", err)
			}
			return
		}

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			next.Close()
			return
		}
		s.conn = next
		s.mu.Unlock()
	}
}

// read delivers frames until the connection fails. Frames that do not
// decode into a valid event are skipped.
func (s *subscription) read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, ok := decodeEvent(data)
		if !ok {
			s.client.log.Warn("dropping malformed event", "channel", s.channel, "bytes", len(data))
			observability.IncFeedEvent(string(ev.Type), "malformed")
			continue
		}
		if s.closed.Load() {
			return
		}
		s.handler(ev)
	}
}

func decodeEvent(data []byte) (models.Event, bool) {
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Event{Type: "unknown"}, false
	}
	if ev.Type == "" {
		ev.Type = "unknown"
	}
	return ev, ev.Valid()
}
