package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-feed/internal/feed"
	"chat-feed/internal/middleware"
	"chat-feed/internal/observability"
	"chat-feed/internal/repositories"
	"chat-feed/internal/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	actionWait = 15 * time.Second
)

// FeedOpener opens a feed session for one viewer.
type FeedOpener interface {
	Open(ctx context.Context, channel, username string) (*feed.Session, error)
}

// FeedWebSocketHandler serves live feed sessions.
type FeedWebSocketHandler struct {
	hub      *Hub
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	feeds    FeedOpener
	audit    *telemetry.AuditEmitter
	log      *slog.Logger
}

func NewFeedWebSocketHandler(hub *Hub, channels repositories.ChannelRepository, messages repositories.MessageRepository, feeds FeedOpener, audit *telemetry.AuditEmitter, log *slog.Logger) *FeedWebSocketHandler {
	return &FeedWebSocketHandler{
		hub:      hub,
		channels: channels,
		messages: messages,
		feeds:    feeds,
		audit:    audit,
		log:      log.With("component", "ws"),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the session until either side
// closes it. Requires AuthMiddleware.
func (h *FeedWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-feed/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("feed.channel", c.Param("name"))),
	)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ch, err := h.channels.GetByName(ctx, c.Param("name"))
	if errors.Is(err, repositories.ErrChannelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	info := ConnInfo{
		ConnID:      newConnID(),
		Channel:     ch.Name,
		Username:    middleware.Username(c),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	client := &feedClient{
		handler: h,
		conn:    conn,
		info:    info,
		log:     h.log.With("conn_id", info.ConnID, "channel", info.Channel, "username", info.Username),
	}
	h.hub.Add(client, info)
	observability.IncWSActive(wsKind)
	publishWSEvent(context.Background(), info, "ws_connect", "")

	go client.serve()
}

type feedClient struct {
	handler *FeedWebSocketHandler
	conn    *websocket.Conn
	info    ConnInfo
	log     *slog.Logger

	writeMu sync.Mutex
	session *feed.Session
}

func (fc *feedClient) Close() error {
	return fc.conn.Close()
}

func (fc *feedClient) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	var closeReason string
	defer func() {
		cancel()
		if fc.session != nil {
			fc.session.Close()
		}
		fc.handler.hub.Remove(fc.info.Channel, fc)
		observability.DecWSActive(wsKind)
		publishWSEvent(context.Background(), fc.info, "ws_disconnect", closeReason)
		fc.conn.Close()
	}()

	session, err := fc.handler.feeds.Open(ctx, fc.info.Channel, fc.info.Username)
	if session == nil {
		closeReason = "feed unavailable"
		fc.writeError("", errors.New("feed unavailable"))
		return
	}
	fc.session = session
	if err != nil {
		// The session still renders; the feed appears empty until live events arrive.
		fc.log.Warn("initial feed load failed", "error", err)
		fc.writeError(ActionLoadMore, errors.New("failed to load history"))
	}

	go session.Run(ctx)
	go fc.pushSnapshots(ctx)

	closeReason = fc.readLoop(ctx)
}

// pushSnapshots writes the merged feed whenever it changes, and pings the
// peer so dead connections are noticed.
func (fc *feedClient) pushSnapshots(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	fc.writeSnapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case <-fc.session.Updates():
			fc.writeSnapshot()
		case <-ticker.C:
			fc.writeMu.Lock()
			_ = fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := fc.conn.WriteMessage(websocket.PingMessage, nil)
			fc.writeMu.Unlock()
			if err != nil {
				fc.conn.Close()
				return
			}
		}
	}
}

func (fc *feedClient) readLoop(ctx context.Context) string {
	fc.conn.SetReadLimit(64 * 1024)
	_ = fc.conn.SetReadDeadline(time.Now().Add(pongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := fc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishWSEvent(context.Background(), fc.info, "ws_error", err.Error())
			}
			return err.Error()
		}

		frame, err := decodeAction(data)
		if err != nil {
			fc.writeError(frame.Type, err)
			continue
		}
		if err := fc.dispatch(ctx, frame); err != nil {
			fc.log.Info("action rejected", "action", frame.Type, "error", err)
			fc.writeError(frame.Type, err)
		}
	}
}

func (fc *feedClient) dispatch(ctx context.Context, f ActionFrame) error {
	ctx, cancel := context.WithTimeout(ctx, actionWait)
	defer cancel()
	s := fc.session

	var err error
	switch f.Type {
	case ActionSend:
		if err = s.Send(ctx, f.Text); err == nil {
			fc.archive(ctx, f.Text)
		}
	case ActionEdit:
		err = s.Edit(ctx, f.MessageID, f.Text)
	case ActionDelete:
		err = s.Delete(ctx, f.MessageID)
	case ActionAddReaction:
		err = s.AddReaction(ctx, f.MessageID, f.Reaction)
	case ActionRemoveReaction:
		err = s.RemoveReaction(ctx, f.MessageID, f.ReactionID)
	case ActionToggleReaction:
		err = s.ToggleReaction(ctx, f.MessageID, f.Reaction)
	case ActionLoadMore:
		return s.LoadMore(ctx)
	}
	if err != nil {
		return err
	}

	fc.handler.audit.Emit(ctx, telemetry.AuditEntry{
		Action:    "feed_" + f.Type,
		Text:      "feed action",
		RequestID: fc.info.RequestID,
		Username:  fc.info.Username,
		Fields:    map[string]string{"channel": fc.info.Channel, "message_id": f.MessageID},
	})
	return nil
}

func (fc *feedClient) archive(ctx context.Context, text string) {
	if fc.handler.messages == nil {
		return
	}
	if _, err := fc.handler.messages.Archive(ctx, fc.info.Channel, fc.info.Username, text); err != nil {
		fc.log.Warn("archive message failed", "error", err)
	}
}

func (fc *feedClient) writeSnapshot() {
	snap := fc.session.Snapshot()
	fc.writeJSON(SnapshotFrame{
		Type:     "snapshot",
		Channel:  fc.info.Channel,
		Messages: snap.Messages,
		Loading:  snap.Loading,
	})
}

func (fc *feedClient) writeError(action string, err error) {
	fc.writeJSON(ErrorFrame{Type: "error", Action: action, Error: err.Error()})
}

func (fc *feedClient) writeJSON(v any) {
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	_ = fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := fc.conn.WriteJSON(v); err != nil {
		fc.log.Debug("websocket write error", "error", err)
	}
}
