package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chat-feed/internal/models"
	"chat-feed/internal/observability"
	"chat-feed/internal/reactions"
)

var (
	ErrClosed         = errors.New("conversation view closed")
	ErrNoConversation = errors.New("no conversation loaded")
	ErrEmptyMessage   = errors.New("message text is empty")
)

const DefaultPageSize = 50

// ViewModel owns the local message list of one conversation at a time.
// Switching conversations or closing the view bumps a generation counter;
// page results and events tagged with an older generation are dropped.
type ViewModel struct {
	backend  Backend
	pageSize int
	log      *slog.Logger

	mu          sync.Mutex
	channel     string
	gen         uint64
	closed      bool
	messages    []*models.Message
	cursor      string
	exhausted   bool
	loading     bool
	unsubscribe Unsubscribe

	updates chan struct{}
}

// NewViewModel builds an empty view. pageSize <= 0 uses DefaultPageSize.
func NewViewModel(backend Backend, pageSize int, log *slog.Logger) *ViewModel {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &ViewModel{
		backend:  backend,
		pageSize: pageSize,
		log:      log.With("component", "conversation"),
		updates:  make(chan struct{}, 1),
	}
}

// Load switches the view to channel: the list and cursor reset, the old
// subscription is released, a new one is registered and the most recent
// page is fetched.
func (v *ViewModel) Load(ctx context.Context, channel string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.gen++
	gen := v.gen
	old := v.unsubscribe
	v.unsubscribe = nil
	v.channel = channel
	v.messages = nil
	v.cursor = ""
	v.exhausted = false
	v.loading = true
	v.mu.Unlock()

	if old != nil {
		old()
	}
	v.notify()

	unsub, err := v.backend.Subscribe(ctx, channel, v.handler(gen))
	if err != nil {
		v.finishFailed(gen)
		v.log.Warn("subscribe failed", "channel", channel, "error", err)
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	v.mu.Lock()
	if v.gen != gen || v.closed {
		v.mu.Unlock()
		unsub()
		return nil
	}
	v.unsubscribe = unsub
	v.mu.Unlock()

	return v.query(ctx, gen, channel, "")
}

// LoadMore fetches the page before the cursor. It does nothing while a
// page is in flight or once history is exhausted.
func (v *ViewModel) LoadMore(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.channel == "" {
		v.mu.Unlock()
		return ErrNoConversation
	}
	if v.loading || v.exhausted {
		v.mu.Unlock()
		return nil
	}
	v.loading = true
	gen, channel, cursor := v.gen, v.channel, v.cursor
	v.mu.Unlock()
	v.notify()

	return v.query(ctx, gen, channel, cursor)
}

func (v *ViewModel) query(ctx context.Context, gen uint64, channel, before string) error {
	ctx, span := otel.Tracer("chat-feed/conversation").Start(ctx, "conversation.query")
	span.SetAttributes(attribute.String("channel", channel), attribute.String("before", before))
	defer span.End()

	start := time.Now()
	page, err := v.backend.Query(ctx, channel, PageQuery{Before: before, Limit: v.pageSize})
	observability.ObservePageQuery(time.Since(start))

	v.mu.Lock()
	if v.gen != gen || v.closed {
		v.mu.Unlock()
		v.log.Debug("discarding stale page", "channel", channel)
		return nil
	}
	v.loading = false
	if err != nil {
		v.mu.Unlock()
		v.notify()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.log.Warn("page query failed", "channel", channel, "before", before, "error", err)
		return fmt.Errorf("query %s: %w", channel, err)
	}

	chrono := make([]*models.Message, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		if page[i] != nil && page[i].ID != "" {
			chrono = append(chrono, page[i])
		}
	}
	if len(chrono) == 0 {
		v.cursor = ""
		v.exhausted = true
	} else {
		v.cursor = chrono[0].ID
		v.messages = mergeOlder(chrono, v.messages)
	}
	v.mu.Unlock()

	span.SetAttributes(attribute.Int("page.size", len(chrono)))
	v.notify()
	return nil
}

func (v *ViewModel) finishFailed(gen uint64) {
	v.mu.Lock()
	if v.gen == gen {
		v.loading = false
	}
	v.mu.Unlock()
	v.notify()
}

// mergeOlder puts an older page in front of the current list, skipping ids
// already present.
func mergeOlder(older, current []*models.Message) []*models.Message {
	seen := make(map[string]struct{}, len(current))
	for _, m := range current {
		seen[m.ID] = struct{}{}
	}
	out := make([]*models.Message, 0, len(older)+len(current))
	for _, m := range older {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return append(out, current...)
}

func (v *ViewModel) handler(gen uint64) EventHandler {
	return func(ev models.Event) {
		defer func() {
			if r := recover(); r != nil {
				observability.IncFeedEvent(string(ev.Type), "dropped")
				v.log.Error("event handler panic", "type", ev.Type, "panic", r)
			}
		}()

		if !ev.Valid() {
			observability.IncFeedEvent(string(ev.Type), "dropped")
			v.log.Warn("dropping malformed event", "type", ev.Type)
			return
		}

		v.mu.Lock()
		if v.gen != gen || v.closed {
			v.mu.Unlock()
			observability.IncFeedEvent(string(ev.Type), "ignored")
			return
		}
		changed := v.applyLocked(ev)
		v.mu.Unlock()

		observability.IncFeedEvent(string(ev.Type), "applied")
		if changed {
			v.notify()
		}
	}
}

// Apply applies a live event to the current conversation. Malformed events
// are ignored.
func (v *ViewModel) Apply(ev models.Event) {
	if !ev.Valid() {
		return
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	changed := v.applyLocked(ev)
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

func (v *ViewModel) OnMessageCreated(msg *models.Message) {
	v.Apply(models.Event{Type: models.EventMessageCreated, Message: msg})
}

func (v *ViewModel) OnMessageEdited(msg *models.Message) {
	v.Apply(models.Event{Type: models.EventMessageEdited, Message: msg})
}

func (v *ViewModel) OnMessageDeleted(msg *models.Message) {
	v.Apply(models.Event{Type: models.EventMessageDeleted, Message: msg})
}

func (v *ViewModel) OnReactionCreated(ev models.ReactionEvent) {
	ev.Kind = models.ReactionCreated
	v.Apply(models.Event{Type: models.EventReactionCreated, Reaction: &ev})
}

func (v *ViewModel) OnReactionDeleted(ev models.ReactionEvent) {
	ev.Kind = models.ReactionDeleted
	v.Apply(models.Event{Type: models.EventReactionDeleted, Reaction: &ev})
}

func (v *ViewModel) applyLocked(ev models.Event) bool {
	switch ev.Type {
	case models.EventMessageCreated:
		if v.indexLocked(ev.Message.ID) >= 0 {
			return false
		}
		v.messages = append(v.messages, ev.Message)
		return true

	case models.EventMessageEdited:
		i := v.indexLocked(ev.Message.ID)
		if i < 0 {
			return false
		}
		next := ev.Message
		if next.Reactions == nil && v.messages[i].Reactions != nil {
			// edit payloads do not carry reactions; keep what we have
			next = next.Clone()
			next.Reactions = v.messages[i].Clone().Reactions
		}
		v.messages = replaceAt(v.messages, i, next)
		return true

	case models.EventMessageDeleted:
		i := v.indexLocked(ev.Message.ID)
		if i < 0 {
			return false
		}
		out := make([]*models.Message, 0, len(v.messages)-1)
		out = append(out, v.messages[:i]...)
		v.messages = append(out, v.messages[i+1:]...)
		return true

	case models.EventReactionCreated, models.EventReactionDeleted:
		rev := *ev.Reaction
		if ev.Type == models.EventReactionCreated {
			rev.Kind = models.ReactionCreated
		} else {
			rev.Kind = models.ReactionDeleted
		}
		next, changed := reactions.ApplyAll(v.messages, rev)
		v.messages = next
		return changed
	}
	return false
}

func replaceAt(list []*models.Message, i int, msg *models.Message) []*models.Message {
	out := append([]*models.Message(nil), list...)
	out[i] = msg
	return out
}

func (v *ViewModel) indexLocked(id string) int {
	for i, m := range v.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Messages returns the current list in chronological load order.
func (v *ViewModel) Messages() []*models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*models.Message(nil), v.messages...)
}

// Earliest returns the creation time of the oldest loaded message.
func (v *ViewModel) Earliest() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var earliest time.Time
	for _, m := range v.messages {
		if earliest.IsZero() || m.CreatedAt.Before(earliest) {
			earliest = m.CreatedAt
		}
	}
	return earliest, !earliest.IsZero()
}

// Cursor is the id of the oldest fetched message, empty before the first
// page or once history is exhausted.
func (v *ViewModel) Cursor() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

func (v *ViewModel) Exhausted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.exhausted
}

func (v *ViewModel) IsLoading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *ViewModel) Channel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channel
}

// Updates signals after state changes. Signals coalesce; read the state
// again after each one.
func (v *ViewModel) Updates() <-chan struct{} {
	return v.updates
}

func (v *ViewModel) notify() {
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

// Close releases the subscription and drops any in-flight page result.
func (v *ViewModel) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.gen++
	v.loading = false
	unsub := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (v *ViewModel) current() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return "", ErrClosed
	}
	if v.channel == "" {
		return "", ErrNoConversation
	}
	return v.channel, nil
}

// Send publishes text. The message shows up once the backend echoes it.
func (v *ViewModel) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	channel, err := v.current()
	if err != nil {
		return err
	}
	return v.backend.Send(ctx, channel, text)
}

func (v *ViewModel) Edit(ctx context.Context, messageID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	channel, err := v.current()
	if err != nil {
		return err
	}
	return v.backend.Edit(ctx, channel, messageID, text)
}

func (v *ViewModel) Delete(ctx context.Context, messageID string) error {
	channel, err := v.current()
	if err != nil {
		return err
	}
	return v.backend.Delete(ctx, channel, messageID)
}

func (v *ViewModel) AddReaction(ctx context.Context, messageID, reactionType string) error {
	channel, err := v.current()
	if err != nil {
		return err
	}
	return v.backend.AddReaction(ctx, channel, messageID, reactionType)
}

func (v *ViewModel) RemoveReaction(ctx context.Context, reactionID string) error {
	channel, err := v.current()
	if err != nil {
		return err
	}
	return v.backend.RemoveReaction(ctx, channel, reactionID)
}
