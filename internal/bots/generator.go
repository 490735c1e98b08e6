package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-feed/internal/models"
	"chat-feed/internal/observability"
	"chat-feed/internal/reactions"
)

var ErrUnknownMessage = errors.New("bot message not revealed")

// Options tunes a Generator. Zero values fall back to defaults.
type Options struct {
	IDPrefix string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Generator reveals a scripted conversation relative to an anchor time.
// Entries become visible in offset order once the clock passes
// anchor+offset and stay visible from then on.
type Generator struct {
	channel  string
	idPrefix string
	script   []models.ScriptEntry
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	anchor    time.Time
	hasAnchor bool
	revealed  int
	messages  []*models.Message

	wake    chan struct{}
	updates chan struct{}
}

// NewGenerator builds a generator for channel. The script is copied and
// sorted by offset; entries sharing an offset keep their script order.
func NewGenerator(channel string, script []models.ScriptEntry, opts Options) *Generator {
	entries := append([]models.ScriptEntry(nil), script...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	if opts.IDPrefix == "" {
		opts.IDPrefix = "bot-"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Generator{
		channel:  channel,
		idPrefix: opts.IDPrefix,
		script:   entries,
		log:      opts.Logger.With("component", "bots", "channel", channel),
		now:      opts.Now,
		wake:     make(chan struct{}, 1),
		updates:  make(chan struct{}, 1),
	}
}

// SetAnchor fixes the anchor the first time it is called. Later calls are
// ignored so revealed timestamps never shift. It reports whether the anchor
// was taken.
func (g *Generator) SetAnchor(t time.Time) bool {
	g.mu.Lock()
	if g.hasAnchor {
		g.mu.Unlock()
		return false
	}
	g.anchor = t
	g.hasAnchor = true
	g.mu.Unlock()

	g.log.Debug("bot anchor set", "anchor", t)
	signal(g.wake)
	return true
}

// Anchor returns the anchor, if one has been set.
func (g *Generator) Anchor() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.anchor, g.hasAnchor
}

// Reveal makes every entry due at now visible and returns how many were
// newly revealed. Nothing is revealed before an anchor is known.
func (g *Generator) Reveal(now time.Time) int {
	g.mu.Lock()
	if !g.hasAnchor {
		g.mu.Unlock()
		return 0
	}

	n := 0
	for g.revealed < len(g.script) {
		idx := g.revealed
		entry := g.script[idx]
		at := g.anchor.Add(entry.Offset)
		if at.After(now) {
			break
		}
		g.messages = append(g.messages, g.materialize(idx, entry, at))
		g.revealed++
		n++
	}
	g.mu.Unlock()

	if n > 0 {
		observability.AddBotReveals(n)
		g.log.Debug("bot entries revealed", "count", n)
		signal(g.updates)
	}
	return n
}

func (g *Generator) materialize(idx int, entry models.ScriptEntry, at time.Time) *models.Message {
	msg := &models.Message{
		ID:             fmt.Sprintf("%s%s-%d", g.idPrefix, g.channel, idx),
		ConversationID: g.channel,
		CreatedBy:      entry.Author,
		CreatedAt:      at,
		Body:           models.ParseBody(entry.Text),
	}
	for j, r := range entry.Reactions {
		msg = reactions.Add(msg, models.ReactionEvent{
			MessageID:  msg.ID,
			ReactionID: fmt.Sprintf("%s-r%d", msg.ID, j),
			Type:       r.Type,
			ActorID:    r.Actor,
			Kind:       models.ReactionCreated,
		})
	}
	return msg
}

// Messages returns the revealed messages in offset order.
func (g *Generator) Messages() []*models.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*models.Message(nil), g.messages...)
}

// Updates signals after every change to the revealed list.
func (g *Generator) Updates() <-chan struct{} {
	return g.updates
}

// Run reveals entries as they fall due until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	for {
		now := g.now()
		g.Reveal(now)

		var timer *time.Timer
		var fire <-chan time.Time
		if wait, ok := g.nextDue(now); ok {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-g.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (g *Generator) nextDue(now time.Time) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasAnchor || g.revealed >= len(g.script) {
		return 0, false
	}
	wait := g.anchor.Add(g.script[g.revealed].Offset).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// AddReaction records actor's reaction on a revealed bot message.
func (g *Generator) AddReaction(messageID, typ, actor string) (models.ReactionEvent, error) {
	ev := models.ReactionEvent{
		MessageID:  messageID,
		ReactionID: uuid.NewString(),
		Type:       typ,
		ActorID:    actor,
		Kind:       models.ReactionCreated,
	}
	if err := g.apply(ev); err != nil {
		return models.ReactionEvent{}, err
	}
	return ev, nil
}

// RemoveReaction retracts a reaction from a revealed bot message.
func (g *Generator) RemoveReaction(messageID, reactionID string) error {
	return g.apply(models.ReactionEvent{
		MessageID:  messageID,
		ReactionID: reactionID,
		Kind:       models.ReactionDeleted,
	})
}

func (g *Generator) apply(ev models.ReactionEvent) error {
	g.mu.Lock()
	found := false
	for _, m := range g.messages {
		if m.ID == ev.MessageID {
			found = true
			break
		}
	}
	if !found {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMessage, ev.MessageID)
	}
	next, changed := reactions.ApplyAll(g.messages, ev)
	g.messages = next
	g.mu.Unlock()

	if changed {
		signal(g.updates)
	}
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
