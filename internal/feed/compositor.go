// Package feed merges a real conversation with the scripted bot feed and
// routes write actions to whichever side owns the target message.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"chat-feed/internal/models"
	"chat-feed/internal/reactions"
)

var (
	ErrMessageNotFound  = errors.New("message not in feed")
	ErrSyntheticMessage = errors.New("bot messages cannot be edited or deleted")
)

// Config is fixed for the lifetime of a compositor.
type Config struct {
	BotsEnabled     bool
	BotAuthorPrefix string
}

// Conversation is the real side of the feed.
type Conversation interface {
	Messages() []*models.Message
	Earliest() (time.Time, bool)
	IsLoading() bool
	Exhausted() bool
	Updates() <-chan struct{}
	LoadMore(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Edit(ctx context.Context, messageID, text string) error
	Delete(ctx context.Context, messageID string) error
	AddReaction(ctx context.Context, messageID, reactionType string) error
	RemoveReaction(ctx context.Context, reactionID string) error
}

// BotFeed is the synthetic side of the feed.
type BotFeed interface {
	Messages() []*models.Message
	SetAnchor(t time.Time) bool
	Updates() <-chan struct{}
	AddReaction(messageID, reactionType, actor string) (models.ReactionEvent, error)
	RemoveReaction(messageID, reactionID string) error
}

// Snapshot is what a viewer renders.
type Snapshot struct {
	Messages []*models.Message `json:"messages"`
	Loading  bool              `json:"loading"`
}

// Compositor reads both sides and never mutates either list directly;
// writes go through the owner's action methods.
type Compositor struct {
	cfg   Config
	conv  Conversation
	bots  BotFeed
	actor string
	now   func() time.Time
	log   *slog.Logger

	updates chan struct{}
}

// New builds a compositor for actor. bots is ignored unless
// cfg.BotsEnabled is set.
func New(cfg Config, conv Conversation, bots BotFeed, actor string, log *slog.Logger) *Compositor {
	if !cfg.BotsEnabled {
		bots = nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Compositor{
		cfg:     cfg,
		conv:    conv,
		bots:    bots,
		actor:   actor,
		now:     time.Now,
		log:     log.With("component", "feed"),
		updates: make(chan struct{}, 1),
	}
}

// Messages returns the merged feed ordered by creation time.
func (c *Compositor) Messages() []*models.Message {
	c.SyncAnchor()
	if c.bots == nil {
		return Merge(c.conv.Messages(), nil)
	}
	return Merge(c.conv.Messages(), c.bots.Messages())
}

func (c *Compositor) IsLoading() bool {
	return c.conv.IsLoading()
}

func (c *Compositor) Snapshot() Snapshot {
	return Snapshot{Messages: c.Messages(), Loading: c.IsLoading()}
}

// SyncAnchor hands the bot feed its anchor: the earliest real message, or
// the current time once history turned out to be empty.
func (c *Compositor) SyncAnchor() {
	if c.bots == nil {
		return
	}
	if earliest, ok := c.conv.Earliest(); ok {
		c.bots.SetAnchor(earliest)
		return
	}
	if !c.conv.IsLoading() && c.conv.Exhausted() {
		c.bots.SetAnchor(c.now())
	}
}

// Merge unions real and synthetic messages by id, keeping the real entry
// on collision, and sorts by CreatedAt. Messages with equal timestamps
// keep their first-appearance order.
func Merge(real, synthetic []*models.Message) []*models.Message {
	seen := make(map[string]struct{}, len(real)+len(synthetic))
	out := make([]*models.Message, 0, len(real)+len(synthetic))
	for _, list := range [][]*models.Message{real, synthetic} {
		for _, m := range list {
			if m == nil {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// IsSynthetic is the single provenance rule: a message belongs to the bot
// feed when bots are enabled and its author carries the bot prefix.
func (c *Compositor) IsSynthetic(msg *models.Message) bool {
	return c.bots != nil && msg != nil && c.cfg.BotAuthorPrefix != "" &&
		strings.HasPrefix(msg.CreatedBy, c.cfg.BotAuthorPrefix)
}

func (c *Compositor) find(messageID string) *models.Message {
	for _, m := range c.Messages() {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

func (c *Compositor) Send(ctx context.Context, text string) error {
	return c.conv.Send(ctx, text)
}

func (c *Compositor) Edit(ctx context.Context, messageID, text string) error {
	msg := c.find(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if c.IsSynthetic(msg) {
		return ErrSyntheticMessage
	}
	return c.conv.Edit(ctx, messageID, text)
}

func (c *Compositor) Delete(ctx context.Context, messageID string) error {
	msg := c.find(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if c.IsSynthetic(msg) {
		return ErrSyntheticMessage
	}
	return c.conv.Delete(ctx, messageID)
}

func (c *Compositor) LoadMore(ctx context.Context) error {
	return c.conv.LoadMore(ctx)
}

// AddReaction routes to the bot feed for synthetic messages and to the
// backend otherwise.
func (c *Compositor) AddReaction(ctx context.Context, messageID, reactionType string) error {
	msg := c.find(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if c.IsSynthetic(msg) {
		_, err := c.bots.AddReaction(messageID, reactionType, c.actor)
		return err
	}
	return c.conv.AddReaction(ctx, messageID, reactionType)
}

func (c *Compositor) RemoveReaction(ctx context.Context, messageID, reactionID string) error {
	msg := c.find(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if c.IsSynthetic(msg) {
		return c.bots.RemoveReaction(messageID, reactionID)
	}
	return c.conv.RemoveReaction(ctx, reactionID)
}

// ToggleReaction removes the actor's reaction of reactionType if present,
// otherwise adds one.
func (c *Compositor) ToggleReaction(ctx context.Context, messageID, reactionType string) error {
	msg := c.find(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if reactionID, ok := reactions.ReactedBy(msg, reactionType, c.actor); ok {
		return c.RemoveReaction(ctx, messageID, reactionID)
	}
	return c.AddReaction(ctx, messageID, reactionType)
}

// Updates signals when either side changed.
func (c *Compositor) Updates() <-chan struct{} {
	return c.updates
}

// Run forwards change signals from both sides until ctx is done. It must
// be the only reader of the sources' update channels.
func (c *Compositor) Run(ctx context.Context) {
	var botUpdates <-chan struct{}
	if c.bots != nil {
		botUpdates = c.bots.Updates()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.conv.Updates():
			c.SyncAnchor()
		case <-botUpdates:
		}
		select {
		case c.updates <- struct{}{}:
		default:
		}
	}
}
