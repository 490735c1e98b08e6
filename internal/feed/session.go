package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-feed/internal/bots"
	"chat-feed/internal/conversation"
	"chat-feed/internal/models"
)

// BackendFactory returns a realtime backend scoped to username.
type BackendFactory func(username string) conversation.Backend

// Builder opens feed sessions that share one configuration and bot script.
type Builder struct {
	Config      Config
	PageSize    int
	Script      []models.ScriptEntry
	BotIDPrefix string
	Backends    BackendFactory
	Logger      *slog.Logger
}

// Session owns one viewer's conversation mirror, bot feed and compositor.
type Session struct {
	*Compositor
	View *conversation.ViewModel
	Bots *bots.Generator

	closeOnce sync.Once
}

// Open loads channel for username. A failed initial load still returns
// the session so the caller can render the (empty) feed; the error is
// reported alongside.
func (b *Builder) Open(ctx context.Context, channel, username string) (*Session, error) {
	log := b.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("channel", channel, "username", username)

	view := conversation.NewViewModel(b.Backends(username), b.PageSize, log)

	var gen *bots.Generator
	var botFeed BotFeed
	if b.Config.BotsEnabled {
		gen = bots.NewGenerator(channel, b.Script, bots.Options{IDPrefix: b.BotIDPrefix, Logger: log})
		botFeed = gen
	}

	s := &Session{
		Compositor: New(b.Config, view, botFeed, username, log),
		View:       view,
		Bots:       gen,
	}

	if err := view.Load(ctx, channel); err != nil {
		return s, fmt.Errorf("open feed %s: %w", channel, err)
	}
	s.SyncAnchor()
	return s, nil
}

// RevealDue reveals every bot entry due at now.
func (s *Session) RevealDue(now time.Time) {
	s.SyncAnchor()
	if s.Bots != nil {
		s.Bots.Reveal(now)
	}
}

// Run drives the bot timer and change forwarding until ctx is done.
func (s *Session) Run(ctx context.Context) {
	if s.Bots != nil {
		go s.Bots.Run(ctx)
	}
	s.Compositor.Run(ctx)
}

func (s *Session) Close() {
	s.closeOnce.Do(s.View.Close)
}
