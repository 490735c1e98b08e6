// Package conversation mirrors one conversation of the realtime backend:
// an initial backward page, older pages on demand, and live events applied
// in arrival order.
package conversation

import (
	"context"

	"chat-feed/internal/models"
)

// PageQuery asks for up to Limit messages older than the message with id
// Before. An empty Before asks for the most recent page.
type PageQuery struct {
	Before string
	Limit  int
}

// Unsubscribe releases a subscription. It must be safe to call more than once.
type Unsubscribe func()

// EventHandler receives live events. Calls for one subscription are
// serialized by the backend.
type EventHandler func(models.Event)

// Backend is the contract of the hosted realtime service, scoped to the
// identity it was created for.
type Backend interface {
	// Query returns a page newest first.
	Query(ctx context.Context, channel string, q PageQuery) ([]*models.Message, error)
	Send(ctx context.Context, channel, text string) error
	Edit(ctx context.Context, channel, messageID, text string) error
	Delete(ctx context.Context, channel, messageID string) error
	AddReaction(ctx context.Context, channel, messageID, reactionType string) error
	RemoveReaction(ctx context.Context, channel, reactionID string) error
	// Subscribe registers handler for the channel's events. ctx bounds only
	// the registration; the subscription lives until the returned handle
	// is called.
	Subscribe(ctx context.Context, channel string, handler EventHandler) (Unsubscribe, error)
}
