package models

import "time"

// Message is a single entry of a conversation feed.
type Message struct {
	ID             string                `json:"id"`
	ConversationID string                `json:"conversation_id"`
	CreatedBy      string                `json:"created_by"`
	CreatedAt      time.Time             `json:"created_at"`
	Body           Body                  `json:"body"`
	Reactions      map[string][]Reaction `json:"reactions,omitempty"`
}

// Reaction is one reactor's entry under a reaction type.
type Reaction struct {
	ReactionID string `json:"reaction_id"`
	ReactorID  string `json:"reactor_id"`
	Type       string `json:"type"`
}

// Clone returns a copy of m whose reactions map can be modified without
// touching m. Body parts are shared; they are never mutated in place.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Reactions != nil {
		cp.Reactions = make(map[string][]Reaction, len(m.Reactions))
		for k, v := range m.Reactions {
			cp.Reactions[k] = append([]Reaction(nil), v...)
		}
	}
	return &cp
}

// ReactionKind distinguishes reaction creation from retraction.
type ReactionKind string

const (
	ReactionCreated ReactionKind = "created"
	ReactionDeleted ReactionKind = "deleted"
)

// ReactionEvent is emitted by the backend when a reaction is added or removed.
type ReactionEvent struct {
	MessageID  string       `json:"message_id,omitempty"`
	ReactionID string       `json:"reaction_id"`
	Type       string       `json:"type,omitempty"`
	ActorID    string       `json:"actor_id,omitempty"`
	Kind       ReactionKind `json:"kind"`
}

// EventType names a live event delivered by a conversation subscription.
type EventType string

const (
	EventMessageCreated  EventType = "message.created"
	EventMessageEdited   EventType = "message.edited"
	EventMessageDeleted  EventType = "message.deleted"
	EventReactionCreated EventType = "reaction.created"
	EventReactionDeleted EventType = "reaction.deleted"
)

// Event is a live event for one conversation.
type Event struct {
	Type     EventType      `json:"type"`
	Message  *Message       `json:"message,omitempty"`
	Reaction *ReactionEvent `json:"reaction,omitempty"`
}

// Valid reports whether the event carries the payload its type requires.
func (e Event) Valid() bool {
	switch e.Type {
	case EventMessageCreated, EventMessageEdited, EventMessageDeleted:
		return e.Message != nil && e.Message.ID != ""
	case EventReactionCreated:
		return e.Reaction != nil && e.Reaction.ReactionID != "" && e.Reaction.MessageID != ""
	case EventReactionDeleted:
		return e.Reaction != nil && e.Reaction.ReactionID != ""
	default:
		return false
	}
}
