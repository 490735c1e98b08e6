package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"chat-feed/internal/models"
)

// Client frame types.
const (
	ActionSend           = "send"
	ActionEdit           = "edit"
	ActionDelete         = "delete"
	ActionAddReaction    = "add_reaction"
	ActionRemoveReaction = "remove_reaction"
	ActionToggleReaction = "toggle_reaction"
	ActionLoadMore       = "load_more"
)

var errBadFrame = errors.New("malformed frame")

// ActionFrame is sent by the client.
type ActionFrame struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Reaction   string `json:"reaction,omitempty"`
	ReactionID string `json:"reaction_id,omitempty"`
}

// SnapshotFrame carries the whole merged feed.
type SnapshotFrame struct {
	Type     string            `json:"type"`
	Channel  string            `json:"channel"`
	Messages []*models.Message `json:"messages"`
	Loading  bool              `json:"loading"`
}

// ErrorFrame reports a rejected action; the connection stays open.
type ErrorFrame struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

func decodeAction(data []byte) (ActionFrame, error) {
	var f ActionFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("%w: %v", errBadFrame, err)
	}

	switch f.Type {
	case ActionSend:
		if f.Text == "" {
			return f, fmt.Errorf("%w: text is required", errBadFrame)
		}
	case ActionEdit:
		if f.MessageID == "" || f.Text == "" {
			return f, fmt.Errorf("%w: message_id and text are required", errBadFrame)
		}
	case ActionDelete:
		if f.MessageID == "" {
			return f, fmt.Errorf("%w: message_id is required", errBadFrame)
		}
	case ActionAddReaction, ActionToggleReaction:
		if f.MessageID == "" || f.Reaction == "" {
			return f, fmt.Errorf("%w: message_id and reaction are required", errBadFrame)
		}
	case ActionRemoveReaction:
		if f.MessageID == "" || f.ReactionID == "" {
			return f, fmt.Errorf("%w: message_id and reaction_id are required", errBadFrame)
		}
	case ActionLoadMore:
	default:
		return f, fmt.Errorf("%w: unknown type %q", errBadFrame, f.Type)
	}
	return f, nil
}
