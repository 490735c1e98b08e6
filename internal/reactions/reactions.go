// Package reactions applies reaction events to messages without mutating
// them. A message the event does not touch comes back as the same pointer,
// so callers can skip unchanged rows by comparing pointers.
package reactions

import "chat-feed/internal/models"

// Apply dispatches ev on its kind. Unknown kinds leave msg untouched.
func Apply(msg *models.Message, ev models.ReactionEvent) *models.Message {
	switch ev.Kind {
	case models.ReactionCreated:
		return Add(msg, ev)
	case models.ReactionDeleted:
		return Remove(msg, ev)
	default:
		return msg
	}
}

// Add records the reaction on msg when it targets msg and its reaction id
// is not already present.
func Add(msg *models.Message, ev models.ReactionEvent) *models.Message {
	if msg == nil || msg.ID != ev.MessageID || ev.ReactionID == "" {
		return msg
	}
	if _, _, ok := find(msg, ev.ReactionID); ok {
		return msg
	}

	out := msg.Clone()
	if out.Reactions == nil {
		out.Reactions = make(map[string][]models.Reaction)
	}
	out.Reactions[ev.Type] = append(out.Reactions[ev.Type], models.Reaction{
		ReactionID: ev.ReactionID,
		ReactorID:  ev.ActorID,
		Type:       ev.Type,
	})
	return out
}

// Remove drops the entry with the event's reaction id. An event naming a
// different message, or a reaction msg does not carry, is a no-op.
func Remove(msg *models.Message, ev models.ReactionEvent) *models.Message {
	if msg == nil || (ev.MessageID != "" && msg.ID != ev.MessageID) {
		return msg
	}
	typ, idx, ok := find(msg, ev.ReactionID)
	if !ok {
		return msg
	}

	out := msg.Clone()
	rest := append(out.Reactions[typ][:idx:idx], out.Reactions[typ][idx+1:]...)
	if len(rest) == 0 {
		delete(out.Reactions, typ)
	} else {
		out.Reactions[typ] = rest
	}
	return out
}

// ApplyAll maps Apply over list. When no message changes the original slice
// is returned.
func ApplyAll(list []*models.Message, ev models.ReactionEvent) ([]*models.Message, bool) {
	var out []*models.Message
	for i, msg := range list {
		next := Apply(msg, ev)
		if next == msg && out == nil {
			continue
		}
		if out == nil {
			out = make([]*models.Message, len(list))
			copy(out, list[:i])
		}
		out[i] = next
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// Count returns how many reactors used typ on msg.
func Count(msg *models.Message, typ string) int {
	if msg == nil {
		return 0
	}
	return len(msg.Reactions[typ])
}

// ReactedBy returns the reaction id actor holds under typ, if any.
func ReactedBy(msg *models.Message, typ, actor string) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, r := range msg.Reactions[typ] {
		if r.ReactorID == actor {
			return r.ReactionID, true
		}
	}
	return "", false
}

func find(msg *models.Message, reactionID string) (string, int, bool) {
	for typ, list := range msg.Reactions {
		for i, r := range list {
			if r.ReactionID == reactionID {
				return typ, i, true
			}
		}
	}
	return "", 0, false
}
