package server

import (
	"time"

	"github.com/joseph-ayodele/fatture-in-chat/internal/entity"
)

// Request payloads

// ChatMessage is one turn as sent by the chat UI. Unknown fields are tolerated.
type ChatMessage struct {
	_         struct{}   `json:"-" additionalProperties:"true"`
	ID        string     `json:"id,omitempty"`
	Role      string     `json:"role" doc:"user or assistant"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty" doc:"Alias of timestamp"`
}

type ChatRequest struct {
	_        struct{}      `json:"-" additionalProperties:"true"`
	Messages []ChatMessage `json:"messages" doc:"Conversation history, oldest first"`
	EntityID string        `json:"entityId,omitempty" doc:"Entity selected in the UI"`
}

func (r ChatRequest) Turns() []entity.ConversationTurn {
	out := make([]entity.ConversationTurn, 0, len(r.Messages))
	for _, m := range r.Messages {
		t := entity.ConversationTurn{ID: m.ID, Role: entity.TurnRole(m.Role), Content: m.Content}
		switch {
		case m.Timestamp != nil:
			t.Timestamp = *m.Timestamp
		case m.CreatedAt != nil:
			t.Timestamp = *m.CreatedAt
		}
		out = append(out, t)
	}
	return out
}
