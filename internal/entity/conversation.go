package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TurnRole is the author of a conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one message of the chat history, oldest first.
type ConversationTurn struct {
	ID        string    `json:"id,omitempty"`
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NormalizeConversation checks the ordering invariants of a history and fills
// missing identifiers. Turns without a timestamp inherit the previous one.
func NormalizeConversation(turns []ConversationTurn) ([]ConversationTurn, error) {
	if len(turns) == 0 {
		return nil, errors.New("nessun messaggio nella conversazione")
	}

	out := make([]ConversationTurn, len(turns))
	seen := make(map[string]struct{}, len(turns))
	var last time.Time
	for i, t := range turns {
		switch t.Role {
		case TurnRoleUser, TurnRoleAssistant:
		default:
			return nil, fmt.Errorf("messaggio %d: ruolo %q non valido", i, t.Role)
		}
		if strings.TrimSpace(t.Content) == "" {
			return nil, fmt.Errorf("messaggio %d: contenuto vuoto", i)
		}
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("messaggio %d: id %s duplicato", i, t.ID)
		}
		seen[t.ID] = struct{}{}

		if t.Timestamp.IsZero() {
			t.Timestamp = last
		} else if t.Timestamp.Before(last) {
			return nil, fmt.Errorf("messaggio %d: la data %s precede quella del messaggio precedente", i, t.Timestamp.Format(time.RFC3339))
		}
		last = t.Timestamp
		out[i] = t
	}
	return out, nil
}
