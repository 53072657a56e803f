package domain

import "time"

const (
	RecipientTypeReal     = "real"
	RecipientTypeSymbolic = "symbolic"
)

// Conversation agrupa los mensajes no enviados dirigidos a un destinatario.
type Conversation struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	RecipientName    string       `json:"recipient_name"`
	RecipientType    string       `json:"recipient_type"`
	RecipientContext string       `json:"recipient_context,omitempty"`
	EmotionalScore   int          `json:"emotional_score"`
	CurrentStage     EmotionStage `json:"current_stage"`
	MessageCount     int          `json:"message_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
