package domain

import "time"

const (
	RoleUser      = "user"
	RoleRecipient = "recipient"
)

type Message struct {
	ID               string                    `json:"id"`
	ConversationID   string                    `json:"conversation_id"`
	UserID           string                    `json:"user_id"`
	Content          string                    `json:"content"`
	Role             string                    `json:"role"`
	TimeSpentSeconds float64                   `json:"time_spent_seconds"`
	Analysis         *MessageEmotionalAnalysis `json:"analysis,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// ReplyOutput es la estructura esperada del LLM cuando responde en personaje.
type ReplyOutput struct {
	Reply string `json:"reply" jsonschema:"required,description=Mensaje en voz del destinatario"`
	Tone  string `json:"tone" jsonschema:"required,description=Tono emocional en una o dos palabras"`
}
