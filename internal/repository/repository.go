package repository

import (
	"context"
	"errors"

	"unsent/internal/domain"
)

var (
	// ErrNotFound unifica "sin filas" de Postgres y "sin documentos" de Mongo.
	ErrNotFound = errors.New("not found")
	// ErrConflict indica que otro escritor cambio la conversacion desde la ultima lectura.
	ErrConflict = errors.New("concurrent update")
)

// ConversationRepository define la persistencia de conversaciones.
type ConversationRepository interface {
	Create(ctx context.Context, conversation domain.Conversation) error
	GetByID(ctx context.Context, id string) (domain.Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Conversation, error)
	// Update solo escribe si el message_count guardado sigue siendo prevMessageCount;
	// si no, devuelve ErrConflict.
	Update(ctx context.Context, conversation domain.Conversation, prevMessageCount int) error
}

// MessageRepository guarda mensajes ya cifrados; no interpreta su contenido.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type PetRepository interface {
	Upsert(ctx context.Context, pet domain.PetProfile) error
	GetByUserID(ctx context.Context, userID string) (domain.PetProfile, error)
}
