package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"unsent/internal/crypto"
	"unsent/internal/domain"
	"unsent/internal/repository"
)

// MessageService persiste mensajes cifrando el contenido y los devuelve en claro.
type MessageService struct {
	repo   repository.MessageRepository
	cipher crypto.ContentCipher
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
)

func NewMessageService(repo repository.MessageRepository, cipher crypto.ContentCipher) *MessageService {
	if cipher == nil {
		cipher, _ = crypto.NewContentCipher("")
	}
	return &MessageService{repo: repo, cipher: cipher}
}

// Save normaliza, completa ID y fecha, cifra y guarda. Devuelve el mensaje en claro.
func (s *MessageService) Save(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.ConversationID = strings.TrimSpace(msg.ConversationID)
	msg.Role = strings.TrimSpace(msg.Role)
	msg.Content = strings.TrimSpace(msg.Content)

	if msg.UserID == "" || msg.ConversationID == "" || msg.Role == "" || msg.Content == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	stored := msg
	enc, err := s.cipher.Encrypt(msg.Content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encrypt content: %w", err)
	}
	stored.Content = enc

	if err := s.repo.Create(ctx, stored); err != nil {
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

// ListByConversation devuelve los mensajes en orden cronologico y descifrados.
func (s *MessageService) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrMessageServiceNotConfigured
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return []domain.Message{}, nil
	}

	msgs, err := s.repo.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range msgs {
		plain, err := s.cipher.Decrypt(msgs[i].Content)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", msgs[i].ID, err)
		}
		msgs[i].Content = plain
	}
	return msgs, nil
}
