package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"unsent/internal/domain"
)

const contextWindowMessages = 10

// MessageLister devuelve mensajes ya descifrados de una conversacion.
type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// ContextService define contrato para recuperar contexto conversacional.
type ContextService interface {
	GetContext(ctx context.Context, conversation domain.Conversation) (string, error)
}

// BasicContextService obtiene los últimos mensajes y los formatea como texto plano.
type BasicContextService struct {
	messages MessageLister
}

func NewBasicContextService(messages MessageLister) *BasicContextService {
	return &BasicContextService{messages: messages}
}

func (s *BasicContextService) GetContext(ctx context.Context, conversation domain.Conversation) (string, error) {
	if strings.TrimSpace(conversation.ID) == "" {
		return "", nil
	}

	messages, err := s.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	if len(messages) == 0 {
		return "", nil
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	if len(messages) > contextWindowMessages {
		messages = messages[len(messages)-contextWindowMessages:]
	}

	recipient := strings.TrimSpace(conversation.RecipientName)
	if recipient == "" {
		recipient = "Destinatario"
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Usuario"
		if strings.EqualFold(m.Role, domain.RoleRecipient) {
			speaker = recipient
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}

	return strings.Join(lines, "\n"), nil
}
