package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"unsent/internal/domain"
	"unsent/internal/llm"
)

var (
	ErrReplyInvalidInput  = errors.New("reply invalid input")
	ErrReplyNotConfigured = errors.New("reply service not configured")
)

var replySchema = llm.GenerateSchema[domain.ReplyOutput]()

// MessageSaver persiste un mensaje y devuelve la version guardada (en claro).
type MessageSaver interface {
	Save(ctx context.Context, msg domain.Message) (domain.Message, error)
}

// ReplyResult es la respuesta persistida mas metadatos que no se guardan.
type ReplyResult struct {
	Message  domain.Message `json:"message"`
	Tone     string         `json:"tone,omitempty"`
	Fallback bool           `json:"fallback"`
}

// ReplyService genera la respuesta en personaje del destinatario y la persiste.
type ReplyService struct {
	llmClient      llm.LLMClient
	messages       MessageSaver
	contextService ContextService
	promptBuilder  ReplyPromptBuilder
	parser         ReplyParser
	logger         *zap.Logger
}

func NewReplyService(
	llmClient llm.LLMClient,
	messages MessageSaver,
	contextService ContextService,
	logger *zap.Logger,
) *ReplyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyService{
		llmClient:      llmClient,
		messages:       messages,
		contextService: contextService,
		promptBuilder:  ReplyPromptBuilder{},
		parser:         DefaultReplyParser,
		logger:         logger,
	}
}

// Reply responde al ultimo mensaje del usuario. Si el LLM devuelve algo inutilizable
// se usa la respuesta de respaldo de la etapa; solo los errores de red o de
// persistencia se propagan.
func (s *ReplyService) Reply(ctx context.Context, conv domain.Conversation, userMessage string, analysis domain.MessageEmotionalAnalysis) (ReplyResult, error) {
	if s == nil || s.llmClient == nil || s.messages == nil {
		return ReplyResult{}, ErrReplyNotConfigured
	}
	userMessage = strings.TrimSpace(userMessage)
	if strings.TrimSpace(conv.ID) == "" || strings.TrimSpace(conv.UserID) == "" || userMessage == "" {
		return ReplyResult{}, ErrReplyInvalidInput
	}

	var contextText string
	if s.contextService != nil {
		text, err := s.contextService.GetContext(ctx, conv)
		if err != nil {
			s.logger.Warn("reply context unavailable", zap.String("conversation_id", conv.ID), zap.Error(err))
		} else {
			contextText = text
		}
	}

	prompt := s.promptBuilder.BuildReplyPrompt(conv, analysis, contextText, userMessage)
	raw, err := s.llmClient.GenerateJSON(ctx, prompt, llm.JSONFormat{
		Name:        "recipient_reply",
		Description: "Reply written in the voice of the recipient",
		Schema:      replySchema,
	})
	if err != nil {
		return ReplyResult{}, fmt.Errorf("llm generate: %w", err)
	}

	out, ok := s.parser.ParseReplySafe(raw)
	if !ok {
		s.logger.Warn("reply unparseable, using stage fallback",
			zap.String("conversation_id", conv.ID),
			zap.String("stage", string(analysis.Stage)),
			zap.Int("raw_len", len(raw)),
		)
		out = domain.ReplyOutput{Reply: fallbackReplyFor(analysis.Stage)}
	}
	result := ReplyResult{Tone: out.Tone, Fallback: !ok}

	saved, err := s.messages.Save(ctx, domain.Message{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Role:           domain.RoleRecipient,
		Content:        out.Reply,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return ReplyResult{}, fmt.Errorf("persist reply: %w", err)
	}
	result.Message = saved
	return result, nil
}
