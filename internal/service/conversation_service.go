package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"unsent/internal/domain"
	"unsent/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrRateLimited          = errors.New("reply rate limited")
)

const (
	maxRecipientNameLen    = 120
	maxRecipientContextLen = 2000
	maxMessageLen          = 20000

	conversationLockStripes = 64
	maxAggregateAttempts    = 5
)

// CreateConversationInput son los datos del destinatario al abrir una conversacion.
type CreateConversationInput struct {
	RecipientName    string `json:"recipient_name"`
	RecipientType    string `json:"recipient_type"`
	RecipientContext string `json:"recipient_context"`
}

// PostMessageInput es un mensaje no enviado y el tiempo que el usuario tardo en escribirlo.
type PostMessageInput struct {
	Content          string  `json:"content"`
	TimeSpentSeconds float64 `json:"time_spent"`
	WantReply        bool    `json:"want_reply"`
}

// PostMessageResult devuelve el mensaje guardado, la conversacion actualizada y,
// si se pidio, la respuesta. ReplyError no invalida la escritura.
type PostMessageResult struct {
	Message      domain.Message      `json:"message"`
	Conversation domain.Conversation `json:"conversation"`
	Reply        *ReplyResult        `json:"reply,omitempty"`
	ReplyError   string              `json:"reply_error,omitempty"`
	NextStepHint string              `json:"next_step_hint"`
}

// Replier genera la respuesta en personaje. ReplyService la implementa.
type Replier interface {
	Reply(ctx context.Context, conv domain.Conversation, userMessage string, analysis domain.MessageEmotionalAnalysis) (ReplyResult, error)
}

// ConversationService orquesta puntuacion, persistencia y respuestas.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      *MessageService
	engine        ScoreEngine
	replier       Replier
	limiter       ReplyRateLimiter
	logger        *zap.Logger
	now           func() time.Time

	// locks serializa la actualizacion del promedio por conversacion dentro del proceso.
	// Entre procesos protege el compare-and-swap del repositorio.
	locks [conversationLockStripes]sync.Mutex
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages *MessageService,
	replier Replier,
	limiter ReplyRateLimiter,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		engine:        DefaultScoreEngine,
		replier:       replier,
		limiter:       limiter,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationService) Create(ctx context.Context, userID string, in CreateConversationInput) (domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	name := strings.TrimSpace(in.RecipientName)
	kind := strings.ToLower(strings.TrimSpace(in.RecipientType))
	if kind == "" {
		kind = domain.RecipientTypeReal
	}
	recipientContext := strings.TrimSpace(in.RecipientContext)

	if userID == "" {
		return domain.Conversation{}, fmt.Errorf("%w: missing user", ErrInvalidRecipient)
	}
	if name == "" || len([]rune(name)) > maxRecipientNameLen {
		return domain.Conversation{}, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidRecipient, maxRecipientNameLen)
	}
	if kind != domain.RecipientTypeReal && kind != domain.RecipientTypeSymbolic {
		return domain.Conversation{}, fmt.Errorf("%w: type must be %q or %q", ErrInvalidRecipient, domain.RecipientTypeReal, domain.RecipientTypeSymbolic)
	}
	if len([]rune(recipientContext)) > maxRecipientContextLen {
		return domain.Conversation{}, fmt.Errorf("%w: context too long", ErrInvalidRecipient)
	}

	now := s.now()
	conv := domain.Conversation{
		ID:               uuid.NewString(),
		UserID:           userID,
		RecipientName:    name,
		RecipientType:    kind,
		RecipientContext: recipientContext,
		EmotionalScore:   domain.EmotionStages[domain.StageDenial].MinScore,
		CurrentStage:     domain.StageDenial,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.Info("conversation created", zap.String("conversation_id", conv.ID), zap.String("recipient_type", kind))
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []domain.Conversation{}, nil
	}
	list, err := s.conversations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

// Get devuelve la conversacion solo si pertenece al usuario; si no, ErrConversationNotFound.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, strings.TrimSpace(conversationID))
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	if conv.UserID != strings.TrimSpace(userID) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// History devuelve los mensajes descifrados de una conversacion del usuario.
func (s *ConversationService) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conv.ID)
}

// PostMessage puntua y guarda el mensaje, actualiza el promedio de la conversacion y
// opcionalmente pide la respuesta del destinatario.
func (s *ConversationService) PostMessage(ctx context.Context, userID, conversationID string, in PostMessageInput) (PostMessageResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || len([]rune(content)) > maxMessageLen {
		return PostMessageResult{}, ErrMessageInvalidInput
	}

	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return PostMessageResult{}, err
	}

	analysis := s.engine.Analyze(content, in.TimeSpentSeconds)
	saved, err := s.messages.Save(ctx, domain.Message{
		ConversationID:   conv.ID,
		UserID:           conv.UserID,
		Role:             domain.RoleUser,
		Content:          content,
		TimeSpentSeconds: analysis.Factors.TimeSpentSeconds,
		Analysis:         &analysis,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return PostMessageResult{}, err
	}

	conv, err = s.applyScore(ctx, conv.ID, analysis.Score)
	if err != nil {
		return PostMessageResult{}, fmt.Errorf("update conversation: %w", err)
	}

	result := PostMessageResult{
		Message:      saved,
		Conversation: conv,
		NextStepHint: domain.StageDef(analysis.Stage).NextStepHint,
	}

	if in.WantReply {
		reply, err := s.reply(ctx, conv, content, analysis)
		if err != nil {
			s.logger.Warn("reply failed", zap.String("conversation_id", conv.ID), zap.Error(err))
			result.ReplyError = err.Error()
		} else {
			result.Reply = &reply
		}
	}

	s.logger.Info("message analyzed",
		zap.String("conversation_id", conv.ID),
		zap.Int("score", analysis.Score),
		zap.String("stage", string(analysis.Stage)),
		zap.Float64("intensity", analysis.Intensity),
		zap.Int("conversation_score", conv.EmotionalScore),
	)
	return result, nil
}

// applyScore suma un puntaje al promedio corrido. Relee la conversacion en cada intento
// para no pisar a otro escritor; solo los mensajes del usuario pasan por aqui.
func (s *ConversationService) applyScore(ctx context.Context, conversationID string, score int) (domain.Conversation, error) {
	mu := s.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxAggregateAttempts; attempt++ {
		conv, err := s.conversations.GetByID(ctx, conversationID)
		if err != nil {
			return domain.Conversation{}, err
		}
		prevCount := conv.MessageCount
		conv.EmotionalScore = AggregateScore(conv.EmotionalScore, prevCount, score)
		conv.MessageCount = prevCount + 1
		conv.CurrentStage = StageForScore(conv.EmotionalScore)
		conv.UpdatedAt = s.now()

		err = s.conversations.Update(ctx, conv, prevCount)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return domain.Conversation{}, err
		}
		s.logger.Debug("conversation changed concurrently, retrying",
			zap.String("conversation_id", conversationID), zap.Int("attempt", attempt+1))
	}
	return domain.Conversation{}, repository.ErrConflict
}

func (s *ConversationService) lockFor(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return &s.locks[h.Sum32()%conversationLockStripes]
}

func (s *ConversationService) reply(ctx context.Context, conv domain.Conversation, content string, analysis domain.MessageEmotionalAnalysis) (ReplyResult, error) {
	if s.replier == nil {
		return ReplyResult{}, ErrReplyNotConfigured
	}
	if s.limiter != nil && !s.limiter.Allow(conv.UserID) {
		return ReplyResult{}, ErrRateLimited
	}
	return s.replier.Reply(ctx, conv, content, analysis)
}
