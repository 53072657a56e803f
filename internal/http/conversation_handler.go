package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unsent/internal/service"
)

// ConversationHandler mantiene dependencias para conversaciones y mensajes no enviados.
type ConversationHandler struct {
	logger        *zap.Logger
	conversations *service.ConversationService
}

func NewConversationHandler(logger *zap.Logger, conversations *service.ConversationService) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{logger: logger, conversations: conversations}
}

// Create maneja POST /conversations.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	var req service.CreateConversationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create conversation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, h.logger, "create conversation", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// List maneja GET /conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	convs, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, h.logger, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Get maneja GET /conversations/:id y devuelve la conversacion con su historial.
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conv, err := h.conversations.Get(ctx, userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, "get conversation", err)
		return
	}
	history, err := h.conversations.History(ctx, userID, conv.ID)
	if err != nil {
		writeServiceError(c, h.logger, "get conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": history})
}

// PostMessage maneja POST /conversations/:id/messages.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	var req service.PostMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.conversations.PostMessage(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, h.logger, "post message", err)
		return
	}
	if res.ReplyError != "" {
		h.logger.Warn("reply not generated",
			zap.String("conversation_id", res.Conversation.ID),
			zap.String("reason", res.ReplyError),
		)
	}
	c.JSON(http.StatusCreated, res)
}
