package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unsent/internal/domain"
	"unsent/internal/service"
)

// AnalysisHandler expone la tabla de etapas y la puntuacion sin estado.
type AnalysisHandler struct {
	logger *zap.Logger
	engine service.ScoreEngine
}

func NewAnalysisHandler(logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{logger: logger}
}

// Health maneja GET /healthz.
func (h *AnalysisHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListStages maneja GET /stages.
func (h *AnalysisHandler) ListStages(c *gin.Context) {
	stages := make([]domain.StageDefinition, 0, len(domain.StageOrder))
	for _, stage := range domain.StageOrder {
		stages = append(stages, domain.StageDef(stage))
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// Analyze maneja POST /analyze. No persiste nada.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req struct {
		Content   string  `json:"content"`
		TimeSpent float64 `json:"time_spent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		h.logger.Warn("invalid analyze request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	analysis := h.engine.Analyze(req.Content, req.TimeSpent)
	c.JSON(http.StatusOK, gin.H{
		"analysis":       analysis,
		"next_step_hint": domain.StageDef(analysis.Stage).NextStepHint,
	})
}
