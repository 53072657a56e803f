package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unsent/internal/domain"
	"unsent/internal/service"
)

// PetHandler expone el perfil de mascota y el chat del asesor.
type PetHandler struct {
	logger  *zap.Logger
	advisor *service.PetAdvisorService
}

func NewPetHandler(logger *zap.Logger, advisor *service.PetAdvisorService) *PetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PetHandler{logger: logger, advisor: advisor}
}

// SaveProfile maneja PUT /pets/profile.
func (h *PetHandler) SaveProfile(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name     string  `json:"name"`
		Species  string  `json:"species"`
		Breed    string  `json:"breed"`
		AgeYears float64 `json:"age_years"`
		Notes    string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid pet profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pet, err := h.advisor.SaveProfile(c.Request.Context(), userID, domain.PetProfile{
		Name:     req.Name,
		Species:  req.Species,
		Breed:    req.Breed,
		AgeYears: req.AgeYears,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(c, h.logger, "save pet profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pet": pet})
}

// GetProfile maneja GET /pets/profile.
func (h *PetHandler) GetProfile(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	pet, err := h.advisor.GetProfile(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, h.logger, "get pet profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pet": pet})
}

// Chat maneja POST /pets/chat. Siempre responde con la forma normalizada.
func (h *PetHandler) Chat(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}
	var req struct {
		Query   string            `json:"query"`
		History []domain.ChatTurn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid pet chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.advisor.Chat(c.Request.Context(), userID, req.Query, req.History)
	if err != nil {
		writeServiceError(c, h.logger, "pet chat", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
