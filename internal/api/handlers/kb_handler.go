package handlers

import (
	"studybot/internal/dto"
	"studybot/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthMessage = "API do Chatbot para Estudantes está funcionando!"

type KnowledgeHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewKnowledgeHandler(chatService *service.ChatService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /api [get]
func (h *KnowledgeHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{
		Status:  "ok",
		Message: healthMessage,
	})
}

// KBStatus godoc
// @Summary Knowledge base status
// @Description Reports entry count, file modification time and reload count
// @Tags system
// @Produce json
// @Success 200 {object} models.KnowledgeStatus
// @Router /api/kb_status [get]
func (h *KnowledgeHandler) KBStatus(c *fiber.Ctx) error {
	status := h.chatService.Status()
	h.logger.Debug("Knowledge base status requested", zap.Int("entries", status.EntriesCount))
	return c.JSON(status)
}
