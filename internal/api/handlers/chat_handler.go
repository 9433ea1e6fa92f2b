package handlers

import (
	"bufio"
	"context"
	"iter"
	"strings"

	"studybot/internal/dto"
	"studybot/internal/models"
	"studybot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat godoc
// @Summary Ask a question
// @Description Answers from the local knowledge base, falling back to the language model
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	req, err := parseChatRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	requestID := uuid.New().String()
	c.Set(requestIDHeader, requestID)
	log := h.logger.With(zap.String("request_id", requestID))
	log.Info("Chat request", zap.Int("history", len(req.History)), zap.String("mode", req.Mode))

	answer := h.chatService.Resolve(c.UserContext(), req.Message, req.History, models.ParseMode(req.Mode))

	return c.JSON(dto.ChatResponse{Response: answer})
}

// ChatStream godoc
// @Summary Ask a question with a streamed answer
// @Description Local answers arrive as one chunk, model answers as they are generated
// @Tags chat
// @Accept json
// @Produce plain
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {string} string
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/chat_stream [post]
func (h *ChatHandler) ChatStream(c *fiber.Ctx) error {
	req, err := parseChatRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	requestID := uuid.New().String()
	c.Set(requestIDHeader, requestID)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	log := h.logger.With(zap.String("request_id", requestID))
	log.Info("Chat stream request", zap.Int("history", len(req.History)), zap.String("mode", req.Mode))

	// fiber recycles c once the handler returns, so the writer only uses
	// values captured here.
	ctx, cancel := context.WithCancel(context.Background())
	chunks := h.chatService.ResolveStream(ctx, req.Message, req.History, models.ParseMode(req.Mode))

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		sent := writeChunks(w, chunks, cancel, log)
		log.Debug("Stream finished", zap.Int("chunks", sent))
	})

	return nil
}

// writeChunks flushes every chunk to the client as it arrives. A failed write
// or flush cancels the stream context so the provider request is abandoned.
func writeChunks(w *bufio.Writer, chunks iter.Seq[string], cancel context.CancelFunc, log *zap.Logger) int {
	sent := 0
	for chunk := range chunks {
		if _, err := w.WriteString(chunk); err != nil {
			log.Warn("Failed to write chunk", zap.Error(err))
			cancel()
			break
		}
		if err := w.Flush(); err != nil {
			log.Info("Client disconnected during stream", zap.Error(err))
			cancel()
			break
		}
		sent++
	}
	return sent
}

func parseChatRequest(c *fiber.Ctx) (*dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Message is required")
	}
	return &req, nil
}
