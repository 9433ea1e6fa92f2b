package service

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"studybot/internal/models"

	"go.uber.org/zap"
)

const (
	OfflineMessage       = "Desculpe, meu cérebro externo está offline no momento."
	StreamOfflineMessage = "Meu cérebro externo está offline no momento."
	ApologyMessage       = "Tive um problema temporário ao falar com o modelo de IA. Tente novamente em instantes."
	StreamFailureMessage = "[Falha temporária no streaming]"
)

// FallbackService asks the external chat model when the local knowledge base
// has no answer.
type FallbackService struct {
	model  ChatModel
	logger *zap.Logger
}

// NewFallbackService creates a fallback responder. model may be nil when no
// provider credential is configured; every call then answers offline.
func NewFallbackService(model ChatModel, logger *zap.Logger) *FallbackService {
	return &FallbackService{
		model:  model,
		logger: logger,
	}
}

// Enabled reports whether a chat model is configured.
func (s *FallbackService) Enabled() bool {
	return s.model != nil
}

// Respond returns the model's answer, or a fixed message when the model is
// unavailable or fails.
func (s *FallbackService) Respond(ctx context.Context, input string, history []models.ConversationTurn, mode models.Mode) string {
	if s.model == nil {
		s.logger.Warn("Chat model not configured, answering offline")
		return OfflineMessage
	}

	s.logger.Info("Querying chat model",
		zap.String("provider", s.model.Name()),
		zap.String("mode", string(mode)),
	)

	text, err := s.model.Complete(ctx, BuildChatRequest(input, history, mode))
	if err != nil {
		s.logger.Error("Chat model call failed", zap.String("provider", s.model.Name()), zap.Error(err))
		return ApologyMessage
	}

	return strings.TrimSpace(text)
}

// Stream yields the model's answer as it is generated. The sequence always
// terminates; failures end it with StreamFailureMessage.
func (s *FallbackService) Stream(ctx context.Context, input string, history []models.ConversationTurn, mode models.Mode) iter.Seq[string] {
	return func(yield func(string) bool) {
		if s.model == nil {
			s.logger.Warn("Chat model not configured, streaming offline message")
			yield(StreamOfflineMessage)
			return
		}

		s.logger.Info("Streaming from chat model",
			zap.String("provider", s.model.Name()),
			zap.String("mode", string(mode)),
		)

		stream, err := s.model.Stream(ctx, BuildChatRequest(input, history, mode))
		if err != nil {
			s.logger.Error("Streaming failed", zap.String("provider", s.model.Name()), zap.Error(err))
			yield(StreamFailureMessage)
			return
		}
		defer stream.Close()

		for {
			delta, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				s.logger.Error("Streaming failed", zap.String("provider", s.model.Name()), zap.Error(err))
				yield(StreamFailureMessage)
				return
			}
			if delta == "" {
				continue
			}
			if !yield(delta) {
				s.logger.Debug("Stream consumer stopped early")
				return
			}
		}
	}
}

// BuildChatRequest assembles the system prompt for mode, the recent history
// and the current question into a chat request.
func BuildChatRequest(input string, history []models.ConversationTurn, mode models.Mode) models.ChatRequest {
	gen := mode.Generation()

	if len(history) > models.MaxHistoryTurns {
		history = history[len(history)-models.MaxHistoryTurns:]
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: gen.SystemPrompt})
	for _, turn := range history {
		role := turn.Role
		if role == "" {
			role = models.RoleUser
		}
		if turn.Content == "" || (role != models.RoleUser && role != models.RoleAssistant) {
			continue
		}
		messages = append(messages, models.ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: input})

	return models.ChatRequest{
		Messages:    messages,
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
	}
}
