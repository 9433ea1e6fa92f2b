package service

import (
	"context"
	"iter"

	"studybot/internal/models"
	"studybot/internal/repository"

	"go.uber.org/zap"
)

const NotUnderstoodMessage = "Desculpe, não consegui entender sua pergunta. Pode tentar reformulá-la?"

// ChatService answers a question from the local knowledge base first and
// falls back to the chat model.
type ChatService struct {
	matcher  *MatcherService
	fallback *FallbackService
	repo     *repository.KnowledgeRepository
	logger   *zap.Logger
}

func NewChatService(
	matcher *MatcherService,
	fallback *FallbackService,
	repo *repository.KnowledgeRepository,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		matcher:  matcher,
		fallback: fallback,
		repo:     repo,
		logger:   logger,
	}
}

// Resolve returns the full answer for a question.
func (s *ChatService) Resolve(ctx context.Context, input string, history []models.ConversationTurn, mode models.Mode) string {
	if res, ok := s.matcher.Match(ctx, input); ok {
		return res.Response
	}

	if answer := s.fallback.Respond(ctx, input, history, mode); answer != "" {
		return answer
	}

	s.logger.Warn("Chat model returned empty answer")
	return NotUnderstoodMessage
}

// ResolveStream returns the answer as a sequence of chunks. A local answer is
// delivered as a single chunk without contacting the chat model.
func (s *ChatService) ResolveStream(ctx context.Context, input string, history []models.ConversationTurn, mode models.Mode) iter.Seq[string] {
	return func(yield func(string) bool) {
		if res, ok := s.matcher.Match(ctx, input); ok {
			yield(res.Response)
			return
		}
		for chunk := range s.fallback.Stream(ctx, input, history, mode) {
			if !yield(chunk) {
				return
			}
		}
	}
}

// Status reports the knowledge base diagnostics.
func (s *ChatService) Status() models.KnowledgeStatus {
	return s.repo.Status()
}
