package cli

import (
	"context"
	"errors"
	"fmt"

	"studybot/internal/repository"
	"studybot/internal/service"
	"studybot/pkg/config"
	"studybot/pkg/logger"

	"go.uber.org/zap"
)

// application holds the wired resolution pipeline shared by the commands.
type application struct {
	cfg         *config.Config
	logger      *zap.Logger
	repo        *repository.KnowledgeRepository
	matcher     *service.MatcherService
	chatService *service.ChatService
	closers     []func() error
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.Get(), nil
}

func newApplication(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: appLogger}

	app.repo = repository.NewKnowledgeRepository(cfg.Knowledge.Path, appLogger)

	chatModel, embedder := app.initProviders(ctx)

	matcher, err := service.NewMatcherService(app.repo, embedder, cfg.Match, appLogger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize matcher: %w", err)
	}
	app.matcher = matcher

	fallback := service.NewFallbackService(chatModel, appLogger)
	app.chatService = service.NewChatService(matcher, fallback, app.repo, appLogger)

	return app, nil
}

// initProviders builds the chat model and embedder for the configured
// provider. A missing credential leaves the corresponding capability unset.
func (a *application) initProviders(ctx context.Context) (service.ChatModel, service.Embedder) {
	var (
		chatModel service.ChatModel
		embedder  service.Embedder
	)

	openAI, err := service.NewLLMService(&a.cfg.OpenAI, a.logger)
	if err != nil {
		a.logProviderError("openai", err)
	} else {
		embedder = openAI
		if a.cfg.LLM.Provider != "gigachat" {
			chatModel = openAI
		}
	}

	if a.cfg.LLM.Provider == "gigachat" {
		giga, err := service.NewGigaChatService(ctx, &a.cfg.GigaChat, a.logger)
		if err != nil {
			a.logProviderError("gigachat", err)
		} else {
			chatModel = giga
			a.closers = append(a.closers, giga.Close)
		}
	}

	if chatModel == nil {
		a.logger.Warn("No chat model configured, fallback answers are offline")
	} else {
		a.logger.Info("Chat model ready", zap.String("provider", chatModel.Name()))
	}
	if embedder == nil {
		a.logger.Info("Embedding match disabled")
	}

	return chatModel, embedder
}

func (a *application) logProviderError(provider string, err error) {
	if errors.Is(err, service.ErrMissingAPIKey) {
		a.logger.Info("Provider credential not set", zap.String("provider", provider))
		return
	}
	a.logger.Error("Failed to initialize provider", zap.String("provider", provider), zap.Error(err))
}

func (a *application) Close() {
	if a.matcher != nil {
		a.matcher.Close()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Failed to close provider", zap.Error(err))
		}
	}
}
