package service

import (
	"context"
	"fmt"
	"io"

	"studybot/internal/models"
	"studybot/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// GigaChatService generates replies with Sber GigaChat. It has no embedding
// endpoint, and streams by delivering the full completion as a single delta.
type GigaChatService struct {
	client    *gigago.Client
	modelName string
	logger    *zap.Logger
}

func NewGigaChatService(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatService, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, gigago.WithCustomURLAI(cfg.BaseURL))
	}
	if cfg.OAuthURL != "" {
		opts = append(opts, gigago.WithCustomURLOauth(cfg.OAuthURL))
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "GigaChat"
	}
	logger.Info("Using GigaChat model", zap.String("model", modelName))

	return &GigaChatService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *GigaChatService) Name() string {
	return "gigachat"
}

func (s *GigaChatService) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.Temperature = float64(req.Temperature)
	if req.MaxTokens > 0 {
		model.MaxTokens = int32(req.MaxTokens)
	}

	var messages []gigago.Message
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			model.SystemInstruction = m.Content
		case models.RoleAssistant:
			messages = append(messages, gigago.Message{Role: gigago.RoleAssistant, Content: m.Content})
		default:
			messages = append(messages, gigago.Message{Role: gigago.RoleUser, Content: m.Content})
		}
	}

	resp, err := model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *GigaChatService) Stream(ctx context.Context, req models.ChatRequest) (ChatStream, error) {
	text, err := s.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return &singleChunkStream{text: text}, nil
}

func (s *GigaChatService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// singleChunkStream delivers one precomputed delta and then io.EOF.
type singleChunkStream struct {
	text string
	sent bool
}

func (s *singleChunkStream) Recv() (string, error) {
	if s.sent {
		return "", io.EOF
	}
	s.sent = true
	return s.text, nil
}

func (s *singleChunkStream) Close() error {
	return nil
}
