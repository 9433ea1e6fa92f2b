package service

import (
	"context"
	"errors"
	"fmt"

	"studybot/internal/models"
	"studybot/pkg/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrMissingAPIKey = errors.New("API key is required")

// ChatModel generates assistant replies, either in one piece or as a stream
// of text deltas.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, req models.ChatRequest) (string, error)
	Stream(ctx context.Context, req models.ChatRequest) (ChatStream, error)
}

// ChatStream yields text deltas. Recv returns io.EOF once the provider has
// finished. Close must always be called.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// Embedder converts text to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMService talks to an OpenAI compatible API for chat completions and
// embeddings.
type LLMService struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	logger         *zap.Logger
}

func NewLLMService(cfg *config.OpenAIConfig, logger *zap.Logger) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}

	logger.Info("Using OpenAI models",
		zap.String("chat_model", chatModel),
		zap.String("embedding_model", embeddingModel),
	)

	return &LLMService{
		client:         openai.NewClientWithConfig(clientConfig),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		logger:         logger,
	}, nil
}

func (s *LLMService) Name() string {
	return "openai"
}

func (s *LLMService) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.buildRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	s.logger.Debug("OpenAI completion finished",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func (s *LLMService) Stream(ctx context.Context, req models.ChatRequest) (ChatStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, s.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

func (s *LLMService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (s *LLMService) buildRequest(req models.ChatRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       s.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		// usage-only and keep-alive frames carry no choices
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
