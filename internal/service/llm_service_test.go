package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"studybot/internal/models"
	"studybot/pkg/config"
)

func newTestLLMService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewLLMService(&config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, zap.NewNop())
	gt.NoError(t, err)
	return s
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(&config.OpenAIConfig{}, zap.NewNop())
	gt.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestLLMService_Complete(t *testing.T) {
	var body map[string]any
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": "  resposta  ", "role": "assistant"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	req := BuildChatRequest("o que é go", nil, models.ModeShort)
	got, err := s.Complete(context.Background(), req)
	gt.NoError(t, err)
	gt.Equal(t, got, "  resposta  ")

	gt.Equal(t, body["model"], any("gpt-4o-mini"))
	gt.Equal(t, body["max_tokens"], any(float64(300)))
	messages, ok := body["messages"].([]any)
	gt.True(t, ok)
	gt.A(t, messages).Length(2)
}

func TestLLMService_CompleteNoChoices(t *testing.T) {
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := s.Complete(context.Background(), BuildChatRequest("q", nil, models.ModeShort))
	gt.Error(t, err)
}

func TestLLMService_CompleteServerError(t *testing.T) {
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	})

	_, err := s.Complete(context.Background(), BuildChatRequest("q", nil, models.ModeShort))
	gt.Error(t, err)
}

func TestLLMService_Stream(t *testing.T) {
	var streamFlag any
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		streamFlag = body["stream"]

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(
			`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}` + "\n\n" +
				`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Olá"}}]}` + "\n\n" +
				`data: {"id":"1","object":"chat.completion.chunk","choices":[]}` + "\n\n" +
				`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" mundo"}}]}` + "\n\n" +
				"data: [DONE]\n\n",
		))
	})

	stream, err := s.Stream(context.Background(), BuildChatRequest("q", nil, models.ModeShort))
	gt.NoError(t, err)
	defer stream.Close()

	var deltas []string
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		gt.NoError(t, err)
		deltas = append(deltas, d)
	}

	gt.Equal(t, deltas, []string{"", "Olá", " mundo"})
	gt.Equal(t, streamFlag, any(true))
}

func TestLLMService_Embed(t *testing.T) {
	var body map[string]any
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.5, -0.25, 1]}],
			"model": "text-embedding-3-small"
		}`))
	})

	vec, err := s.Embed(context.Background(), "recursao")
	gt.NoError(t, err)
	gt.Equal(t, vec, []float32{0.5, -0.25, 1})
	gt.Equal(t, body["model"], any("text-embedding-3-small"))
}

func TestLLMService_EmbedEmpty(t *testing.T) {
	s := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "data": []}`))
	})

	_, err := s.Embed(context.Background(), "x")
	gt.Error(t, err)
}
