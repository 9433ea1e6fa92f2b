package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"studybot/internal/api"
	"studybot/internal/api/handlers"
	"studybot/internal/dto"
	"studybot/internal/models"
	"studybot/internal/repository"
	"studybot/internal/service"
	"studybot/pkg/config"
)

type stubModel struct {
	reply    string
	chunks   []string
	requests []models.ChatRequest
}

func (m *stubModel) Name() string { return "stub" }

func (m *stubModel) Complete(_ context.Context, req models.ChatRequest) (string, error) {
	m.requests = append(m.requests, req)
	return m.reply, nil
}

func (m *stubModel) Stream(_ context.Context, req models.ChatRequest) (service.ChatStream, error) {
	m.requests = append(m.requests, req)
	return &stubStream{chunks: m.chunks}, nil
}

type stubStream struct {
	chunks []string
}

func (s *stubStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *stubStream) Close() error { return nil }

func newTestApp(t *testing.T, kbPath string, model service.ChatModel) *fiber.App {
	t.Helper()
	logger := zap.NewNop()

	repo := repository.NewKnowledgeRepository(kbPath, logger)
	matcher, err := service.NewMatcherService(repo, nil, config.DefaultMatchConfig(), logger)
	gt.NoError(t, err)
	t.Cleanup(matcher.Close)

	chatService := service.NewChatService(matcher, service.NewFallbackService(model, logger), repo, logger)
	return api.SetupRouter(
		handlers.NewChatHandler(chatService, logger),
		handlers.NewKnowledgeHandler(chatService, logger),
		config.ServerConfig{},
		logger,
	)
}

func writeKB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatbot.json")
	data := `[{"keywords": ["python", "py"], "response": "Python é uma linguagem de programação."}]`
	gt.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	gt.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	return resp, string(raw)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	resp, body := doRequest(t, app, http.MethodGet, "/api", "")
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var health dto.HealthResponse
	gt.NoError(t, json.Unmarshal([]byte(body), &health))
	gt.Equal(t, health.Status, "ok")
	gt.S(t, health.Message).Contains("funcionando")
}

func TestChat_LocalAnswer(t *testing.T) {
	model := &stubModel{reply: "remote"}
	app := newTestApp(t, writeKB(t), model)

	resp, body := doRequest(t, app, http.MethodPost, "/api/chat", `{"message": "Python?"}`)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.True(t, resp.Header.Get("X-Request-ID") != "")

	var out dto.ChatResponse
	gt.NoError(t, json.Unmarshal([]byte(body), &out))
	gt.Equal(t, out.Response, "Python é uma linguagem de programação.")
	gt.A(t, model.requests).Length(0)
}

func TestChat_FallbackWithHistoryAndMode(t *testing.T) {
	model := &stubModel{reply: "Um ponteiro guarda um endereço de memória."}
	app := newTestApp(t, writeKB(t), model)

	payload := `{
		"message": "o que é um ponteiro",
		"history": [{"role": "user", "content": "oi"}, {"role": "assistant", "content": "olá"}],
		"mode": "Long"
	}`
	resp, body := doRequest(t, app, http.MethodPost, "/api/chat", payload)
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var out dto.ChatResponse
	gt.NoError(t, json.Unmarshal([]byte(body), &out))
	gt.Equal(t, out.Response, "Um ponteiro guarda um endereço de memória.")

	gt.A(t, model.requests).Length(1)
	gt.A(t, model.requests[0].Messages).Length(4)
	gt.Equal(t, model.requests[0].MaxTokens, 600)
}

func TestChat_Offline(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	_, body := doRequest(t, app, http.MethodPost, "/api/chat", `{"message": "o que é um ponteiro"}`)

	var out dto.ChatResponse
	gt.NoError(t, json.Unmarshal([]byte(body), &out))
	gt.Equal(t, out.Response, service.OfflineMessage)
}

func TestChat_BadRequests(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	for _, payload := range []string{`{"message": "   "}`, `{}`, `not json`} {
		resp, body := doRequest(t, app, http.MethodPost, "/api/chat", payload)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)

		var out dto.ErrorResponse
		gt.NoError(t, json.Unmarshal([]byte(body), &out))
		gt.True(t, out.Error != "")
	}
}

func TestChatStream_LocalAnswer(t *testing.T) {
	app := newTestApp(t, writeKB(t), &stubModel{chunks: []string{"remote"}})

	resp, body := doRequest(t, app, http.MethodPost, "/api/chat_stream", `{"message": "py"}`)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, resp.Header.Get("Content-Type")).Contains("text/plain")
	gt.Equal(t, body, "Python é uma linguagem de programação.")
}

func TestChatStream_ModelChunks(t *testing.T) {
	model := &stubModel{chunks: []string{"Um ", "ponteiro ", "", "aponta."}}
	app := newTestApp(t, writeKB(t), model)

	_, body := doRequest(t, app, http.MethodPost, "/api/chat_stream", `{"message": "o que é um ponteiro"}`)
	gt.Equal(t, body, "Um ponteiro aponta.")
	gt.A(t, model.requests).Length(1)
}

func TestChatStream_Offline(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	_, body := doRequest(t, app, http.MethodPost, "/api/chat_stream", `{"message": "o que é um ponteiro"}`)
	gt.Equal(t, body, service.StreamOfflineMessage)
}

func TestChatStream_BadRequest(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	resp, _ := doRequest(t, app, http.MethodPost, "/api/chat_stream", `{"message": ""}`)
	gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestKBStatus(t *testing.T) {
	path := writeKB(t)
	app := newTestApp(t, path, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/api/kb_status", "")
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var status models.KnowledgeStatus
	gt.NoError(t, json.Unmarshal([]byte(body), &status))
	gt.Equal(t, status.EntriesCount, 1)
	gt.Equal(t, status.Source, path)
	gt.True(t, status.MTime != nil)
}

func TestKBStatus_MissingFile(t *testing.T) {
	app := newTestApp(t, filepath.Join(t.TempDir(), "absent.json"), nil)

	_, body := doRequest(t, app, http.MethodGet, "/api/kb_status", "")

	var status models.KnowledgeStatus
	gt.NoError(t, json.Unmarshal([]byte(body), &status))
	gt.Equal(t, status.EntriesCount, 0)
	gt.True(t, status.MTime == nil)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, writeKB(t), nil)

	resp, body := doRequest(t, app, http.MethodGet, "/api/missing", "")
	gt.Equal(t, resp.StatusCode, http.StatusNotFound)
	gt.S(t, body).Contains("error")
}
