package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"studybot/internal/models"
	"studybot/internal/repository"
	"studybot/pkg/config"
)

// fakeEmbedder returns fixed vectors per text and records every call.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
	err     error
}

func newFakeEmbedder(vectors map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{vectors: vectors, calls: map[string]int{}}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[text]++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeEmbedder) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeChatModel records requests and replays canned output.
type fakeChatModel struct {
	reply     string
	err       error
	chunks    []string
	streamErr error // returned after all chunks were delivered
	openErr   error

	requests []models.ChatRequest
	streams  []*fakeStream
}

func (f *fakeChatModel) Name() string {
	return "fake"
}

func (f *fakeChatModel) Complete(_ context.Context, req models.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(_ context.Context, req models.ChatRequest) (ChatStream, error) {
	f.requests = append(f.requests, req)
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeStream{chunks: f.chunks, err: f.streamErr}
	f.streams = append(f.streams, s)
	return s, nil
}

type fakeStream struct {
	chunks []string
	err    error
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

var errProvider = errors.New("provider unavailable")

func writeEntries(t *testing.T, path string, entries []models.KnowledgeEntry, mtime time.Time) {
	t.Helper()
	data, err := json.Marshal(entries)
	gt.NoError(t, err)
	gt.NoError(t, os.WriteFile(path, data, 0600))
	gt.NoError(t, os.Chtimes(path, mtime, mtime))
}

func newTestRepo(t *testing.T, entries []models.KnowledgeEntry) (*repository.KnowledgeRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatbot.json")
	writeEntries(t, path, entries, time.Unix(1000, 0))
	return repository.NewKnowledgeRepository(path, zap.NewNop()), path
}

func newTestMatcher(t *testing.T, repo *repository.KnowledgeRepository, embedder Embedder) *MatcherService {
	t.Helper()
	m, err := NewMatcherService(repo, embedder, config.DefaultMatchConfig(), zap.NewNop())
	gt.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func collect(seq func(func(string) bool)) []string {
	var out []string
	for chunk := range seq {
		out = append(out, chunk)
	}
	return out
}
