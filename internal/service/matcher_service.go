package service

import (
	"context"
	"fmt"
	"strings"

	"studybot/internal/models"
	"studybot/internal/repository"
	"studybot/pkg/config"
	"studybot/pkg/textnorm"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

type MatchStage string

const (
	StageExact     MatchStage = "exact"
	StageSubstring MatchStage = "substring"
	StageFuzzy     MatchStage = "fuzzy"
	StageEmbedding MatchStage = "embedding"
)

// MatchResult is a local knowledge base hit.
type MatchResult struct {
	Response string
	Stage    MatchStage
	Keyword  string  // matched keyword; empty for embedding hits
	Score    float64 // blended score for fuzzy, cosine similarity for embedding
}

// MatcherService looks a question up in the local knowledge base with a
// cascade of exact, substring, fuzzy and embedding matching.
type MatcherService struct {
	repo       *repository.KnowledgeRepository
	embedder   Embedder
	queryCache *ristretto.Cache
	config     config.MatchConfig
	logger     *zap.Logger
}

// NewMatcherService creates a matcher. embedder may be nil, which disables
// the embedding stage.
func NewMatcherService(
	repo *repository.KnowledgeRepository,
	embedder Embedder,
	cfg config.MatchConfig,
	logger *zap.Logger,
) (*MatcherService, error) {
	s := &MatcherService{
		repo:     repo,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}

	if embedder != nil && cfg.QueryCacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cfg.QueryCacheSize * 10,
			MaxCost:     cfg.QueryCacheSize,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create query embedding cache: %w", err)
		}
		s.queryCache = cache
	}

	return s, nil
}

// Match runs the matching cascade against the current knowledge base and
// returns the first hit in stage priority order.
func (s *MatcherService) Match(ctx context.Context, rawInput string) (MatchResult, bool) {
	snap := s.repo.EnsureLoaded()
	input := textnorm.Normalize(rawInput)

	s.logger.Debug("Searching local knowledge base", zap.String("query", input))

	stages := []func() (MatchResult, bool){
		func() (MatchResult, bool) { return matchExact(snap.Entries, input) },
		func() (MatchResult, bool) { return matchSubstring(snap.Entries, input) },
		func() (MatchResult, bool) { return s.matchFuzzy(snap.Entries, input) },
		func() (MatchResult, bool) { return s.matchEmbedding(ctx, snap, input) },
	}

	for _, stage := range stages {
		if res, ok := stage(); ok {
			s.logger.Info("Local match found",
				zap.String("stage", string(res.Stage)),
				zap.String("keyword", res.Keyword),
				zap.Float64("score", res.Score),
			)
			return res, true
		}
	}

	return MatchResult{}, false
}

func matchExact(entries []models.KnowledgeEntry, input string) (MatchResult, bool) {
	for _, entry := range entries {
		if entry.Response == "" {
			continue
		}
		for _, keyword := range entry.Keywords {
			kw := textnorm.Normalize(keyword)
			if kw != "" && kw == input {
				return MatchResult{Response: entry.Response, Stage: StageExact, Keyword: keyword, Score: 1}, true
			}
		}
	}
	return MatchResult{}, false
}

func matchSubstring(entries []models.KnowledgeEntry, input string) (MatchResult, bool) {
	for _, entry := range entries {
		if entry.Response == "" {
			continue
		}
		for _, keyword := range entry.Keywords {
			kw := textnorm.Normalize(keyword)
			if kw != "" && strings.Contains(input, kw) {
				return MatchResult{Response: entry.Response, Stage: StageSubstring, Keyword: keyword, Score: 1}, true
			}
		}
	}
	return MatchResult{}, false
}

func (s *MatcherService) matchFuzzy(entries []models.KnowledgeEntry, input string) (res MatchResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Fuzzy matching failed", zap.Any("panic", r))
			res, ok = MatchResult{}, false
		}
	}()

	inputTokens := textnorm.Tokens(input)
	var best MatchResult
	for _, entry := range entries {
		if entry.Response == "" {
			continue
		}
		for _, keyword := range entry.Keywords {
			kw := textnorm.Normalize(keyword)
			if kw == "" {
				continue
			}
			score := s.config.SequenceWeight*sequenceRatio(kw, input) +
				s.config.TokenWeight*jaccard(textnorm.Tokens(kw), inputTokens)
			if score > best.Score {
				best = MatchResult{Response: entry.Response, Stage: StageFuzzy, Keyword: keyword, Score: score}
			}
		}
	}

	if best.Response == "" || best.Score < s.config.FuzzyThreshold {
		s.logger.Debug("No fuzzy match", zap.Float64("best_score", best.Score))
		return MatchResult{}, false
	}
	return best, true
}

func (s *MatcherService) matchEmbedding(ctx context.Context, snap *repository.Snapshot, input string) (MatchResult, bool) {
	if s.embedder == nil {
		s.logger.Debug("Embedding match disabled, no embedding provider configured")
		return MatchResult{}, false
	}
	if input == "" || len(snap.Entries) == 0 {
		return MatchResult{}, false
	}

	vectors, err := snap.Embeddings(ctx, s.embedder.Embed)
	if err != nil {
		s.logger.Warn("Embedding matching failed", zap.Error(err))
		return MatchResult{}, false
	}

	query, err := s.queryEmbedding(ctx, input)
	if err != nil {
		s.logger.Warn("Embedding matching failed", zap.Error(err))
		return MatchResult{}, false
	}

	bestIdx, bestScore := -1, 0.0
	for i, vec := range vectors {
		if sim := cosineSimilarity(query, vec); sim > bestScore {
			bestIdx, bestScore = i, sim
		}
	}

	if bestIdx < 0 || bestScore < s.config.EmbeddingThreshold || snap.Entries[bestIdx].Response == "" {
		s.logger.Debug("No embedding match", zap.Float64("best_score", bestScore))
		return MatchResult{}, false
	}

	return MatchResult{Response: snap.Entries[bestIdx].Response, Stage: StageEmbedding, Score: bestScore}, true
}

func (s *MatcherService) queryEmbedding(ctx context.Context, input string) ([]float32, error) {
	if s.queryCache != nil {
		if v, ok := s.queryCache.Get(input); ok {
			if vec, ok := v.([]float32); ok {
				return vec, nil
			}
		}
	}

	vec, err := s.embedder.Embed(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if s.queryCache != nil {
		s.queryCache.Set(input, vec, 1)
	}
	return vec, nil
}

// Close releases the query embedding cache.
func (s *MatcherService) Close() {
	if s.queryCache != nil {
		s.queryCache.Close()
	}
}
