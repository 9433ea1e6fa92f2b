package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"studybot/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EmbedFunc turns text into a vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// generation identifies one version of the backing file.
type generation struct {
	exists  bool
	modTime time.Time
}

func (g generation) equal(o generation) bool {
	return g.exists == o.exists && g.modTime.Equal(o.modTime)
}

// Snapshot is an immutable view of the knowledge base for one file
// generation, together with the embeddings derived from it.
type Snapshot struct {
	Entries []models.KnowledgeEntry

	gen generation

	vecMu   sync.Mutex
	vectors [][]float32
}

// Embeddings returns one vector per entry, computing them on first use.
// Vectors are kept only when every entry was embedded successfully.
func (s *Snapshot) Embeddings(ctx context.Context, embed EmbedFunc) ([][]float32, error) {
	s.vecMu.Lock()
	defer s.vecMu.Unlock()

	if s.vectors != nil {
		return s.vectors, nil
	}

	vectors := make([][]float32, 0, len(s.Entries))
	for i, entry := range s.Entries {
		vec, err := embed(ctx, entry.EmbeddingText())
		if err != nil {
			return nil, fmt.Errorf("failed to embed entry %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	s.vectors = vectors
	return vectors, nil
}

// KnowledgeRepository serves the knowledge base from a JSON or YAML file and
// reloads it whenever the file modification time changes.
type KnowledgeRepository struct {
	path    string
	logger  *zap.Logger
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	reloads atomic.Int64
}

func NewKnowledgeRepository(path string, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file location.
func (r *KnowledgeRepository) Path() string {
	return r.path
}

// EnsureLoaded reloads the knowledge base if the backing file changed since
// the last load and returns the current snapshot. It never fails: a missing
// or malformed file yields an empty knowledge base.
func (r *KnowledgeRepository) EnsureLoaded() *Snapshot {
	gen := r.stat()
	if cur := r.current.Load(); cur != nil && cur.gen.equal(gen) {
		return cur
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := r.current.Load(); cur != nil && cur.gen.equal(gen) {
		return cur
	}

	snap := &Snapshot{
		Entries: r.read(gen),
		gen:     gen,
	}
	r.current.Store(snap)
	r.reloads.Add(1)

	r.logger.Info("Knowledge base loaded",
		zap.String("path", r.path),
		zap.Int("entries", len(snap.Entries)),
		zap.Bool("file_exists", gen.exists),
	)

	return snap
}

// Status reports diagnostics about the loaded knowledge base.
func (r *KnowledgeRepository) Status() models.KnowledgeStatus {
	snap := r.EnsureLoaded()

	status := models.KnowledgeStatus{
		EntriesCount: len(snap.Entries),
		Source:       r.path,
		Reloads:      r.reloads.Load(),
	}
	if snap.gen.exists {
		mtime := float64(snap.gen.modTime.UnixNano()) / float64(time.Second)
		status.MTime = &mtime
	}
	return status
}

func (r *KnowledgeRepository) stat() generation {
	info, err := os.Stat(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Failed to stat knowledge base", zap.String("path", r.path), zap.Error(err))
		}
		return generation{}
	}
	return generation{exists: true, modTime: info.ModTime()}
}

func (r *KnowledgeRepository) read(gen generation) []models.KnowledgeEntry {
	if !gen.exists {
		r.logger.Warn("Knowledge base file not found, using empty knowledge base", zap.String("path", r.path))
		return []models.KnowledgeEntry{}
	}

	entries, err := parseKnowledgeFile(r.path)
	if err != nil {
		r.logger.Error("Failed to load knowledge base, using empty knowledge base",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return []models.KnowledgeEntry{}
	}
	return entries
}

func parseKnowledgeFile(path string) ([]models.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}

	var entries []models.KnowledgeEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}

	if entries == nil {
		entries = []models.KnowledgeEntry{}
	}
	return entries, nil
}
