// Package session owns the per-session index generations. Each session holds
// at most one active generation (vector + keyword index over one document);
// uploads replace the generation atomically while in-flight readers finish
// against the snapshot they started with.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Generation is one immutable index build: the document, its chunks, and the
// two retrieval indexes over them. Never mutated after Put returns.
type Generation struct {
	Document *models.Document
	Chunks   []*models.Chunk
	Keyword  *keyword.Index
	Vector   vector.Index
	Strategy models.ChunkStrategy
	BuiltAt  time.Time

	byID map[string]*models.Chunk
}

// Chunk resolves a chunk ID within this generation.
func (g *Generation) Chunk(id string) (*models.Chunk, bool) {
	ch, ok := g.byID[id]
	return ch, ok
}

// Stats summarizes the generation for the upload response.
func (g *Generation) Stats(sessionID string) models.UploadStats {
	images := 0
	for _, p := range g.Document.Pages {
		images += len(p.Images)
	}
	return models.UploadStats{
		SessionID:  sessionID,
		DocumentID: g.Document.ID,
		Filename:   g.Document.Filename,
		Pages:      len(g.Document.Pages),
		Images:     images,
		Chunks:     len(g.Chunks),
		Strategy:   g.Strategy,
	}
}

// VectorFactory builds a fresh vector index for a new generation.
type VectorFactory func(ctx context.Context, sessionID string, dimensions int) (vector.Index, error)

// MemoryVectorFactory returns in-process brute-force indexes.
func MemoryVectorFactory() VectorFactory {
	return func(ctx context.Context, sessionID string, dimensions int) (vector.Index, error) {
		return vector.NewMemoryIndex(dimensions)
	}
}

// QdrantVectorFactory returns remote Qdrant-backed indexes, one collection
// per generation so replacement never mutates a live collection.
func QdrantVectorFactory(cfg vector.QdrantConfig) VectorFactory {
	return func(ctx context.Context, sessionID string, dimensions int) (vector.Index, error) {
		collection := fmt.Sprintf("kotae_%s_%d", sessionID, time.Now().UnixNano())
		return vector.NewQdrantIndex(ctx, cfg, collection, dimensions)
	}
}

type entry struct {
	// writeMu serializes Put and Clear for one session. Reads never take it.
	writeMu sync.Mutex
	// mu guards the generation pointer and lastUsed.
	mu       sync.RWMutex
	gen      *Generation
	lastUsed time.Time
}

// Store is the registry of session index generations.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*entry
	newVector  VectorFactory
	dimensions int
	closeDelay time.Duration
	logger     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for index lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCloseDelay sets how long a replaced generation's indexes stay open
// after the swap. Must outlive the request deadline so in-flight readers
// never search a closed index. Zero closes immediately.
func WithCloseDelay(d time.Duration) Option {
	return func(s *Store) { s.closeDelay = d }
}

// defaultCloseDelay keeps superseded generations open past the server's
// request timeout before their indexes are released.
const defaultCloseDelay = 3 * time.Minute

// NewStore creates a session store. dimensions is the embedding size enforced
// on every generation's vector index.
func NewStore(dimensions int, factory VectorFactory, opts ...Option) *Store {
	s := &Store{
		sessions:   make(map[string]*entry),
		newVector:  factory,
		dimensions: dimensions,
		closeDelay: defaultCloseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) entryFor(sessionID string, create bool) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[sessionID]; ok {
		return e
	}
	e = &entry{lastUsed: time.Now()}
	s.sessions[sessionID] = e
	return e
}

// Put builds a new generation off to the side and swaps it in, replacing any
// previous document for the session. Nothing is committed on failure: a
// chunk/embedding count mismatch or an index write error leaves the previous
// generation untouched.
func (s *Store) Put(ctx context.Context, sessionID string, doc *models.Document, strategy models.ChunkStrategy, chunks []*models.Chunk, embeddings [][]float32) (*Generation, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings", models.ErrIndexBuild, len(chunks), len(embeddings))
	}

	e := s.entryFor(sessionID, true)
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	kw, err := keyword.NewIndex(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexBuild, err)
	}
	vec, err := s.newVector(ctx, sessionID, s.dimensions)
	if err != nil {
		_ = kw.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrIndexBuild, err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := vec.Add(ctx, ids, embeddings); err != nil {
		_ = kw.Close()
		_ = vec.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrIndexBuild, err)
	}

	byID := make(map[string]*models.Chunk, len(chunks))
	for _, ch := range chunks {
		byID[ch.ID] = ch
	}
	gen := &Generation{
		Document: doc,
		Chunks:   chunks,
		Keyword:  kw,
		Vector:   vec,
		Strategy: strategy,
		BuiltAt:  time.Now(),
		byID:     byID,
	}

	e.mu.Lock()
	old := e.gen
	e.gen = gen
	e.lastUsed = time.Now()
	e.mu.Unlock()

	// Readers that snapshotted the old generation before the swap finish
	// against it; its indexes (and any remote collection) are released once
	// the close delay has passed.
	s.closeLater(old)

	if s.logger != nil {
		s.logger.Info("session index replaced",
			zap.String("session_id", sessionID),
			zap.String("doc_id", doc.ID),
			zap.Int("chunks", len(chunks)),
		)
	}
	return gen, nil
}

// Snapshot returns the session's current generation for a read. The caller
// keeps using the returned generation even if a concurrent upload swaps in a
// new one.
func (s *Store) Snapshot(sessionID string) (*Generation, error) {
	e := s.entryFor(sessionID, false)
	if e == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrSessionNotFound, sessionID)
	}
	e.mu.Lock()
	gen := e.gen
	e.lastUsed = time.Now()
	e.mu.Unlock()
	if gen == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrSessionNotFound, sessionID)
	}
	return gen, nil
}

// Clear resets the session to the empty state. Idempotent: clearing a missing
// session is a no-op.
func (s *Store) Clear(sessionID string) {
	e := s.entryFor(sessionID, false)
	if e == nil {
		return
	}
	e.writeMu.Lock()
	e.mu.Lock()
	gen := e.gen
	e.gen = nil
	e.mu.Unlock()
	e.writeMu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.closeLater(gen)
	if s.logger != nil {
		s.logger.Info("session cleared", zap.String("session_id", sessionID))
	}
}

// closeLater releases a superseded generation's indexes after the close
// delay, so a remote vector collection is dropped instead of orphaned.
func (s *Store) closeLater(gen *Generation) {
	if gen == nil {
		return
	}
	if s.closeDelay <= 0 {
		_ = gen.Keyword.Close()
		_ = gen.Vector.Close()
		return
	}
	time.AfterFunc(s.closeDelay, func() {
		_ = gen.Keyword.Close()
		_ = gen.Vector.Close()
	})
}

// PruneIdle clears sessions idle for longer than maxAge and reports how many
// were dropped.
func (s *Store) PruneIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.RLock()
	var stale []string
	for id, e := range s.sessions {
		e.mu.RLock()
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
		e.mu.RUnlock()
	}
	s.mu.RUnlock()
	for _, id := range stale {
		s.Clear(id)
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
