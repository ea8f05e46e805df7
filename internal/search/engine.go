package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/websearch"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Config tunes retrieval and fusion.
type Config struct {
	// Weights applied during hybrid fusion.
	Weights Weights
	// OverfetchFactor multiplies top_k for the per-signal candidate fetches in
	// hybrid mode, so fusion sees enough of each list.
	OverfetchFactor int
	// WebResults is how many web hits to request when web search is enabled.
	WebResults int
}

// Engine answers retrieval requests against session index generations.
// Sub-retrievals for one query run concurrently; a failed signal degrades the
// query with a warning instead of failing it, as long as another signal
// delivered candidates.
type Engine struct {
	store    *session.Store
	embedder llm.Embedder
	web      websearch.Searcher // nil when web search is not configured
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates an engine. web may be nil; web-enabled queries then
// degrade with a warning.
func NewEngine(store *session.Store, embedder llm.Embedder, web websearch.Searcher, cfg Config, logger *zap.Logger) *Engine {
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = 3
	}
	if cfg.WebResults <= 0 {
		cfg.WebResults = 5
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, embedder: embedder, web: web, cfg: cfg, logger: logger}
}

// Retrieval is the ranked candidate set for one query.
type Retrieval struct {
	// Results are the fused, ranked chunks, length <= top_k.
	Results []*models.ScoredChunk
	// Document is the indexed document the results were retrieved from.
	Document *models.Document
	// Warnings lists signals that failed while the query still answered.
	Warnings []string
}

// Retrieve runs the mode's sub-retrievals, optionally augments with web
// pseudo-chunks, and fuses the lists. Returns ErrSessionNotFound when the
// session has no index and ErrModeUnsupported is expected to have been
// rejected at the boundary already.
func (e *Engine) Retrieve(ctx context.Context, sessionID, query string, mode models.SearchMode, topK int, webEnabled bool) (*Retrieval, error) {
	switch mode {
	case models.ModeVector, models.ModeKeyword, models.ModeHybrid:
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrModeUnsupported, mode)
	}

	gen, err := e.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	wantVector := mode == models.ModeVector || mode == models.ModeHybrid
	wantKeyword := mode == models.ModeKeyword || mode == models.ModeHybrid
	fetch := topK
	if mode == models.ModeHybrid {
		fetch = topK * e.cfg.OverfetchFactor
	}

	var (
		wg          sync.WaitGroup
		vectorList  []models.RetrievalResult
		keywordList []models.RetrievalResult
		webList     []models.RetrievalResult
		vectorErr   error
		keywordErr  error
		webErr      error
		webChunks   map[string]*models.Chunk
	)

	if wantVector {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorList, vectorErr = e.vectorRetrieve(ctx, gen, query, fetch)
		}()
	}
	if wantKeyword {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywordList, keywordErr = e.keywordRetrieve(ctx, gen, query, fetch)
		}()
	}
	if webEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			webList, webChunks, webErr = e.webRetrieve(ctx, query)
		}()
	}
	wg.Wait()

	var warnings []string
	if wantVector && vectorErr != nil {
		warnings = append(warnings, fmt.Sprintf("vector retrieval failed: %v", vectorErr))
		e.logger.Warn("vector retrieval failed", zap.String("session_id", sessionID), zap.Error(vectorErr))
	}
	if wantKeyword && keywordErr != nil {
		warnings = append(warnings, fmt.Sprintf("keyword retrieval failed: %v", keywordErr))
		e.logger.Warn("keyword retrieval failed", zap.String("session_id", sessionID), zap.Error(keywordErr))
	}
	if webEnabled && webErr != nil {
		warnings = append(warnings, fmt.Sprintf("web search failed: %v", webErr))
		e.logger.Warn("web search failed", zap.String("session_id", sessionID), zap.Error(webErr))
	}

	docFailed := (!wantVector || vectorErr != nil) && (!wantKeyword || keywordErr != nil)
	webUsable := webEnabled && webErr == nil && len(webList) > 0
	if docFailed && !webUsable {
		err := vectorErr
		if err == nil {
			err = keywordErr
		}
		return nil, fmt.Errorf("all retrieval signals failed: %w", err)
	}

	// Single-signal queries without web augmentation return the index's own
	// scores untouched; fusion only applies when lists compete.
	if mode != models.ModeHybrid && !webUsable {
		raw := vectorList
		if mode == models.ModeKeyword {
			raw = keywordList
		}
		if len(raw) > topK {
			raw = raw[:topK]
		}
		results := make([]*models.ScoredChunk, 0, len(raw))
		for _, r := range raw {
			chunk, ok := gen.Chunk(r.ChunkID)
			if !ok {
				continue
			}
			sc := &models.ScoredChunk{Chunk: chunk, Score: r.Score}
			if mode == models.ModeVector {
				sc.VectorScore = r.Score
			} else {
				sc.KeywordScore = r.Score
			}
			results = append(results, sc)
		}
		e.logger.Debug("retrieval complete",
			zap.String("session_id", sessionID),
			zap.String("query", utils.Truncate(query, 80)),
			zap.String("mode", string(mode)),
			zap.Int("results", len(results)),
		)
		return &Retrieval{Results: results, Document: gen.Document, Warnings: warnings}, nil
	}

	fused := Fuse(vectorList, keywordList, webList, e.cfg.Weights, topK)
	results := make([]*models.ScoredChunk, 0, len(fused))
	for _, f := range fused {
		chunk, ok := gen.Chunk(f.ChunkID)
		if !ok {
			chunk, ok = webChunks[f.ChunkID]
		}
		if !ok {
			continue
		}
		results = append(results, &models.ScoredChunk{
			Chunk:        chunk,
			Score:        f.Score,
			VectorScore:  f.VectorScore,
			KeywordScore: f.KeywordScore,
			WebScore:     f.WebScore,
		})
	}
	e.logger.Debug("retrieval complete",
		zap.String("session_id", sessionID),
		zap.String("query", utils.Truncate(query, 80)),
		zap.String("mode", string(mode)),
		zap.Int("results", len(results)),
	)
	return &Retrieval{Results: results, Document: gen.Document, Warnings: warnings}, nil
}

func (e *Engine) vectorRetrieve(ctx context.Context, gen *session.Generation, query string, k int) ([]models.RetrievalResult, error) {
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := gen.Vector.Search(ctx, qv, k)
	if err != nil {
		return nil, err
	}
	out := make([]models.RetrievalResult, len(hits))
	for i, h := range hits {
		out[i] = models.RetrievalResult{ChunkID: h.ID, Score: h.Score, Origin: models.OriginVector}
	}
	return out, nil
}

func (e *Engine) keywordRetrieve(ctx context.Context, gen *session.Generation, query string, k int) ([]models.RetrievalResult, error) {
	hits, err := gen.Keyword.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]models.RetrievalResult, len(hits))
	for i, h := range hits {
		out[i] = models.RetrievalResult{ChunkID: h.ID, Score: h.Score, Origin: models.OriginKeyword}
	}
	return out, nil
}

// webRetrieve maps web hits to pseudo-chunks that compete in fusion like any
// document chunk. Scores are rank-derived since providers return an ordered
// list without scores.
func (e *Engine) webRetrieve(ctx context.Context, query string) ([]models.RetrievalResult, map[string]*models.Chunk, error) {
	if e.web == nil {
		return nil, nil, fmt.Errorf("web search not configured")
	}
	hits, err := e.web.Search(ctx, query, e.cfg.WebResults)
	if err != nil {
		return nil, nil, err
	}
	list := make([]models.RetrievalResult, 0, len(hits))
	chunks := make(map[string]*models.Chunk, len(hits))
	for i, h := range hits {
		id := fmt.Sprintf("web_%04d", i)
		chunks[id] = &models.Chunk{
			ID:        id,
			Text:      h.Title + "\n" + h.Snippet,
			SourceURL: h.URL,
			Index:     i,
		}
		list = append(list, models.RetrievalResult{
			ChunkID: id,
			Score:   float64(len(hits) - i),
			Origin:  models.OriginWeb,
		})
	}
	return list, chunks, nil
}
