package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// QdrantIndex is a minimal REST client to a Qdrant collection, one collection
// per session index generation. Assumes cosine distance.
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	dimensions int
	size       int
	client     *http.Client
}

// QdrantConfig configures the Qdrant adapter.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewQdrantIndex creates the collection if missing and returns an adapter for it.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, collection string, dimensions int) (*QdrantIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	q := &QdrantIndex{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
	}
	if err := q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return q, nil
}

// Add upserts vectors keyed by chunk ID.
func (q *QdrantIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	points := make([]map[string]any, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != q.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), q.dimensions)
		}
		points[i] = map[string]any{
			"id":      i,
			"vector":  vectors[i],
			"payload": map[string]any{"chunk_id": id},
		}
	}
	err := q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", q.collection),
		map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	q.size += len(ids)
	return nil
}

// Search returns the top-k hits by cosine similarity.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != q.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{"vector": query, "limit": k, "with_payload": true}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", q.collection), req, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload["chunk_id"].(string)
		if id == "" {
			continue
		}
		out = append(out, &Result{ID: id, Score: r.Score})
	}
	return out, nil
}

// Size returns the number of vectors upserted through this adapter.
func (q *QdrantIndex) Size() int { return q.size }

// Close drops the collection so a replaced generation leaves nothing behind.
func (q *QdrantIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return q.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", q.collection), nil, nil)
}

func (q *QdrantIndex) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
