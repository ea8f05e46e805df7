package llm

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic embedder for tests. The same text always
// gets the same unit-length embedding.
type MockEmbedder struct {
	dimensions int
	// Err, when set, is returned by every call.
	Err error
}

// NewMockEmbedder returns a deterministic embedder of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	emb := make([]float32, e.dimensions)
	var sum float64
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed)*float64(i+1)) * 0.1)
		sum += float64(emb[i] * emb[i])
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// MockGenerator returns a canned answer, or Err when set.
type MockGenerator struct {
	Answer string
	Err    error
	// LastPrompt records the prompt from the most recent Generate call.
	LastPrompt string
}

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	g.LastPrompt = prompt
	if g.Answer == "" {
		return "mock answer", nil
	}
	return g.Answer, nil
}
