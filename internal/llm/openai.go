package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/kotae/pkg/utils"
)

// OpenAI implements Embedder and Generator against the OpenAI API.
type OpenAI struct {
	client     *openai.Client
	chatModel  string
	embedModel string
	dimensions int
}

// NewOpenAI creates a client for the given models. dimensions must match the
// embedding model's output size (1536 for text-embedding-3-small).
func NewOpenAI(apiKey, chatModel, embedModel string, dimensions int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &OpenAI{
		client:     openai.NewClient(apiKey),
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
	}, nil
}

// Embed returns the L2-normalized embedding for one text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call. Vectors are L2-normalized so inner
// product equals cosine similarity.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		utils.NormalizeL2(v)
		out[d.Index] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (o *OpenAI) Dimensions() int {
	return o.dimensions
}

// Generate runs a single chat completion over the prompt.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
