// Package llm wraps the OpenAI API behind the two calls the pipeline needs:
// batch embeddings for index builds and chat completions for answer synthesis.
package llm

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	openai "github.com/sashabaranov/go-openai"
)

// Options configures the client. BaseURL is overridable for tests and
// OpenAI-compatible gateways.
type Options struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	QueryCacheSize int
}

// Client is a thin OpenAI wrapper with an LRU over query embeddings, so
// repeated questions skip the embeddings endpoint entirely.
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel string
	temperature    float32
	maxTokens      int
	queryCache     *lru.Cache[string, []float32]
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm api key required")
	}
	if opts.ChatModel == "" {
		opts.ChatModel = openai.GPT4oMini
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 600
	}
	if opts.QueryCacheSize <= 0 {
		opts.QueryCacheSize = 512
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cache, err := lru.New[string, []float32](opts.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return &Client{
		api:            openai.NewClientWithConfig(cfg),
		chatModel:      opts.ChatModel,
		embeddingModel: opts.EmbeddingModel,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
		queryCache:     cache,
	}, nil
}

// EmbeddingModelName reports which model produced the vectors; index
// snapshots persist it so a model change invalidates old snapshots.
func (c *Client) EmbeddingModelName() string { return c.embeddingModel }

// Embed turns texts into vectors in one API call. Callers batch; this does not.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// EmbedQuery embeds one query string through the LRU.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.queryCache.Get(text); ok {
		return v, nil
	}
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	c.queryCache.Add(text, vecs[0])
	return vecs[0], nil
}

// Complete runs one grounded chat completion.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
