package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"textlab/internal/config"
)

// MaxEmbedChars caps the text sent to the embedding model.
const MaxEmbedChars = 4000

// NewEmbedder creates an embedder for the openai or ollama backend in cfg.
func NewEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding LLM: %w", err)
		}
		client = llm
	case "ollama", "":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding LLM: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	return embeddings.NewEmbedder(client)
}

// Func adapts an embedder to chromem-go. Only the first MaxEmbedChars
// worth of words of a text are embedded.
func Func(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		chunks := chunkContent(text, MaxEmbedChars)
		if len(chunks) == 0 {
			return nil, errors.New("nothing to embed")
		}
		return e.EmbedQuery(ctx, chunks[0])
	}
}

func chunkContent(content string, maxChars int) []string {
	var chunks []string
	var chunk strings.Builder
	for _, word := range strings.Fields(content) {
		if chunk.Len() > 0 && chunk.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, strings.TrimSpace(chunk.String()))
			chunk.Reset()
		}
		chunk.WriteString(word + " ")
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(chunk.String()))
	}
	return chunks
}
