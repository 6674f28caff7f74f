package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"textlab/internal/config"
	"textlab/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	// tokensPerWord converts word bounds into a token budget.
	tokensPerWord = 2
	// beamSeed is the base seed for deterministic candidates.
	beamSeed = 42
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// GenerateOptions are the planner's parameters for one generation call.
// Lengths are in words.
type GenerateOptions struct {
	MinLength     int
	MaxLength     int
	NumCandidates int
	Temperature   float64
	TopP          float64
	Deterministic bool
}

// Generator turns a prompt into one or more candidate texts.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) ([]string, error)
}

// Client is a Generator backed by a langchaingo model.
type Client struct {
	llm   llms.Model
	model string
}

func NewClient(llm llms.Model, model string) *Client {
	return &Client{llm: llm, model: model}
}

// NewModel builds the langchaingo backend described by cfg.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating LLM client")
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case ProviderOllama, "":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Generate asks the model for opts.NumCandidates completions. Backends that
// return fewer choices than requested are called again until enough
// non-empty candidates exist.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) ([]string, error) {
	n := max(opts.NumCandidates, 1)
	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	log.Debug().Str("model", c.model).Int("candidates", n).Int("min_length", opts.MinLength).
		Int("max_length", opts.MaxLength).Bool("deterministic", opts.Deterministic).Msg("Generating content")

	var out []string
	for attempt := 0; len(out) < n && attempt < 2*n; attempt++ {
		want := n - len(out)
		resp, err := c.llm.GenerateContent(ctx, messages, c.callOptions(opts, want, attempt)...)
		if err != nil {
			return nil, classify(err)
		}
		for _, choice := range resp.Choices {
			if text := Clean(choice.Content); text != "" && len(out) < n {
				out = append(out, text)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("model returned no content")
	}
	return out, nil
}

func (c *Client) callOptions(opts GenerateOptions, n, attempt int) []llms.CallOption {
	callOpts := []llms.CallOption{llms.WithN(n)}
	if opts.MaxLength > 0 {
		callOpts = append(callOpts,
			llms.WithMaxTokens(opts.MaxLength*tokensPerWord),
			llms.WithMaxLength(opts.MaxLength),
			llms.WithMinLength(opts.MinLength),
		)
	}
	if opts.Deterministic {
		callOpts = append(callOpts, llms.WithTemperature(0), llms.WithSeed(beamSeed+attempt))
	} else {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
		if opts.TopP > 0 {
			callOpts = append(callOpts, llms.WithTopP(opts.TopP))
		}
	}
	return callOpts
}

// Clean strips reasoning blocks and surrounding whitespace from a completion.
func Clean(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}

// classify marks transport failures as connectivity errors. Context
// cancellation and deadlines are returned unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host") {
		return fmt.Errorf("%w: %w", models.ErrConnectivity, err)
	}
	return err
}
