package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"textlab/internal/config"
	"textlab/internal/models"
)

// stubModel returns one choice per call from a fixed script and records
// the options it was called with.
type stubModel struct {
	replies []string
	calls   []llms.CallOptions
	err     error
}

func (m *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.calls = append(m.calls, opts)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return &llms.ContentResponse{}, nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestClient_GenerateLoopsUntilEnoughCandidates(t *testing.T) {
	m := &stubModel{replies: []string{"one", "<think>hmm</think> two ", "three", "four"}}
	c := NewClient(m, "stub")

	out, err := c.Generate(context.Background(), "p", GenerateOptions{
		MinLength: 10, MaxLength: 30, NumCandidates: 3, Temperature: 1.2, TopP: 0.92,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, out)

	require.Len(t, m.calls, 3)
	first := m.calls[0]
	assert.Equal(t, 3, first.N)
	assert.Equal(t, 60, first.MaxTokens)
	assert.Equal(t, 10, first.MinLength)
	assert.InDelta(t, 1.2, first.Temperature, 1e-9)
	assert.InDelta(t, 0.92, first.TopP, 1e-9)
	assert.Equal(t, 2, m.calls[1].N)
	assert.Equal(t, 1, m.calls[2].N)
}

func TestClient_GenerateDeterministic(t *testing.T) {
	m := &stubModel{replies: []string{"summary"}}
	c := NewClient(m, "stub")

	out, err := c.Generate(context.Background(), "p", GenerateOptions{MaxLength: 50, Temperature: 1.5, Deterministic: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"summary"}, out)
	assert.Zero(t, m.calls[0].Temperature)
	assert.Equal(t, beamSeed, m.calls[0].Seed)
}

func TestClient_GenerateEmpty(t *testing.T) {
	c := NewClient(&stubModel{replies: []string{"  ", "<think>only thoughts</think>"}}, "stub")

	_, err := c.Generate(context.Background(), "p", GenerateOptions{NumCandidates: 1})
	require.Error(t, err)
}

func TestClient_GenerateConnectivity(t *testing.T) {
	opErr := &netOpError{}
	c := NewClient(&stubModel{err: fmt.Errorf("send request: %w", opErr)}, "stub")

	_, err := c.Generate(context.Background(), "p", GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConnectivity)

	c = NewClient(&stubModel{err: context.DeadlineExceeded}, "stub")
	_, err = c.Generate(context.Background(), "p", GenerateOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, models.ErrConnectivity)
}

type netOpError struct{}

func (*netOpError) Error() string   { return "dial tcp 127.0.0.1:1: connect: connection refused" }
func (*netOpError) Timeout() bool   { return false }
func (*netOpError) Temporary() bool { return false }

func TestClean(t *testing.T) {
	assert.Equal(t, "answer", Clean("<think>\nlong\nreasoning\n</think>\n answer "))
	assert.Equal(t, "plain", Clean("plain"))
}

func TestNewModel_UnknownProvider(t *testing.T) {
	_, err := NewModel(config.LLMConfig{Provider: "carrier-pigeon", Model: "x"})
	require.Error(t, err)
}

func TestClient_OpenAIBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "test",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "first"}, "finish_reason": "stop"},
				{"index": 1, "message": {"role": "assistant", "content": "second"}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
		}`))
	}))
	defer srv.Close()

	llm, err := NewModel(config.LLMConfig{Provider: ProviderOpenAI, BaseURL: srv.URL, Key: "Bearer secret", Model: "test"})
	require.NoError(t, err)

	out, err := NewClient(llm, "test").Generate(context.Background(), "p", GenerateOptions{NumCandidates: 2, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, out)
}

func TestClient_OpenAIBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	llm, err := NewModel(config.LLMConfig{Provider: ProviderOpenAI, BaseURL: url, Key: "k", Model: "test"})
	require.NoError(t, err)

	_, err = NewClient(llm, "test").Generate(context.Background(), "p", GenerateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConnectivity), "got %v", err)
}
