package llmservice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textlab/internal/config"
	"textlab/internal/models"
)

type echoGenerator struct{ id string }

func (g echoGenerator) Generate(context.Context, string, GenerateOptions) ([]string, error) {
	return []string{g.id}, nil
}

func TestModelCache_ReusesLoadedModel(t *testing.T) {
	var calls atomic.Int32
	cache := NewModelCache(func(_ context.Context, id string) (Generator, error) {
		calls.Add(1)
		return echoGenerator{id: id}, nil
	})

	first, err := cache.Get(context.Background(), "m")
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), "m")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, cache.Loads())
	assert.Equal(t, 1, cache.Len())
}

func TestModelCache_ConcurrentFirstUse(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cache := NewModelCache(func(_ context.Context, id string) (Generator, error) {
		calls.Add(1)
		<-release
		return echoGenerator{id: id}, nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "shared")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestModelCache_DistinctKeys(t *testing.T) {
	cache := NewModelCache(func(_ context.Context, id string) (Generator, error) {
		return echoGenerator{id: id}, nil
	})

	a, err := cache.Get(context.Background(), "a")
	require.NoError(t, err)
	b, err := cache.Get(context.Background(), "b")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, cache.Len())
}

func TestModelCache_FailureNotCached(t *testing.T) {
	fail := true
	cache := NewModelCache(func(_ context.Context, id string) (Generator, error) {
		if fail {
			return nil, errors.New("weights missing")
		}
		return echoGenerator{id: id}, nil
	})

	_, err := cache.Get(context.Background(), "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrModelLoad)
	assert.Contains(t, err.Error(), "weights missing")
	assert.Zero(t, cache.Len())

	fail = false
	_, err = cache.Get(context.Background(), "m")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cache.Loads())
}

func TestConfigLoader(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Models = map[string]config.LLMConfig{"broken": {Provider: "nope"}}
	cache := NewModelCache(ConfigLoader(cfg))

	g, err := cache.Get(context.Background(), "tuner007/pegasus_paraphrase")
	require.NoError(t, err)
	assert.IsType(t, &Client{}, g)

	_, err = cache.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, models.ErrModelLoad)
}
