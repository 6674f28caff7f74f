package llmservice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"textlab/internal/config"
	"textlab/internal/models"
)

// Loader constructs the Generator for a model identifier.
type Loader func(ctx context.Context, modelID string) (Generator, error)

// ModelCache holds one Generator per model identifier. The first request
// for an identifier loads it; concurrent first requests share that single
// load. Failed loads are not cached. Entries are never evicted.
type ModelCache struct {
	load  Loader
	group singleflight.Group
	loads atomic.Int64

	mu     sync.RWMutex
	models map[string]Generator
}

func NewModelCache(load Loader) *ModelCache {
	return &ModelCache{load: load, models: make(map[string]Generator)}
}

// ConfigLoader builds langchaingo clients from the backends in cfg.
func ConfigLoader(cfg *config.Config) Loader {
	return func(_ context.Context, modelID string) (Generator, error) {
		llmCfg := cfg.ModelConfig(modelID)
		llm, err := NewModel(llmCfg)
		if err != nil {
			return nil, err
		}
		return NewClient(llm, llmCfg.Model), nil
	}
}

// Get returns the cached Generator for modelID, loading it on first use.
// Load failures wrap models.ErrModelLoad.
func (c *ModelCache) Get(ctx context.Context, modelID string) (Generator, error) {
	if g, ok := c.lookup(modelID); ok {
		return g, nil
	}

	v, err, shared := c.group.Do(modelID, func() (any, error) {
		if g, ok := c.lookup(modelID); ok {
			return g, nil
		}
		c.loads.Add(1)
		log.Info().Str("model", modelID).Msg("Loading model")
		g, err := c.load(context.WithoutCancel(ctx), modelID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.models[modelID] = g
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		log.Error().Err(err).Str("model", modelID).Bool("shared", shared).Msg("Model load failed")
		return nil, fmt.Errorf("%w: %s: %w", models.ErrModelLoad, modelID, err)
	}
	return v.(Generator), nil
}

// Loads reports how many load attempts have run.
func (c *ModelCache) Loads() int64 {
	return c.loads.Load()
}

// Len reports the number of cached models.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

func (c *ModelCache) lookup(modelID string) (Generator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.models[modelID]
	return g, ok
}
