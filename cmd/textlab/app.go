package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"textlab/internal/chromemdb"
	"textlab/internal/config"
	"textlab/internal/db"
	"textlab/internal/embedding"
	"textlab/internal/llmservice"
	"textlab/internal/orchestrator"
	"textlab/internal/readability"
)

// app holds the components a command needs. store and index are nil when
// the command runs without history.
type app struct {
	classifier *readability.Classifier
	cache      *llmservice.ModelCache
	store      *db.Store
	index      *chromemdb.HistoryIndex
	svc        *orchestrator.Service
}

func newApp(ctx context.Context, cfg *config.Config, withHistory bool) (*app, error) {
	classifier, err := readability.NewDefaultClassifier()
	if err != nil {
		return nil, err
	}
	a := &app{
		classifier: classifier,
		cache:      llmservice.NewModelCache(llmservice.ConfigLoader(cfg)),
	}

	var opts []orchestrator.Option
	if withHistory {
		a.store, err = db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithHistory(a.store))

		if cfg.HistoryIndex.Enabled {
			a.index, err = openIndex(cfg)
			if err != nil {
				_ = a.store.Close()
				return nil, err
			}
			opts = append(opts, orchestrator.WithIndex(a.index))
		}
	}
	a.svc = orchestrator.NewService(cfg, a.cache, classifier, opts...)
	return a, nil
}

func openIndex(cfg *config.Config) (*chromemdb.HistoryIndex, error) {
	embedder, err := embedding.NewEmbedder(cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	return chromemdb.NewHistoryIndex(cfg.HistoryIndex, embedding.Func(embedder))
}

func (a *app) Close() {
	var errs []error
	if a.index != nil && a.index.Exportable() {
		errs = append(errs, a.index.Export())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("Failed to close resources")
	}
}
