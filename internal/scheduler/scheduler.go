// Package scheduler keeps the history index in step with the history store.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"textlab/internal/chromemdb"
	"textlab/internal/db"
)

type HistorySource interface {
	AllHistory(ctx context.Context) ([]db.HistoryRecord, error)
}

type Index interface {
	Has(ctx context.Context, id string) bool
	Add(ctx context.Context, entries ...chromemdb.Entry) error
}

// Exporter is implemented by indexes that can snapshot themselves to disk.
type Exporter interface {
	Exportable() bool
	Export() error
}

// Syncer indexes stored records missing from the index on a cron
// schedule. Records that failed to index when they were saved are picked
// up by the next run. History is append-only, so indexed records are
// never embedded again.
type Syncer struct {
	source   HistorySource
	index    Index
	schedule string

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func NewSyncer(source HistorySource, index Index, schedule string) *Syncer {
	return &Syncer{source: source, index: index, schedule: schedule}
}

// Sync indexes the records the index does not have yet and exports the
// index when anything was added and it supports exporting. It returns the
// number of records indexed.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	records, err := s.source.AllHistory(ctx)
	if err != nil {
		return 0, err
	}

	entries := make([]chromemdb.Entry, 0, len(records))
	for _, r := range records {
		if r.Owner == nil {
			continue
		}
		id := strconv.FormatInt(r.ID, 10)
		if s.index.Has(ctx, id) {
			continue
		}
		entries = append(entries, chromemdb.Entry{
			ID:        id,
			Owner:     r.Owner.Email,
			Operation: r.OperationType,
			Original:  r.OriginalText,
			Result:    r.ResultText,
			Timestamp: r.Timestamp,
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.index.Add(ctx, entries...); err != nil {
		return 0, err
	}

	if ex, ok := s.index.(Exporter); ok && ex.Exportable() {
		if err := ex.Export(); err != nil {
			return len(entries), err
		}
	}
	return len(entries), nil
}

// Start registers the sync job and runs it until ctx is done. Runs never
// overlap; a tick that arrives while a sync is in progress is skipped.
func (s *Syncer) Start(ctx context.Context) error {
	c := rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}

	c.Start()
	log.Info().Str("schedule", s.schedule).Msg("History sync scheduled")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Debug().Msg("History sync stopped")
	}()
	return nil
}

func (s *Syncer) run(ctx context.Context) {
	start := time.Now()
	n, err := s.Sync(ctx)

	s.mu.Lock()
	s.lastRun, s.lastErr = start, err
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("History sync failed")
		return
	}
	log.Info().Int("records", n).Dur("took", time.Since(start)).Msg("History synced")
}

// LastRun reports when the scheduled job last ran and how it ended.
func (s *Syncer) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
