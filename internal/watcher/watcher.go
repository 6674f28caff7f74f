// Package watcher writes readability reports for documents dropped into a
// folder tree.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"textlab/internal/helper"
	"textlab/internal/parser"
	"textlab/internal/readability"
)

const (
	ReportSuffix    = ".readability.json"
	defaultDebounce = 200 * time.Millisecond
)

// FileReport is what gets written next to each analyzed document.
type FileReport struct {
	Source      string             `json:"source"`
	Format      string             `json:"format"`
	GeneratedAt time.Time          `json:"generated_at"`
	Readability readability.Report `json:"readability"`
}

type Watcher struct {
	dir        string
	pattern    string
	classifier *readability.Classifier
	debounce   time.Duration
	notify     func(path string, err error)

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithNotify registers a callback run after every processed file.
func WithNotify(fn func(path string, err error)) Option {
	return func(w *Watcher) { w.notify = fn }
}

// New watches dir for files whose slash-separated path relative to dir
// matches the doublestar pattern.
func New(dir, pattern string, classifier *readability.Classifier, opts ...Option) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	w := &Watcher{
		dir:        dir,
		pattern:    pattern,
		classifier: classifier,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Matches reports whether path should be analyzed. Reports themselves
// never match.
func (w *Watcher) Matches(path string) bool {
	if strings.HasSuffix(path, ReportSuffix) {
		return false
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return doublestar.MatchUnvalidated(w.pattern, filepath.ToSlash(rel))
}

// Process extracts path, measures it and writes the report beside it.
// It returns the report's path.
func (w *Watcher) Process(path string) (string, error) {
	doc, err := parser.ExtractText(path)
	if err != nil {
		return "", err
	}
	report := FileReport{
		Source:      doc.Source,
		Format:      doc.Format,
		GeneratedAt: time.Now().UTC(),
		Readability: w.classifier.Report(doc.Text),
	}

	out := path + ReportSuffix
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := helper.PrettyPrint(f, report); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	log.Info().Str("source", path).Str("level", report.Readability.PrimaryLevel).
		Float64("grade", report.Readability.FleschKincaidGrade).Msg("Wrote readability report")
	return out, nil
}

// Scan processes every file already present that matches the pattern.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(w.dir), w.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range matches {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		path := filepath.Join(w.dir, filepath.FromSlash(m))
		if !w.Matches(path) {
			continue
		}
		_, err := w.Process(path)
		w.done(path, err)
		if err == nil {
			n++
		}
	}
	return n, nil
}

// Run watches the tree until ctx is done. Bursts of events for the same
// file are coalesced into one report.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, w.dir); err != nil {
		return err
	}
	log.Info().Str("dir", w.dir).Str("pattern", w.pattern).Msg("Watching for documents")

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(fw, event.Name); err != nil {
				log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
			}
			return
		}
	}
	if !w.Matches(event.Name) {
		return
	}
	w.schedule(event.Name)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		_, err := w.Process(path)
		w.done(path, err)
	})
	w.pending[path] = t
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) done(path string, err error) {
	if err != nil {
		log.Error().Err(err).Str("source", path).Msg("Failed to analyze document")
	}
	if w.notify != nil {
		w.notify(path, err)
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
