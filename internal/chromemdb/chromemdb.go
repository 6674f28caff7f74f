package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"textlab/internal/config"
)

const (
	compress = false

	metaOwner     = "owner"
	metaOperation = "operation"
	metaTimestamp = "timestamp"
)

// Entry is one history record as it is indexed.
type Entry struct {
	ID        string
	Owner     string
	Operation string
	Original  string
	Result    string
	Timestamp time.Time
}

// Hit is a search result.
type Hit struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation_type"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Similarity float32   `json:"similarity"`
}

// HistoryIndex keeps history records in a chromem-go collection for
// semantic search. Re-adding an ID replaces the indexed document.
type HistoryIndex struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	encryptionKey string
	filePath      string
}

// NewHistoryIndex opens (or creates) the index described by cfg. An
// in-memory index is seeded from the encrypted export file when one exists.
func NewHistoryIndex(cfg config.HistoryIndexConfig, embed chromem.EmbeddingFunc) (*HistoryIndex, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &HistoryIndex{
		db:            db,
		dbPath:        cfg.Path,
		encryptionKey: cfg.EncryptionKey,
		filePath:      filepath.Join(cfg.Path, cfg.Collection+".gob.enc"),
	}

	if cfg.InMemory && m.encryptionKey != "" {
		if _, statErr := os.Stat(m.filePath); statErr == nil {
			if err := db.ImportFromFile(m.filePath, m.encryptionKey, cfg.Collection); err != nil {
				return nil, fmt.Errorf("failed to import index: %w", err)
			}
			log.Info().Str("file", m.filePath).Msg("Imported history index")
		}
	}

	m.collection, err = db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return m, nil
}

// Add indexes entries, embedding their text with the collection's function.
func (m *HistoryIndex) Add(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:      e.ID,
			Content: strings.TrimSpace(e.Original + "\n\n" + e.Result),
			Metadata: map[string]string{
				metaOwner:     normalizeOwner(e.Owner),
				metaOperation: e.Operation,
				metaTimestamp: e.Timestamp.UTC().Format(time.RFC3339),
			},
		})
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns up to limit records of owner most similar to query.
func (m *HistoryIndex) Search(ctx context.Context, owner, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query must not be empty")
	}
	n := min(limit, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  n,
		Where:     map[string]string{metaOwner: normalizeOwner(owner)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		ts, _ := time.Parse(time.RFC3339, r.Metadata[metaTimestamp])
		hits = append(hits, Hit{
			ID:         r.ID,
			Operation:  r.Metadata[metaOperation],
			Content:    r.Content,
			Timestamp:  ts,
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

// Has reports whether a record with id is already indexed.
func (m *HistoryIndex) Has(ctx context.Context, id string) bool {
	_, err := m.collection.GetByID(ctx, id)
	return err == nil
}

// Count reports the number of indexed records.
func (m *HistoryIndex) Count() int {
	return m.collection.Count()
}

// Exportable reports whether Export has a key and a destination.
func (m *HistoryIndex) Exportable() bool {
	return m.encryptionKey != "" && m.dbPath != ""
}

// Export writes the collection to an encrypted file under the index path.
func (m *HistoryIndex) Export() error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(m.dbPath, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Msg("Exporting history index")
	if err := m.db.ExportToFile(m.filePath, compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

func normalizeOwner(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
