package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"textlab/internal/config"
	"textlab/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPgDriver = "pgdriver"
	DriverPq       = "pq"
)

type Owner struct {
	bun.BaseModel `bun:"table:owners,alias:o"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	Username      string    `bun:"username" json:"username"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// HistoryRecord is one saved operation. Records are append-only.
type HistoryRecord struct {
	bun.BaseModel `bun:"table:history,alias:h"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	OwnerID       int64     `bun:"owner_id,notnull" json:"owner_id"`
	OperationType string    `bun:"operation_type,notnull" json:"operation_type"`
	OriginalText  string    `bun:"original_text,notnull" json:"original_text"`
	ResultText    string    `bun:"result_text,notnull" json:"result_text"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`

	Owner *Owner `bun:"rel:belongs-to,join:owner_id=id" json:"-"`
}

// Store persists owners and their history.
type Store struct {
	db *bun.DB
}

// ConnectDB opens the database/sql handle for the configured driver.
func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return sqldb, nil
	case DriverPgDriver:
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case DriverPq:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return sqldb, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, driver string, debug bool) *bun.DB {
	var db *bun.DB
	if driver == DriverSQLite || driver == "" {
		db = bun.NewDB(sqldb, sqlitedialect.New())
	} else {
		db = bun.NewDB(sqldb, pgdialect.New())
	}
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*Owner)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create owners table: %w", err)
	}
	_, err := db.NewCreateTable().Model((*HistoryRecord)(nil)).IfNotExists().
		ForeignKey(`("owner_id") REFERENCES "owners" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Open connects, verifies and initializes the store.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Driver, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: database: %w", models.ErrConnectivity, err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("driver", cfg.Driver).Msg("Database ready")
	return NewStore(db), nil
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateOwner registers an owner identity.
func (s *Store) CreateOwner(ctx context.Context, email, username string) (*Owner, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrInvalidRequest)
	}
	o := &Owner{Email: email, Username: username, CreatedAt: time.Now().UTC()}
	if _, err := s.db.NewInsert().Model(o).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create owner %s: %w", email, err)
	}
	return o, nil
}

func (s *Store) OwnerExists(ctx context.Context, email string) (bool, error) {
	return s.db.NewSelect().Model((*Owner)(nil)).Where("email = ?", normalizeEmail(email)).Exists(ctx)
}

// AppendHistory saves one operation for the owner with the given email.
// An unknown owner yields an error wrapping models.ErrNotFound.
func (s *Store) AppendHistory(ctx context.Context, email, kind, original, result string) (*HistoryRecord, error) {
	owner, err := s.owner(ctx, email)
	if err != nil {
		return nil, err
	}
	rec := &HistoryRecord{
		OwnerID:       owner.ID,
		OperationType: kind,
		OriginalText:  original,
		ResultText:    result,
		Timestamp:     time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}
	rec.Owner = owner
	return rec, nil
}

// ListHistory returns the owner's records, oldest first.
func (s *Store) ListHistory(ctx context.Context, email string) ([]HistoryRecord, error) {
	owner, err := s.owner(ctx, email)
	if err != nil {
		return nil, err
	}
	records := []HistoryRecord{}
	err = s.db.NewSelect().Model(&records).
		Where("h.owner_id = ?", owner.ID).
		Order("h.timestamp ASC", "h.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// AllHistory returns every record with its owner loaded.
func (s *Store) AllHistory(ctx context.Context) ([]HistoryRecord, error) {
	var records []HistoryRecord
	err := s.db.NewSelect().Model(&records).
		Relation("Owner").
		Order("h.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

func (s *Store) owner(ctx context.Context, email string) (*Owner, error) {
	email = normalizeEmail(email)
	o := new(Owner)
	err := s.db.NewSelect().Model(o).Where("email = ?", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: owner %s", models.ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner %s: %w", email, err)
	}
	return o, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
