package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/planarena/planarena/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is a plan cache persisted to SQLite, for deployments where
// plan decisions should survive process restarts.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// SQLiteConfig holds SQLite store configuration.
type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite-backed plan cache. Call Init and
// Migrate before use.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache: database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("cache: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("cache: failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("cache: database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("cache: failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("cache: failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("cache: failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("cache: failed to run migrations: %w", err)
	}
	return nil
}

// Put implements engine.PlanCache. An existing entry for the shape is
// replaced.
func (s *SQLiteStore) Put(ctx context.Context, shape engine.QueryShape, solutions []*engine.Solution, decision *engine.RankingDecision, now time.Time) error {
	entry, err := newEntry(shape, solutions, decision, now)
	if err != nil {
		return err
	}

	solutionsJSON, err := json.Marshal(entry.Solutions)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal solutions: %w", err)
	}
	decisionJSON, err := json.Marshal(entry.Decision)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal decision: %w", err)
	}

	query := `
		INSERT INTO plan_cache (shape_hash, shape_key, hinted, solutions, decision, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(shape_hash) DO UPDATE SET
			shape_key = excluded.shape_key,
			hinted = excluded.hinted,
			solutions = excluded.solutions,
			decision = excluded.decision,
			created_at = excluded.created_at`

	hinted := 0
	if shape.Hinted {
		hinted = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		int64(shape.Hash), shape.Key, hinted, string(solutionsJSON), string(decisionJSON), now)
	if err != nil {
		return fmt.Errorf("cache: failed to store plan entry: %w", err)
	}
	return nil
}

// Get implements engine.PlanCache. A miss returns (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, shape engine.QueryShape) (*engine.CachedPlan, error) {
	query := `
		SELECT shape_key, hinted, solutions, decision, created_at
		FROM plan_cache WHERE shape_hash = ?`

	var (
		key           string
		hinted        int
		solutionsJSON string
		decisionJSON  string
		createdAt     time.Time
	)
	err := s.db.QueryRowContext(ctx, query, int64(shape.Hash)).
		Scan(&key, &hinted, &solutionsJSON, &decisionJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: failed to load plan entry: %w", err)
	}
	if key != shape.Key {
		// Hash collision with a different shape; treat as a miss.
		return nil, nil
	}

	entry := &engine.CachedPlan{
		Shape:     engine.QueryShape{Key: key, Hash: shape.Hash, Hinted: hinted != 0},
		CreatedAt: createdAt,
	}
	if err := json.Unmarshal([]byte(solutionsJSON), &entry.Solutions); err != nil {
		return nil, fmt.Errorf("cache: failed to unmarshal solutions: %w", err)
	}
	if err := json.Unmarshal([]byte(decisionJSON), &entry.Decision); err != nil {
		return nil, fmt.Errorf("cache: failed to unmarshal decision: %w", err)
	}
	return entry, nil
}

// Evict implements engine.PlanCache.
func (s *SQLiteStore) Evict(ctx context.Context, shape engine.QueryShape) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_cache WHERE shape_hash = ?`, int64(shape.Hash))
	if err != nil {
		return fmt.Errorf("cache: failed to evict plan entry: %w", err)
	}
	return nil
}

// Clear implements engine.PlanCache.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plan_cache`); err != nil {
		return fmt.Errorf("cache: failed to clear plan cache: %w", err)
	}
	return nil
}

// Len implements engine.PlanCache.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plan_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache: failed to count plan entries: %w", err)
	}
	return count, nil
}

// List returns cache entries ordered by recency, newest first. Intended for
// inspection tooling, not the query path.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*engine.CachedPlan, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT shape_key, shape_hash, hinted, solutions, decision, created_at
		FROM plan_cache ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to list plan entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*engine.CachedPlan
	for rows.Next() {
		var (
			key           string
			hash          int64
			hinted        int
			solutionsJSON string
			decisionJSON  string
			createdAt     time.Time
		)
		if err := rows.Scan(&key, &hash, &hinted, &solutionsJSON, &decisionJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("cache: failed to scan plan entry: %w", err)
		}
		entry := &engine.CachedPlan{
			Shape:     engine.QueryShape{Key: key, Hash: uint64(hash), Hinted: hinted != 0},
			CreatedAt: createdAt,
		}
		if err := json.Unmarshal([]byte(solutionsJSON), &entry.Solutions); err != nil {
			return nil, fmt.Errorf("cache: failed to unmarshal solutions: %w", err)
		}
		if err := json.Unmarshal([]byte(decisionJSON), &entry.Decision); err != nil {
			return nil, fmt.Errorf("cache: failed to unmarshal decision: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("cache: database not initialized")
	}
	return s.db.PingContext(ctx)
}
