package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"NewsCast/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store persists pipeline state in Postgres or SQLite.
type Store struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	driver string
	now    func() time.Time
}

var (
	_ ports.CategoryPageRepository = (*Store)(nil)
	_ ports.ArticleURLRepository   = (*Store)(nil)
	_ ports.ArticleRepository      = (*Store)(nil)
	_ ports.PostRepository         = (*Store)(nil)
	_ ports.PerformanceRecorder    = (*Store)(nil)
	_ ports.ProjectRepository      = (*Store)(nil)
)

// Open connects to the database and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	store := New(db, driver)
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// New wraps an existing connection without touching the schema.
func New(db *sqlx.DB, driver string) *Store {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Store{
		db:     db,
		sb:     sb,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) selectInto(ctx context.Context, dest any, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *Store) getInto(ctx context.Context, dest any, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.GetContext(ctx, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) returningID(ctx context.Context, q sq.Sqlizer) (string, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build statement: %w", err)
	}
	var id string
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func limitOf(n int) uint64 {
	if n <= 0 {
		return 1
	}
	return uint64(n)
}
