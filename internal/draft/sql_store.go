package draft

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"net/url"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"
)

const draftsTable = "wizard_drafts"

const createTableSQL = `CREATE TABLE IF NOT EXISTS wizard_drafts (
	draft_key TEXT PRIMARY KEY,
	payload   TEXT NOT NULL,
	saved_at  TEXT NOT NULL
)`

// SQLStore implements Store on a SQLite database.
type SQLStore struct {
	drv *entsql.Driver
}

// OpenSQLite opens the SQLite database at dsn and prepares the drafts table.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening draft database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := NewSQLStore(entsql.OpenDB(dialect.SQLite, db))
	if err := s.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open SQLite driver.
func NewSQLStore(drv *entsql.Driver) *SQLStore {
	return &SQLStore{drv: drv}
}

// CreateTable creates the drafts table if it does not already exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	var res stdsql.Result
	if err := s.drv.Exec(ctx, createTableSQL, []any{}, &res); err != nil {
		return fmt.Errorf("creating drafts table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.drv.Close() }

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (s *SQLStore) Save(ctx context.Context, d Draft) error {
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now()
	}
	query, args := s.builder().
		Insert(draftsTable).
		Columns("draft_key", "payload", "saved_at").
		Values(d.Key, d.Values.Encode(), d.SavedAt.UTC().Format(time.RFC3339Nano)).
		OnConflict(
			entsql.ConflictColumns("draft_key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("saving draft %q: %w", d.Key, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, key string) (Draft, error) {
	query, args := s.builder().
		Select("payload", "saved_at").
		From(entsql.Table(draftsTable)).
		Where(entsql.EQ("draft_key", key)).
		Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return Draft{}, fmt.Errorf("loading draft %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Draft{}, fmt.Errorf("loading draft %q: %w", key, err)
		}
		return Draft{}, ErrNotFound
	}
	var payload, savedAt string
	if err := rows.Scan(&payload, &savedAt); err != nil {
		return Draft{}, fmt.Errorf("scanning draft %q: %w", key, err)
	}
	values, err := url.ParseQuery(payload)
	if err != nil {
		return Draft{}, fmt.Errorf("decoding draft %q: %w", key, err)
	}
	at, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return Draft{}, fmt.Errorf("decoding draft %q saved_at: %w", key, err)
	}
	return Draft{Key: key, Values: values, SavedAt: at}, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query, args := s.builder().
		Delete(draftsTable).
		Where(entsql.EQ("draft_key", key)).
		Query()
	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("deleting draft %q: %w", key, err)
	}
	return nil
}
