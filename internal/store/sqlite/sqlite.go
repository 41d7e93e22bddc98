// Package sqlite is the default catalog store, backed by the pure-Go
// modernc.org/sqlite driver. List columns are stored as JSON text.
package sqlite

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"catalogloader/internal/catalog"
	"catalogloader/internal/store"
)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = "file:catalog.db"

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for SQLite >= 3.32.
const maxParams = 32766

var columnTypes = store.ColumnTypes{
	ID:   []string{"INTEGER", "PRIMARY KEY", "AUTOINCREMENT"},
	Text: "TEXT",
	Key:  "TEXT",
	List: "TEXT",
	Int:  "INTEGER",
	Bool: "INTEGER",
}

// Store writes catalog records to one SQLite table.
type Store struct {
	db    *sqlx.DB
	table string
}

// Open opens dsn with a single connection, so ":memory:" databases survive
// across calls.
func Open(dsn, table string) (*Store, error) {
	if err := store.ValidateTable(table); err != nil {
		return nil, err
	}
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db, table: table}, nil
}

// EnsureSchema creates the catalog table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := store.CreateTable(sqlbuilder.SQLite, s.table, columnTypes, true)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", s.table, err)
	}
	return nil
}

// InsertSkipDuplicates inserts recs with ON CONFLICT(slug) DO NOTHING inside
// one transaction and returns the number of rows actually inserted.
func (s *Store) InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, chunk := range store.Chunks(recs, store.RowsPerStatement(maxParams)) {
		q, args, err := s.insertSQL(chunk)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return total, nil
}

func (s *Store) insertSQL(recs []catalog.Record) (string, []any, error) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(s.table)
	ib.Cols(catalog.Columns...)
	for _, r := range recs {
		vals, err := store.JSONValues(r)
		if err != nil {
			return "", nil, fmt.Errorf("sqlite: %s: %w", r.Slug, err)
		}
		ib.Values(vals...)
	}
	q, args := ib.Build()
	return q + " ON CONFLICT(slug) DO NOTHING", args, nil
}

// Count returns the number of rows in the catalog table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From(s.table)
	q, args := sb.Build()

	var n int64
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

// Close closes the database handle.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
