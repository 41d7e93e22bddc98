// Package postgres stores catalog records through pgx. Note and accord
// lists map to text[] columns.
package postgres

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"catalogloader/internal/catalog"
	"catalogloader/internal/store"
)

// maxParams is the Postgres wire protocol limit on bind parameters.
const maxParams = 65535

var columnTypes = store.ColumnTypes{
	ID:   []string{"BIGSERIAL", "PRIMARY KEY"},
	Text: "TEXT",
	Key:  "TEXT",
	List: "TEXT[]",
	Int:  "INTEGER",
	Bool: "BOOLEAN",
}

// pgConnLike is the subset of *pgx.Conn the store uses, so tests can swap in
// a fake connection.
type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Store writes catalog records to one Postgres table.
type Store struct {
	conn  pgConnLike
	table string
}

// Open connects with pgx.Connect.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if err := store.ValidateTable(table); err != nil {
		return nil, err
	}
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Store{conn: c, table: table}, nil
}

// BuildDSN assembles a URL DSN from discrete connection settings.
func BuildDSN(user, password, host, port, name string) string {
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name
}

// EnsureSchema creates the catalog table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := store.CreateTable(sqlbuilder.PostgreSQL, s.table, columnTypes, true)
	if _, err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", s.table, err)
	}
	return nil
}

// InsertSkipDuplicates runs one multi-row INSERT ... ON CONFLICT (slug) DO
// NOTHING per parameter-limited chunk and sums the affected row counts.
func (s *Store) InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error) {
	var total int64
	for _, chunk := range store.Chunks(recs, store.RowsPerStatement(maxParams)) {
		q, args := s.insertSQL(chunk)
		tag, err := s.conn.Exec(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("postgres: insert: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (s *Store) insertSQL(recs []catalog.Record) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(s.table)
	ib.Cols(catalog.Columns...)
	for _, r := range recs {
		ib.Values(r.Values()...)
	}
	q, args := ib.Build()
	return q + " ON CONFLICT (slug) DO NOTHING", args
}

// Count returns the number of rows in the catalog table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From(s.table)
	q, args := sb.Build()

	var n int64
	if err := s.conn.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// Close closes the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
