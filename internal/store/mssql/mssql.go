// Package mssql stores catalog records in SQL Server through go-mssqldb.
//
// SQL Server has no ON CONFLICT, so each record is inserted by a prepared
// INSERT ... SELECT ... WHERE NOT EXISTS inside one transaction per batch.
// A unique-key violation that slips past the guard (error 2627 or 2601) is
// counted as a skipped row, not returned.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	mssqldb "github.com/microsoft/go-mssqldb"

	"catalogloader/internal/catalog"
	"catalogloader/internal/store"
)

// SQL Server error numbers for unique constraint and unique index violations.
const (
	errUniqueConstraint = 2627
	errUniqueIndex      = 2601
)

var columnTypes = store.ColumnTypes{
	ID:   []string{"BIGINT", "IDENTITY(1,1)", "PRIMARY KEY"},
	Text: "NVARCHAR(MAX)",
	Key:  "NVARCHAR(450)",
	List: "NVARCHAR(MAX)",
	Int:  "INT",
	Bool: "BIT",
}

// stmtCore is the minimal subset of *sql.Stmt we use.
type stmtCore interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// txCore is the subset of a transaction the store uses.
type txCore interface {
	PrepareContext(ctx context.Context, query string) (stmtCore, error)
	Commit() error
	Rollback() error
}

// dbCore is the subset of *sqlx.DB the store uses.
type dbCore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Begin(ctx context.Context) (txCore, error)
	Close() error
}

type realDB struct{ *sqlx.DB }

func (r realDB) Begin(ctx context.Context) (txCore, error) {
	tx, err := r.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return realTx{tx}, nil
}

type realTx struct{ tx *sqlx.Tx }

func (r realTx) PrepareContext(ctx context.Context, q string) (stmtCore, error) {
	s, err := r.tx.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return s, nil
}
func (r realTx) Commit() error   { return r.tx.Commit() }
func (r realTx) Rollback() error { return r.tx.Rollback() }

// Store writes catalog records to one SQL Server table.
type Store struct {
	db    dbCore
	table string
}

// Open connects with the "sqlserver" driver and pings the server.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if err := store.ValidateTable(table); err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errors.New("mssql: dsn is required")
	}
	db, err := sqlx.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Store{db: realDB{db}, table: table}, nil
}

// EnsureSchema creates the catalog table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n", s.table) +
		store.CreateTable(sqlbuilder.SQLServer, s.table, columnTypes, false)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", s.table, err)
	}
	return nil
}

// insertSQL inserts one row unless its slug exists. The slug is bound twice:
// once as a value and once in the guard.
func (s *Store) insertSQL() string {
	cols := catalog.Columns
	ph := make([]string, len(cols))
	slugParam := ""
	for i, c := range cols {
		ph[i] = fmt.Sprintf("@p%d", i+1)
		if c == "slug" {
			slugParam = ph[i]
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s WHERE NOT EXISTS (SELECT 1 FROM %s WITH (UPDLOCK, HOLDLOCK) WHERE slug = %s)",
		s.table, strings.Join(cols, ", "), strings.Join(ph, ", "), s.table, slugParam,
	)
}

// InsertSkipDuplicates inserts recs in one transaction and returns the number
// of rows actually inserted.
func (s *Store) InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range recs {
		vals, err := store.JSONValues(r)
		if err != nil {
			return 0, fmt.Errorf("mssql: %s: %w", r.Slug, err)
		}
		res, err := stmt.ExecContext(ctx, vals...)
		if isDuplicateKey(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("mssql: insert %s: %w", r.Slug, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mssql: rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return inserted, nil
}

func isDuplicateKey(err error) bool {
	var me mssqldb.Error
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errUniqueConstraint || me.Number == errUniqueIndex
}

// Count returns the number of rows in the catalog table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	sb := sqlbuilder.SQLServer.NewSelectBuilder()
	sb.Select("COUNT(*)").From(s.table)
	q, args := sb.Build()

	var n int64
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("mssql: count: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
