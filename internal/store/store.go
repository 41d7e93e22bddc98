// Package store defines the full catalog store contract and the helpers the
// SQL implementations share: table name validation, column DDL, list
// encoding and statement chunking.
//
// Implementations live in subpackages (memory, sqlite, postgres, mssql). This
// package must not import them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/huandu/go-sqlbuilder"

	"catalogloader/internal/catalog"
)

// Driver names accepted by the binary.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMSSQL    = "mssql"
	DriverMemory   = "memory"
)

// Drivers lists every supported driver.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverMSSQL, DriverMemory}

// DefaultTable is the catalog table name.
const DefaultTable = "perfumes"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("store: invalid table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Catalog is what the binary needs from a store: the loader's insert
// capability plus schema bootstrap, a row count and shutdown.
type Catalog interface {
	InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error)
	EnsureSchema(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// ValidateTable rejects names that cannot be interpolated into SQL as-is.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

// ColumnTypes are the per-dialect SQL types of the catalog table.
type ColumnTypes struct {
	ID   []string // full definition of the surrogate key column
	Text string
	Key  string // type of the unique slug column
	List string
	Int  string
	Bool string
}

// CreateTable renders the catalog table DDL for flavor. ifNotExists is false
// for dialects that lack the clause and guard the statement themselves.
func CreateTable(flavor sqlbuilder.Flavor, table string, t ColumnTypes, ifNotExists bool) string {
	ctb := flavor.NewCreateTableBuilder()
	ctb.CreateTable(table)
	if ifNotExists {
		ctb.IfNotExists()
	}
	ctb.Define(append([]string{"id"}, t.ID...)...)
	ctb.Define("name", t.Text, "NOT NULL")
	ctb.Define("brand", t.Text, "NOT NULL")
	ctb.Define("image_url", t.Text, "NOT NULL")
	ctb.Define("top_notes", t.List, "NOT NULL")
	ctb.Define("heart_notes", t.List, "NOT NULL")
	ctb.Define("base_notes", t.List, "NOT NULL")
	ctb.Define("release_year", t.Int, "NULL")
	ctb.Define("perfumer", t.Text, "NULL")
	ctb.Define("description", t.Text, "NOT NULL")
	ctb.Define("gender", t.Text, "NOT NULL")
	ctb.Define("accords", t.List, "NOT NULL")
	ctb.Define("slug", t.Key, "NOT NULL", "UNIQUE")
	ctb.Define("scraped", t.Bool, "NOT NULL")
	return ctb.String()
}

// EncodeList renders a list column as a JSON array, for dialects without a
// native array type. Nil encodes as [].
func EncodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeList is the inverse of EncodeList.
func DecodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONValues returns rec's values aligned to catalog.Columns with every list
// column encoded by EncodeList.
func JSONValues(rec catalog.Record) ([]any, error) {
	vals := rec.Values()
	for i, v := range vals {
		list, ok := v.([]string)
		if !ok {
			continue
		}
		s, err := EncodeList(list)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", catalog.Columns[i], err)
		}
		vals[i] = s
	}
	return vals, nil
}

// RowsPerStatement is how many catalog rows fit in one multi-row INSERT
// under a bind parameter limit.
func RowsPerStatement(maxParams int) int {
	n := maxParams / len(catalog.Columns)
	if n < 1 {
		return 1
	}
	return n
}

// Chunks splits recs into consecutive slices of at most n records.
func Chunks(recs []catalog.Record, n int) [][]catalog.Record {
	if n <= 0 {
		n = len(recs)
	}
	var out [][]catalog.Record
	for len(recs) > 0 {
		k := min(n, len(recs))
		out = append(out, recs[:k])
		recs = recs[k:]
	}
	return out
}
