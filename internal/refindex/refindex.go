// Package refindex builds the in-memory enrichment index from the auxiliary
// dataset. The index is keyed by the source URL shared with the primary file
// and is read-only once Build returns.
package refindex

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"catalogloader/internal/catalog"
	"catalogloader/internal/normalize"
	"catalogloader/internal/tabular"
)

// Auxiliary column names.
const (
	ColURL         = "url"
	ColDescription = "Description"
	ColPerfumers   = "Perfumers"
)

// Source yields tabular records until io.EOF. *tabular.Reader and
// *tabular.SliceSource satisfy it.
type Source interface {
	Next() (tabular.Record, error)
}

// Index maps a join key to its enrichment entry.
type Index struct {
	entries  map[string]catalog.ReferenceEntry
	rowsRead int
	skipped  int
}

// Lookup returns the entry for key, if any.
func (ix *Index) Lookup(key string) (catalog.ReferenceEntry, bool) {
	e, ok := ix.entries[key]
	return e, ok
}

// Len is the number of distinct join keys.
func (ix *Index) Len() int { return len(ix.entries) }

// RowsRead is the number of source rows consumed, including skipped ones.
func (ix *Index) RowsRead() int { return ix.rowsRead }

// Skipped is the number of rows dropped for lacking a join key.
func (ix *Index) Skipped() int { return ix.skipped }

// Build drains src into an Index. Rows without a url are skipped; a repeated
// url replaces the earlier entry.
func Build(src Source, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Index{entries: make(map[string]catalog.ReferenceEntry)}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("refindex: read row %d: %w", ix.rowsRead+1, err)
		}
		ix.rowsRead++

		key := rec.Get(ColURL)
		if key == "" {
			ix.skipped++
			continue
		}
		ix.entries[key] = catalog.ReferenceEntry{
			Description: rec.Get(ColDescription),
			Creators:    normalize.FlattenCreators(rec[ColPerfumers]),
		}
	}

	logger.Info("reference index built",
		zap.Int("rows_read", ix.rowsRead),
		zap.Int("skipped", ix.skipped),
		zap.Int("size", ix.Len()),
	)
	return ix, nil
}
