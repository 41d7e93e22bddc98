// Package merge joins the primary catalog rows against the reference index
// and emits one canonical record per row.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"catalogloader/internal/catalog"
	"catalogloader/internal/ident"
	"catalogloader/internal/normalize"
	"catalogloader/internal/report"
	"catalogloader/internal/tabular"
)

// Primary column names.
const (
	ColURL      = "url"
	ColName     = "Perfume"
	ColBrand    = "Brand"
	ColYear     = "Year"
	ColGender   = "Gender"
	ColTop      = "Top"
	ColMiddle   = "Middle"
	ColBase     = "Base"
	ColPerfumer = "Perfumer1"

	accordPrefix = "mainaccord"
	maxAccords   = 5
)

// DefaultProgressEvery is the row cadence of progress log lines.
const DefaultProgressEvery = 1000

// Index is the read-only enrichment lookup.
type Index interface {
	Lookup(key string) (catalog.ReferenceEntry, bool)
}

// Source yields primary rows until io.EOF.
type Source interface {
	Next() (tabular.Record, error)
}

// Sink receives merged records in input order.
type Sink interface {
	Add(ctx context.Context, rec catalog.Record) error
}

// Options tunes a Merger. The zero value is usable.
type Options struct {
	// ProgressEvery logs hit/miss counts every N rows. Zero uses
	// DefaultProgressEvery; negative disables progress lines.
	ProgressEvery int

	// Rand draws slug suffixes for rows without a numeric ID. Nil uses the
	// global source.
	Rand ident.Rand
}

// Merger turns primary rows into canonical records. It is single-use per
// run and not safe for concurrent use.
type Merger struct {
	index    Index
	rep      *report.Reporter
	logger   *zap.Logger
	every    int
	rng      ident.Rand
	rows     int64
	seenSlug map[uint64]struct{}
}

// New returns a Merger reading enrichment from index and counting into rep.
func New(index Index, rep *report.Reporter, logger *zap.Logger, opt Options) *Merger {
	if rep == nil {
		rep = report.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	every := opt.ProgressEvery
	if every == 0 {
		every = DefaultProgressEvery
	}
	return &Merger{
		index:    index,
		rep:      rep,
		logger:   logger,
		every:    every,
		rng:      opt.Rand,
		seenSlug: make(map[uint64]struct{}),
	}
}

// Merge builds the canonical record for one row. It never fails: fields that
// cannot be parsed fall back to their defaults.
func (m *Merger) Merge(row tabular.Record) catalog.Record {
	url := row.Get(ColURL)
	name := normalize.OrDefault(normalize.TitleCase(row.Get(ColName)), catalog.Unknown)
	brand := normalize.OrDefault(normalize.TitleCase(row.Get(ColBrand)), catalog.Unknown)

	top := normalize.SplitNotes(row[ColTop])
	heart := normalize.SplitNotes(row[ColMiddle])
	base := normalize.SplitNotes(row[ColBase])

	own := optional(row.Get(ColPerfumer))

	rec := catalog.Record{
		Name:        name,
		Brand:       brand,
		ImageURL:    ident.ImageURL(url),
		TopNotes:    top,
		HeartNotes:  heart,
		BaseNotes:   base,
		ReleaseYear: normalize.ParseYear(row.Get(ColYear)),
		Gender:      normalize.MapGender(row[ColGender]),
		Accords:     accords(row),
		Scraped:     true,
	}

	if entry, ok := m.index.Lookup(url); ok && entry.Description != "" {
		m.rep.Hits++
		rec.Description = entry.Description
		rec.Perfumer = own
		if entry.Creators != "" {
			rec.Perfumer = &entry.Creators
		}
	} else {
		m.rep.Misses++
		rec.Description = synthesizeDescription(name, brand, top, heart)
		rec.Perfumer = own
	}

	id, _ := ident.ExtractID(url)
	rec.Slug = ident.Slug(name, brand, id, m.rng)
	m.trackSlug(rec.Slug)

	return rec
}

// Run streams src through Merge into sink. It stops at the first read or
// sink error.
func (m *Merger) Run(ctx context.Context, src Source, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("merge: read row %d: %w", m.rows+1, err)
		}

		rec := m.Merge(row)
		m.rows++
		if err := sink.Add(ctx, rec); err != nil {
			return err
		}

		if m.every > 0 && m.rows%int64(m.every) == 0 {
			m.logger.Info("merge progress",
				zap.Int64("rows", m.rows),
				zap.Int64("hits", m.rep.Hits),
				zap.Int64("misses", m.rep.Misses),
			)
		}
	}
}

// Rows is the number of rows merged so far.
func (m *Merger) Rows() int64 { return m.rows }

func (m *Merger) trackSlug(slug string) {
	h := xxh3.HashString(slug)
	if _, dup := m.seenSlug[h]; dup {
		m.rep.DuplicateSlugs++
		m.logger.Debug("duplicate slug in run", zap.String("slug", slug))
		return
	}
	m.seenSlug[h] = struct{}{}
}

func accords(row tabular.Record) []string {
	out := make([]string, 0, maxAccords)
	for i := 1; i <= maxAccords; i++ {
		if v := row.Get(accordPrefix + strconv.Itoa(i)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// synthesizeDescription builds the fallback description from the first two
// top notes and the first heart note.
func synthesizeDescription(name, brand string, top, heart []string) string {
	notes := make([]string, 0, 3)
	notes = append(notes, top[:min(2, len(top))]...)
	notes = append(notes, heart[:min(1, len(heart))]...)
	if len(notes) == 0 {
		return fmt.Sprintf("%s is a fragrance by %s.", name, brand)
	}
	return fmt.Sprintf("%s by %s is a fragrance featuring notes of %s.", name, brand, strings.Join(notes, ", "))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
