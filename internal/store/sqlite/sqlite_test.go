package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogloader/internal/catalog"
	"catalogloader/internal/store"
)

var _ store.Catalog = (*Store)(nil)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "perfumes")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func sample(slug string) catalog.Record {
	year := 2019
	perfumer := "Chris Maurice"
	return catalog.Record{
		Name:        "Accento Overdose",
		Brand:       "Xerjoff",
		ImageURL:    "https://fimgs.net/mdimg/perfume/375x500.74630.jpg",
		TopNotes:    []string{"Pineapple", "Pink Pepper"},
		HeartNotes:  []string{"Jasmine"},
		BaseNotes:   []string{},
		ReleaseYear: &year,
		Perfumer:    &perfumer,
		Description: "desc",
		Gender:      catalog.GenderUnisex,
		Accords:     []string{"fruity"},
		Slug:        slug,
		Scraped:     true,
	}
}

func TestOpen_RejectsBadTable(t *testing.T) {
	_, err := Open(":memory:", "x; DROP TABLE y")
	assert.ErrorIs(t, err, store.ErrInvalidTable)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestInsertSkipDuplicates(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	n, err := s.InsertSkipDuplicates(ctx, []catalog.Record{sample("a-1"), sample("b-2"), sample("a-1")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.InsertSkipDuplicates(ctx, []catalog.Record{sample("a-1"), sample("b-2")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "second run inserts nothing")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInsertSkipDuplicates_RoundTripsColumns(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	blank := sample("blank-1")
	blank.ReleaseYear = nil
	blank.Perfumer = nil
	blank.TopNotes = nil

	_, err := s.InsertSkipDuplicates(ctx, []catalog.Record{sample("full-1"), blank})
	require.NoError(t, err)

	var row struct {
		TopNotes string  `db:"top_notes"`
		Year     *int    `db:"release_year"`
		Perfumer *string `db:"perfumer"`
		Scraped  bool    `db:"scraped"`
	}
	require.NoError(t, s.db.GetContext(ctx, &row,
		"SELECT top_notes, release_year, perfumer, scraped FROM perfumes WHERE slug = ?", "full-1"))
	top, err := store.DecodeList(row.TopNotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pineapple", "Pink Pepper"}, top)
	require.NotNil(t, row.Year)
	assert.Equal(t, 2019, *row.Year)
	require.NotNil(t, row.Perfumer)
	assert.True(t, row.Scraped)

	require.NoError(t, s.db.GetContext(ctx, &row,
		"SELECT top_notes, release_year, perfumer, scraped FROM perfumes WHERE slug = ?", "blank-1"))
	assert.Equal(t, "[]", row.TopNotes)
	assert.Nil(t, row.Year)
	assert.Nil(t, row.Perfumer)
}

func TestInsertSkipDuplicates_LargeBatchIsChunked(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	n := store.RowsPerStatement(maxParams) + 10
	recs := make([]catalog.Record, n)
	for i := range recs {
		recs[i] = sample(fmt.Sprintf("r-%d", i))
	}
	got, err := s.InsertSkipDuplicates(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got)
}

func TestInsertSkipDuplicates_Empty(t *testing.T) {
	s := openMem(t)
	n, err := s.InsertSkipDuplicates(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertWithoutSchemaFails(t *testing.T) {
	s, err := Open(":memory:", "perfumes")
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.InsertSkipDuplicates(context.Background(), []catalog.Record{sample("a-1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: insert")
}
