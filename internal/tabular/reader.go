// Package tabular decodes delimited text exports into ordered records keyed
// by column name. Rows are read lazily, one per Next call, so a caller only
// materializes a file when it chooses to (see ReadAll).
//
// Input is decoded through a BOM-sniffing UTF-8 decoder: a UTF-8 BOM is
// dropped, UTF-16 input with a BOM is transcoded, and invalid byte sequences
// become U+FFFD instead of failing the read.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("tabular: missing header row")

// Options configures a Reader. The zero value reads comma-separated input
// without a row cap.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// MaxRows caps the number of data rows returned. Zero or negative means
	// unlimited.
	MaxRows int
}

// Record maps a column name to its raw cell value.
type Record map[string]string

// Get returns the trimmed value of key, or "" when the column is absent.
func (r Record) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Reader yields Records from a delimited source in source order. A Reader is
// single-use; open a new one to iterate again.
type Reader struct {
	cr        *csv.Reader
	closer    io.Closer
	header    []string
	maxRows   int
	emitted   int
	line      int
	malformed int
}

// Open opens path and reads its header row.
func Open(path string, opt Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	r, err := NewReader(f, opt)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("tabular: %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader wraps src and consumes its header row. Close does not close src.
func NewReader(src io.Reader, opt Options) (*Reader, error) {
	dec := transform.NewReader(src, xunicode.BOMOverride(xunicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	header := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = h
	}

	return &Reader{cr: cr, header: header, maxRows: opt.MaxRows, line: 1}, nil
}

// Header returns the column names in source order.
func (r *Reader) Header() []string { return r.header }

// Malformed reports how many physical rows could not be tokenized at all.
func (r *Reader) Malformed() int { return r.malformed }

// Next returns the next record, or io.EOF once the input or the row cap is
// exhausted. Rows whose width differs from the header are returned as
// best-effort maps: surplus cells are dropped and missing cells are absent.
func (r *Reader) Next() (Record, error) {
	if r.maxRows > 0 && r.emitted >= r.maxRows {
		return nil, io.EOF
	}
	for {
		row, err := r.cr.Read()
		r.line++
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("tabular: line %d: %w", r.line, err)
			}
			if row == nil {
				r.malformed++
				continue
			}
		}

		rec := make(Record, len(r.header))
		for i, name := range r.header {
			if i >= len(row) {
				break
			}
			rec[name] = row[i]
		}
		r.emitted++
		return rec, nil
	}
}

// Close releases the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll opens path and materializes every record.
func ReadAll(path string, opt Options) ([]Record, error) {
	r, err := Open(path, opt)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// SliceSource replays already materialized records through the same Next
// contract as Reader.
type SliceSource struct {
	recs []Record
	pos  int
}

// NewSliceSource returns a source over recs.
func NewSliceSource(recs []Record) *SliceSource { return &SliceSource{recs: recs} }

// Next returns the next record or io.EOF.
func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}
