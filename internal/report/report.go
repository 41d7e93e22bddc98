// Package report holds the run counters observed by the merge stage and the
// loader, and renders them as the operator summary at process end.
package report

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"catalogloader/internal/metrics"
)

// Reporter is a set of passive counters. It is owned by a single run and is
// not safe for concurrent use.
type Reporter struct {
	// Merge stage.
	Hits           int64
	Misses         int64
	DuplicateSlugs int64

	// Loader.
	Processed int64
	Inserted  int64
	Batches   int64

	// Inputs.
	ReferenceRows int
	IndexSize     int
	Malformed     int

	// StoreCount is the catalog table size after the run, or -1 when the
	// store could not report it.
	StoreCount int64

	Elapsed time.Duration
}

// New returns a Reporter with no store count yet.
func New() *Reporter {
	return &Reporter{StoreCount: -1}
}

// Skipped is the number of processed records the store did not insert
// because their slug already existed.
func (r *Reporter) Skipped() int64 {
	if r.Processed < r.Inserted {
		return 0
	}
	return r.Processed - r.Inserted
}

// Print writes the human-readable summary block.
func (r *Reporter) Print(w io.Writer) {
	fmt.Fprintln(w, "== catalog seed summary ==")
	fmt.Fprintf(w, "reference rows read : %d\n", r.ReferenceRows)
	fmt.Fprintf(w, "reference index size: %d\n", r.IndexSize)
	fmt.Fprintf(w, "rows processed      : %d\n", r.Processed)
	fmt.Fprintf(w, "rows inserted       : %d\n", r.Inserted)
	fmt.Fprintf(w, "rows skipped (dup)  : %d\n", r.Skipped())
	fmt.Fprintf(w, "join hits           : %d\n", r.Hits)
	fmt.Fprintf(w, "join misses         : %d\n", r.Misses)
	fmt.Fprintf(w, "duplicate slugs     : %d\n", r.DuplicateSlugs)
	fmt.Fprintf(w, "batches             : %d\n", r.Batches)
	if r.Malformed > 0 {
		fmt.Fprintf(w, "malformed lines     : %d\n", r.Malformed)
	}
	if r.StoreCount >= 0 {
		fmt.Fprintf(w, "catalog rows total  : %d\n", r.StoreCount)
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(w, "elapsed             : %s\n", r.Elapsed.Truncate(time.Millisecond))
	}
}

// Fields returns the counters as structured log fields.
func (r *Reporter) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("processed", r.Processed),
		zap.Int64("inserted", r.Inserted),
		zap.Int64("skipped", r.Skipped()),
		zap.Int64("hits", r.Hits),
		zap.Int64("misses", r.Misses),
		zap.Int64("duplicate_slugs", r.DuplicateSlugs),
		zap.Int64("batches", r.Batches),
		zap.Int("reference_rows", r.ReferenceRows),
		zap.Int("index_size", r.IndexSize),
		zap.Int("malformed", r.Malformed),
		zap.Int64("store_count", r.StoreCount),
		zap.Duration("elapsed", r.Elapsed),
	}
}

// Publish records the counters with the installed metrics backend. It does
// not flush.
func (r *Reporter) Publish(job string) {
	metrics.RecordRow(job, "processed", r.Processed)
	metrics.RecordRow(job, "inserted", r.Inserted)
	metrics.RecordRow(job, "hits", r.Hits)
	metrics.RecordRow(job, "misses", r.Misses)
	metrics.RecordRow(job, "duplicate_slugs", r.DuplicateSlugs)
	metrics.RecordRow(job, "malformed", int64(r.Malformed))
	metrics.RecordBatches(job, r.Batches)
}
