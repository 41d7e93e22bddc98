// Package loader buffers canonical records and hands them to a store in
// fixed-size batches. Each batch is a single insert that skips rows whose
// slug already exists, so a run can be repeated safely.
//
// A failed batch is fatal: the error is returned wrapped in ErrBatchFailed and
// nothing is retried.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalogloader/internal/catalog"
	"catalogloader/internal/report"
)

// DefaultBatchSize is used when New receives a non-positive size.
const DefaultBatchSize = 500

// ErrBatchFailed wraps every store error surfaced by Add or Flush.
var ErrBatchFailed = errors.New("loader: batch insert failed")

// Store is the one capability the loader needs: insert many records, skip
// those that collide on the unique key, report how many were inserted.
type Store interface {
	InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, recs []catalog.Record) (int64, error)

// InsertSkipDuplicates calls f.
func (f StoreFunc) InsertSkipDuplicates(ctx context.Context, recs []catalog.Record) (int64, error) {
	return f(ctx, recs)
}

// Loader owns the batch buffer. Not safe for concurrent use.
type Loader struct {
	store  Store
	size   int
	rep    *report.Reporter
	logger *zap.Logger

	batch     []catalog.Record
	start     time.Time
	lastFlush time.Time
}

// New returns a Loader writing to store.
func New(store Store, batchSize int, rep *report.Reporter, logger *zap.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if rep == nil {
		rep = report.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Loader{
		store:     store,
		size:      batchSize,
		rep:       rep,
		logger:    logger,
		batch:     make([]catalog.Record, 0, batchSize),
		start:     now,
		lastFlush: now,
	}
}

// Add buffers rec and flushes when the batch is full.
func (l *Loader) Add(ctx context.Context, rec catalog.Record) error {
	l.batch = append(l.batch, rec)
	l.rep.Processed++
	if len(l.batch) >= l.size {
		return l.Flush(ctx)
	}
	return nil
}

// Flush submits whatever is buffered. It is a no-op on an empty buffer and
// must be called once after the last Add.
func (l *Loader) Flush(ctx context.Context) error {
	if len(l.batch) == 0 {
		return nil
	}
	size := len(l.batch)
	n, err := l.store.InsertSkipDuplicates(ctx, l.batch)

	// Keep capacity; the store must not retain the slice.
	l.batch = l.batch[:0]

	if err != nil {
		l.logger.Error("batch insert failed",
			zap.Int64("batch", l.rep.Batches+1),
			zap.Int("size", size),
			zap.Int64("total_inserted", l.rep.Inserted),
			zap.Error(err),
		)
		return fmt.Errorf("%w: batch #%d (%d records): %w", ErrBatchFailed, l.rep.Batches+1, size, err)
	}

	l.rep.Batches++
	l.rep.Inserted += n

	now := time.Now()
	since := now.Sub(l.lastFlush)
	rps := float64(0)
	if since > 0 {
		rps = float64(size) / since.Seconds()
	}
	l.logger.Info("batch flushed",
		zap.Int64("batch", l.rep.Batches),
		zap.Int("size", size),
		zap.Int64("inserted", n),
		zap.Int64("skipped", int64(size)-n),
		zap.Int64("total_inserted", l.rep.Inserted),
		zap.Float64("rps", rps),
		zap.Duration("elapsed", now.Sub(l.start).Truncate(time.Millisecond)),
	)
	l.lastFlush = now
	return nil
}

// Pending is the number of buffered records not yet flushed.
func (l *Loader) Pending() int { return len(l.batch) }
