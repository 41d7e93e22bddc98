// Package pipeline runs one catalog seeding pass: build the reference index,
// stream the primary rows through the merge stage into the loader, flush, and
// return the run counters.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalogloader/internal/ident"
	"catalogloader/internal/loader"
	"catalogloader/internal/merge"
	"catalogloader/internal/metrics"
	"catalogloader/internal/refindex"
	"catalogloader/internal/report"
	"catalogloader/internal/tabular"
)

// Step names recorded with metrics.RecordStep.
const (
	StepIndex     = "index"
	StepMergeLoad = "merge_load"
)

// Options tunes a run. Zero values pick the package defaults.
type Options struct {
	BatchSize     int
	ProgressEvery int
	Rand          ident.Rand
	Job           string // metrics job label
}

// Files locates the two inputs.
type Files struct {
	ReferencePath  string
	ReferenceComma rune
	PrimaryPath    string
	PrimaryComma   rune
	MaxRows        int // primary row cap; 0 means unlimited
}

// counter is implemented by stores that can report their size.
type counter interface {
	Count(ctx context.Context) (int64, error)
}

// malformedCounter is implemented by *tabular.Reader.
type malformedCounter interface {
	Malformed() int
}

// RunFiles opens both inputs and calls Run. The primary file is opened only
// after the reference index is built, so a missing reference file fails
// before any store work.
func RunFiles(ctx context.Context, files Files, st loader.Store, opt Options, logger *zap.Logger) (*report.Reporter, error) {
	ref, err := tabular.Open(files.ReferencePath, tabular.Options{Comma: files.ReferenceComma})
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	primary := &lazySource{open: func() (*tabular.Reader, error) {
		return tabular.Open(files.PrimaryPath, tabular.Options{Comma: files.PrimaryComma, MaxRows: files.MaxRows})
	}}
	defer primary.Close()

	return Run(ctx, ref, primary, st, opt, logger)
}

// Run executes the pipeline against already opened sources.
func Run(ctx context.Context, ref refindex.Source, primary merge.Source, st loader.Store, opt Options, logger *zap.Logger) (*report.Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rep := report.New()
	start := time.Now()
	defer func() { rep.Elapsed = time.Since(start) }()

	t0 := time.Now()
	idx, err := refindex.Build(ref, logger)
	metrics.RecordStep(opt.Job, StepIndex, err, time.Since(t0))
	if err != nil {
		return rep, fmt.Errorf("build reference index: %w", err)
	}
	rep.ReferenceRows = idx.RowsRead()
	rep.IndexSize = idx.Len()

	t1 := time.Now()
	err = mergeAndLoad(ctx, idx, primary, st, opt, rep, logger)
	metrics.RecordStep(opt.Job, StepMergeLoad, err, time.Since(t1))

	rep.Malformed = malformed(ref) + malformed(primary)
	if err != nil {
		return rep, err
	}

	if c, ok := st.(counter); ok {
		n, err := c.Count(ctx)
		if err != nil {
			logger.Warn("store count unavailable", zap.Error(err))
		} else {
			rep.StoreCount = n
		}
	}
	return rep, nil
}

func mergeAndLoad(ctx context.Context, idx *refindex.Index, primary merge.Source, st loader.Store, opt Options, rep *report.Reporter, logger *zap.Logger) error {
	ld := loader.New(st, opt.BatchSize, rep, logger)
	m := merge.New(idx, rep, logger, merge.Options{ProgressEvery: opt.ProgressEvery, Rand: opt.Rand})

	if err := m.Run(ctx, primary, ld); err != nil {
		return err
	}
	if err := ld.Flush(ctx); err != nil {
		return err
	}
	logger.Info("input exhausted", zap.Int64("rows", m.Rows()), zap.Int64("total_inserted", rep.Inserted))
	return nil
}

func malformed(src any) int {
	if mc, ok := src.(malformedCounter); ok {
		return mc.Malformed()
	}
	return 0
}

// lazySource opens its reader on the first Next call.
type lazySource struct {
	open func() (*tabular.Reader, error)
	r    *tabular.Reader
}

func (l *lazySource) Next() (tabular.Record, error) {
	if l.r == nil {
		r, err := l.open()
		if err != nil {
			return nil, err
		}
		l.r = r
	}
	return l.r.Next()
}

func (l *lazySource) Malformed() int {
	if l.r == nil {
		return 0
	}
	return l.r.Malformed()
}

func (l *lazySource) Close() error {
	if l.r == nil {
		return nil
	}
	return l.r.Close()
}
