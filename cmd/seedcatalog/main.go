// Command seedcatalog seeds the fragrance catalog from the two tabular
// exports. It is a thin composition layer: configuration, store selection,
// metrics wiring and the run summary. Side effects are injected through Deps
// so run() can be tested without a database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalogloader/internal/config"
	"catalogloader/internal/logging"
	"catalogloader/internal/metrics"
	"catalogloader/internal/metrics/prompush"
	"catalogloader/internal/pipeline"
	"catalogloader/internal/report"
	"catalogloader/internal/store"
	"catalogloader/internal/store/memory"
	"catalogloader/internal/store/mssql"
	"catalogloader/internal/store/postgres"
	"catalogloader/internal/store/sqlite"
)

// Deps holds injectable dependencies so run() is fully testable.
type Deps struct {
	// Store constructors
	OpenSQLite   func(dsn, table string) (store.Catalog, error)
	OpenPostgres func(ctx context.Context, dsn, table string) (store.Catalog, error)
	OpenMSSQL    func(ctx context.Context, dsn, table string) (store.Catalog, error)
	NewMemory    func() store.Catalog

	// Metrics backend constructor for -metrics_backend=pushgateway.
	NewPushBackend func(job, url, runID string) (metrics.Backend, error)

	// Pipeline entrypoint
	RunPipeline func(ctx context.Context, files pipeline.Files, st store.Catalog, opt pipeline.Options, logger *zap.Logger) (*report.Reporter, error)

	Logger   *zap.Logger
	Stdout   io.Writer
	NewRunID func() string
}

// defaultDeps wires production implementations. Tests should inject fakes.
func defaultDeps(logger *zap.Logger) Deps {
	return Deps{
		OpenSQLite: func(dsn, table string) (store.Catalog, error) {
			return sqlite.Open(dsn, table)
		},
		OpenPostgres: func(ctx context.Context, dsn, table string) (store.Catalog, error) {
			return postgres.Open(ctx, dsn, table)
		},
		OpenMSSQL: func(ctx context.Context, dsn, table string) (store.Catalog, error) {
			return mssql.Open(ctx, dsn, table)
		},
		NewMemory: func() store.Catalog { return memory.New() },
		NewPushBackend: func(job, url, runID string) (metrics.Backend, error) {
			return prompush.NewBackend(job, url, runID)
		},
		RunPipeline: func(ctx context.Context, files pipeline.Files, st store.Catalog, opt pipeline.Options, logger *zap.Logger) (*report.Reporter, error) {
			return pipeline.RunFiles(ctx, files, st, opt, logger)
		},
		Logger:   logger,
		Stdout:   os.Stdout,
		NewRunID: func() string { return uuid.NewString() },
	}
}

// openStore picks the store for cfg. A dry run always uses memory.
func openStore(ctx context.Context, cfg *config.Config, deps Deps) (store.Catalog, error) {
	driver := cfg.DBDriver
	if cfg.DryRun {
		driver = store.DriverMemory
	}

	switch driver {
	case store.DriverSQLite:
		return deps.OpenSQLite(cfg.DSN, cfg.Table)

	case store.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = postgres.BuildDSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		}
		return deps.OpenPostgres(ctx, dsn, cfg.Table)

	case store.DriverMSSQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("--dsn required for mssql")
		}
		return deps.OpenMSSQL(ctx, cfg.DSN, cfg.Table)

	case store.DriverMemory:
		return deps.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unsupported --db_driver=%q", cfg.DBDriver)
	}
}

// run executes one seeding pass:
//
//  1. Validates cfg; -validate stops here.
//  2. Installs the metrics backend, if any.
//  3. Opens the store and bootstraps the schema.
//  4. Runs the pipeline and prints the summary.
//  5. Closes the store and flushes metrics.
func run(ctx context.Context, cfg *config.Config, deps Deps) (err error) {
	runID := deps.NewRunID()
	logger := deps.Logger.With(zap.String("run_id", runID), zap.String("job", cfg.Job))

	issues := config.Validate(cfg)
	for _, iss := range issues {
		if cfg.ValidateOnly {
			fmt.Fprintf(deps.Stdout, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
		if iss.Severity == config.SeverityWarning {
			logger.Warn("config issue", zap.String("path", iss.Path), zap.String("message", iss.Message))
		}
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("invalid configuration: %w", issues[firstError(issues)])
	}
	if cfg.ValidateOnly {
		fmt.Fprintln(deps.Stdout, "configuration OK")
		return nil
	}

	if cfg.MetricsBackend == "pushgateway" {
		b, err := deps.NewPushBackend(cfg.Job, cfg.PushgatewayURL, runID)
		if err != nil {
			return fmt.Errorf("metrics backend: %w", err)
		}
		metrics.SetBackend(b)
		defer func() {
			if ferr := metrics.Flush(); ferr != nil {
				logger.Warn("metrics push failed", zap.Error(ferr))
			}
		}()
	}

	st, err := openStore(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()

	if cfg.CreateTable {
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	logger.Info("seeding catalog",
		zap.String("reference", cfg.ReferencePath()),
		zap.String("primary", cfg.PrimaryPath()),
		zap.String("driver", cfg.DBDriver),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("max_rows", cfg.MaxRows),
	)

	files := pipeline.Files{
		ReferencePath:  cfg.ReferencePath(),
		ReferenceComma: config.Delimiter(cfg.ReferenceDelimiter, ','),
		PrimaryPath:    cfg.PrimaryPath(),
		PrimaryComma:   config.Delimiter(cfg.PrimaryDelimiter, ';'),
		MaxRows:        cfg.MaxRows,
	}
	opt := pipeline.Options{
		BatchSize:     cfg.BatchSize,
		ProgressEvery: cfg.ProgressEvery,
		Job:           cfg.Job,
	}

	rep, err := deps.RunPipeline(ctx, files, st, opt, logger)
	if rep != nil {
		rep.Publish(cfg.Job)
	}
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	logger.Info("seed complete", rep.Fields()...)
	rep.Print(deps.Stdout)
	return nil
}

func firstError(issues []config.Issue) int {
	for i, iss := range issues {
		if iss.Severity == config.SeverityError {
			return i
		}
	}
	return 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, defaultDeps(logger)); err != nil {
		logger.Error("seedcatalog failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
