// Package config centralizes the seeding run's configuration. Every tunable
// is a command-line flag whose default is seeded from an environment variable,
// so `-help` lists every knob and a flag always beats the environment.
//
// Typical usage:
//
//	cfg := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-batch_size=50"})
package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration derived from flags and environment
// variables. It is a plain value and safe to copy after construction.
type Config struct {
	// Inputs.
	DataDir            string
	ReferenceCSV       string // auxiliary file, resolved against DataDir
	PrimaryCSV         string // primary file, resolved against DataDir
	ReferenceDelimiter string
	PrimaryDelimiter   string
	MaxRows            int // primary row cap; 0 means unlimited

	// Loading.
	BatchSize     int
	ProgressEvery int

	// Store.
	DBDriver    string // sqlite, postgres, mssql or memory
	DSN         string
	DBUser      string // Postgres convenience fields, used when DSN is empty
	DBPassword  string
	DBHost      string
	DBPort      string
	DBName      string
	Table       string
	CreateTable bool
	DryRun      bool

	// Observability.
	MetricsBackend string // none or pushgateway
	PushgatewayURL string
	Job            string
	LogLevel       string

	// ValidateOnly prints configuration issues and exits.
	ValidateOnly bool
}

// ReferencePath is the auxiliary file path.
func (c *Config) ReferencePath() string { return c.resolve(c.ReferenceCSV) }

// PrimaryPath is the primary file path.
func (c *Config) PrimaryPath() string { return c.resolve(c.PrimaryCSV) }

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// LoadFromArgs builds a Config by defining flags on fs, seeding each flag's
// default from getenv, and parsing args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		return parseBool(getenv(k), d)
	}

	// Inputs
	fs.StringVar(&cfg.DataDir, "data_dir", envOrDefaultFn("DATA_DIR", "./data"), "Directory holding the input files")
	fs.StringVar(&cfg.ReferenceCSV, "reference_csv", envOrDefaultFn("REFERENCE_CSV", "fra_perfumes.csv"), "Auxiliary file with url, Description, Perfumers")
	fs.StringVar(&cfg.PrimaryCSV, "primary_csv", envOrDefaultFn("PRIMARY_CSV", "fra_cleaned.csv"), "Primary catalog file")
	fs.StringVar(&cfg.ReferenceDelimiter, "reference_delimiter", envOrDefaultFn("REFERENCE_DELIMITER", ","), "Field delimiter of the auxiliary file")
	fs.StringVar(&cfg.PrimaryDelimiter, "primary_delimiter", envOrDefaultFn("PRIMARY_DELIMITER", ";"), "Field delimiter of the primary file")
	fs.IntVar(&cfg.MaxRows, "max_rows", intEnvOrDefaultFn("MAX_ROWS", 0), "Read at most this many primary rows (0 = all)")

	// Loading
	fs.IntVar(&cfg.BatchSize, "batch_size", intEnvOrDefaultFn("BATCH_SIZE", 500), "Records per insert batch")
	fs.IntVar(&cfg.ProgressEvery, "progress_every", intEnvOrDefaultFn("PROGRESS_EVERY", 1000), "Log merge progress every N rows")

	// Store
	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefaultFn("DB_DRIVER", "sqlite"), "Store: sqlite, postgres, mssql or memory")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for mssql)")
	fs.StringVar(&cfg.DBUser, "db_user", envOrDefaultFn("DB_USER", "user"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", envOrDefaultFn("DB_PASSWORD", "password"), "DB password")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefaultFn("DB_HOST", "localhost"), "DB host")
	fs.StringVar(&cfg.DBPort, "db_port", envOrDefaultFn("DB_PORT", "5432"), "DB port")
	fs.StringVar(&cfg.DBName, "db_name", envOrDefaultFn("DB_NAME", "catalog"), "DB name")
	fs.StringVar(&cfg.Table, "table", envOrDefaultFn("DB_TABLE", "perfumes"), "Catalog table")
	fs.BoolVar(&cfg.CreateTable, "create_table", boolEnvOrDefaultFn("CREATE_TABLE", true), "Create the catalog table if missing")
	fs.BoolVar(&cfg.DryRun, "dry_run", boolEnvOrDefaultFn("DRY_RUN", false), "Load into memory instead of the configured store")

	// Observability
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", "none"), "Metrics backend: none or pushgateway")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", envOrDefaultFn("PUSHGATEWAY_URL", "http://localhost:9091"), "Pushgateway base URL")
	fs.StringVar(&cfg.Job, "job", envOrDefaultFn("JOB_NAME", "catalog_seed"), "Job name for metrics")
	fs.StringVar(&cfg.LogLevel, "log_level", envOrDefaultFn("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.BoolVar(&cfg.ValidateOnly, "validate", false, "Validate configuration and exit")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is the production entry point. It reads an optional .env file (or the
// file named by ENV_FILE), then parses os.Args against flag.CommandLine.
func Load() (*Config, error) {
	if err := LoadDotEnv(envOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// LoadDotEnv merges path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// envOrDefault returns the value of environment variable k if set,
// otherwise d.
func envOrDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// parseBool accepts 1/0, true/false, yes/no and on/off in any case. Anything
// else yields d.
func parseBool(v string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}
