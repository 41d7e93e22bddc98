package config

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"catalogloader/internal/store"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is the flag name.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is error-severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg. It does not touch the filesystem
// or the network.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.BatchSize <= 0 {
		add(SeverityError, "batch_size", "must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.MaxRows < 0 {
		add(SeverityError, "max_rows", "must be >= 0, got %d", cfg.MaxRows)
	}
	if cfg.ProgressEvery < 0 {
		add(SeverityWarning, "progress_every", "negative value disables progress lines")
	}

	for path, d := range map[string]string{
		"reference_delimiter": cfg.ReferenceDelimiter,
		"primary_delimiter":   cfg.PrimaryDelimiter,
	} {
		if utf8.RuneCountInString(d) != 1 {
			add(SeverityError, path, "must be a single character, got %q", d)
			continue
		}
		if r, _ := utf8.DecodeRuneInString(d); r == '"' || r == '\r' || r == '\n' {
			add(SeverityError, path, "%q cannot be used as a delimiter", d)
		}
	}

	if strings.TrimSpace(cfg.ReferenceCSV) == "" {
		add(SeverityError, "reference_csv", "must not be empty")
	}
	if strings.TrimSpace(cfg.PrimaryCSV) == "" {
		add(SeverityError, "primary_csv", "must not be empty")
	}

	if !slices.Contains(store.Drivers, cfg.DBDriver) {
		add(SeverityError, "db_driver", "unknown driver %q; want one of %s", cfg.DBDriver, strings.Join(store.Drivers, ", "))
	}
	if cfg.DBDriver == store.DriverMSSQL && cfg.DSN == "" && !cfg.DryRun {
		add(SeverityError, "dsn", "dsn is required for mssql")
	}
	if err := store.ValidateTable(cfg.Table); err != nil {
		add(SeverityError, "table", "%v", err)
	}
	if cfg.DryRun && cfg.DBDriver == store.DriverMemory {
		add(SeverityWarning, "dry_run", "redundant with db_driver=memory")
	}

	switch cfg.MetricsBackend {
	case "none", "":
	case "pushgateway":
		if strings.TrimSpace(cfg.PushgatewayURL) == "" {
			add(SeverityError, "pushgateway_url", "required when metrics_backend=pushgateway")
		}
	default:
		add(SeverityError, "metrics_backend", "unknown backend %q; want none or pushgateway", cfg.MetricsBackend)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		add(SeverityWarning, "log_level", "unknown level %q; info will be used", cfg.LogLevel)
	}

	slices.SortStableFunc(issues, func(a, b Issue) int { return strings.Compare(a.Path, b.Path) })
	return issues
}

// Delimiter returns the first rune of s, or fallback when s is empty.
func Delimiter(s string, fallback rune) rune {
	if r, size := utf8.DecodeRuneInString(s); size > 0 {
		return r
	}
	return fallback
}
