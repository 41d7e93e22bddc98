package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DataDir:            "./data",
		ReferenceCSV:       "ref.csv",
		PrimaryCSV:         "primary.csv",
		ReferenceDelimiter: ",",
		PrimaryDelimiter:   ";",
		BatchSize:          500,
		ProgressEvery:      1000,
		DBDriver:           "sqlite",
		Table:              "perfumes",
		MetricsBackend:     "none",
		LogLevel:           "info",
	}
}

func paths(issues []Issue) map[string]IssueSeverity {
	out := map[string]IssueSeverity{}
	for _, iss := range issues {
		out[iss.Path] = iss.Severity
	}
	return out
}

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, Validate(validConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
		sev    IssueSeverity
	}{
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size", SeverityError},
		{"negative cap", func(c *Config) { c.MaxRows = -1 }, "max_rows", SeverityError},
		{"multi-char delimiter", func(c *Config) { c.PrimaryDelimiter = ";;" }, "primary_delimiter", SeverityError},
		{"empty delimiter", func(c *Config) { c.ReferenceDelimiter = "" }, "reference_delimiter", SeverityError},
		{"quote delimiter", func(c *Config) { c.ReferenceDelimiter = `"` }, "reference_delimiter", SeverityError},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, "db_driver", SeverityError},
		{"mssql without dsn", func(c *Config) { c.DBDriver = "mssql" }, "dsn", SeverityError},
		{"bad table", func(c *Config) { c.Table = "a;b" }, "table", SeverityError},
		{"unknown metrics", func(c *Config) { c.MetricsBackend = "statsd" }, "metrics_backend", SeverityError},
		{"pushgateway without url", func(c *Config) { c.MetricsBackend = "pushgateway"; c.PushgatewayURL = "" }, "pushgateway_url", SeverityError},
		{"empty primary", func(c *Config) { c.PrimaryCSV = " " }, "primary_csv", SeverityError},
		{"odd log level", func(c *Config) { c.LogLevel = "trace" }, "log_level", SeverityWarning},
		{"negative progress", func(c *Config) { c.ProgressEvery = -1 }, "progress_every", SeverityWarning},
		{"redundant dry run", func(c *Config) { c.DBDriver = "memory"; c.DryRun = true }, "dry_run", SeverityWarning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			issues := Validate(cfg)
			require.NotEmpty(t, issues)
			got, ok := paths(issues)[tc.path]
			require.True(t, ok, "no issue at %s: %v", tc.path, issues)
			assert.Equal(t, tc.sev, got)
			assert.Equal(t, tc.sev == SeverityError, HasErrors(issues))
		})
	}
}

func TestValidate_MSSQLDryRunNeedsNoDSN(t *testing.T) {
	cfg := validConfig()
	cfg.DBDriver = "mssql"
	cfg.DryRun = true
	assert.False(t, HasErrors(Validate(cfg)))
}

func TestIssueError(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "batch_size", Message: "must be > 0"}
	assert.Equal(t, "error at batch_size: must be > 0", iss.Error())
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, ';', Delimiter(";", ','))
	assert.Equal(t, ',', Delimiter("", ','))
	assert.Equal(t, '\t', Delimiter("\t", ','))
}
