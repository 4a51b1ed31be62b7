// Package config loads the settings a suppression run needs beyond the
// core engine parameters: where input comes from, where output goes, and
// how the run should log. Precedence follows the teacher's convention:
// environment variables override the config file, which overrides
// built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ostrichaudit/suppress/internal/suppress"
)

// SourceKind names where rows are read from.
type SourceKind string

const (
	SourceFile     SourceKind = "file"
	SourcePostgres SourceKind = "postgres"
)

// RunConfig is the full configuration for one `suppress run` invocation.
type RunConfig struct {
	Suppress suppress.Config `json:"suppress"`

	Source     SourceKind `json:"source"`
	InputPath  string     `json:"input_path"`
	OutputPath string     `json:"output_path"`

	// PostgresDSN is required when Source is SourcePostgres.
	PostgresDSN  string `json:"postgres_dsn"`
	SourceTable  string `json:"source_table"`
	OutputTable  string `json:"output_table"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// Default returns a RunConfig that reads from a file source and logs at
// info level in text format; no input or output path is set, and the
// engine options are left at their zero values.
func Default() RunConfig {
	return RunConfig{
		Source:    SourceFile,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFile reads a JSON config file, starting from Default() so missing
// fields retain their defaults.
func LoadFile(path string) (RunConfig, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// envPrefix namespaces every override so the process's environment
// can't accidentally collide with an unrelated variable.
const envPrefix = "SUPPRESS_"

// ApplyEnvOverrides mutates cfg in place from SUPPRESS_*-prefixed
// environment variables, the highest-precedence configuration source.
func (c *RunConfig) ApplyEnvOverrides() error {
	if v := os.Getenv(envPrefix + "THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %sTHRESHOLD: %w", envPrefix, err)
		}
		c.Suppress.Threshold = n
	}
	if v := os.Getenv(envPrefix + "DIMENSIONS"); v != "" {
		c.Suppress.Dimensions = strings.Split(v, ",")
	}
	if v := os.Getenv(envPrefix + "NON_SUMMABLE_DIMENSIONS"); v != "" {
		c.Suppress.NonSummableDimensions = strings.Split(v, ",")
	}
	if v := os.Getenv(envPrefix + "INCIDENCE_COLUMN"); v != "" {
		c.Suppress.IncidenceColumn = v
	}
	if v := os.Getenv(envPrefix + "FIRST_ORDER_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sFIRST_ORDER_ONLY: %w", envPrefix, err)
		}
		c.Suppress.FirstOrderOnly = b
	}
	if v := os.Getenv(envPrefix + "MAX_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sMAX_PARALLELISM: %w", envPrefix, err)
		}
		c.Suppress.MaxParallelism = n
	}
	if v := os.Getenv(envPrefix + "SOURCE"); v != "" {
		c.Source = SourceKind(v)
	}
	if v := os.Getenv(envPrefix + "INPUT_PATH"); v != "" {
		c.InputPath = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_PATH"); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv(envPrefix + "POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the connector-level settings Validate on suppress.Config
// doesn't cover.
func (c RunConfig) Validate() error {
	if err := c.Suppress.Validate(); err != nil {
		return err
	}
	switch c.Source {
	case SourceFile:
		if c.InputPath == "" {
			return fmt.Errorf("config: source is %q but input_path is empty", SourceFile)
		}
	case SourcePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: source is %q but postgres_dsn is empty", SourcePostgres)
		}
		if c.SourceTable == "" {
			return fmt.Errorf("config: source is %q but source_table is empty", SourcePostgres)
		}
	default:
		return fmt.Errorf("config: unknown source %q", c.Source)
	}
	return nil
}
