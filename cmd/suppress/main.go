// Command suppress runs the latent-revelation suppression engine against
// a file or Postgres-backed aggregate, either once, as an HTTP service,
// or continuously against a drop directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ostrichaudit/suppress/internal/config"
	"github.com/ostrichaudit/suppress/internal/connector/file"
	"github.com/ostrichaudit/suppress/internal/connector/postgres"
	"github.com/ostrichaudit/suppress/internal/suppress"
	"github.com/ostrichaudit/suppress/internal/telemetry/logging"
	"github.com/ostrichaudit/suppress/internal/watch"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "watch":
		err = watchCommand(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "suppress:", err)
		os.Exit(exitCodeFor(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: suppress <run|serve|watch> [flags]")
	fmt.Fprintln(os.Stderr, "  suppress run --in file.csv --out out.csv --threshold 11 --non-summable month")
	fmt.Fprintln(os.Stderr, "  suppress serve --addr :8080")
	fmt.Fprintln(os.Stderr, "  suppress watch --dir ./incoming")
}

func exitCodeFor(err error) int {
	se, ok := err.(*suppress.Error)
	if !ok {
		return 1
	}
	switch se.Kind {
	case suppress.InvalidConfig:
		return 2
	case suppress.MalformedInput:
		return 3
	case suppress.InternalInvariantViolation:
		return 4
	default:
		return 1
	}
}

func loadConfig(configPath string) (config.RunConfig, error) {
	var cfg config.RunConfig
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.RunConfig) *logging.Logger {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	format := logging.TextFormat
	if strings.EqualFold(cfg.LogFormat, "json") {
		format = logging.JSONFormat
	}
	return logging.New(logging.Config{Level: level, Format: format, Output: os.Stderr})
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	in := fs.String("in", "", "input file path (CSV or JSON)")
	outPath := fs.String("out", "", "output file path (CSV or JSON)")
	threshold := fs.Int64("threshold", 0, "minimum incidence for an anonymous cell")
	nonSummable := fs.String("non-summable", "", "comma-separated non-summable dimension names")
	dimensions := fs.String("dimensions", "", "comma-separated dimension names (default: inferred from the input's columns)")
	incidenceColumn := fs.String("incidence-column", "", `input column holding the count (default "count")`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *in != "" {
		cfg.Source = config.SourceFile
		cfg.InputPath = *in
	}
	if *outPath != "" {
		cfg.OutputPath = *outPath
	}
	if *threshold > 0 {
		cfg.Suppress.Threshold = *threshold
	}
	if *nonSummable != "" {
		cfg.Suppress.NonSummableDimensions = strings.Split(*nonSummable, ",")
	}
	if *dimensions != "" {
		cfg.Suppress.Dimensions = strings.Split(*dimensions, ",")
	}
	if *incidenceColumn != "" {
		cfg.Suppress.IncidenceColumn = *incidenceColumn
	}
	if cfg.Suppress.IncidenceColumn == "" {
		cfg.Suppress.IncidenceColumn = "count"
	}
	if len(cfg.Suppress.Dimensions) == 0 && cfg.Source == config.SourceFile && cfg.InputPath != "" {
		inferred, err := file.InferDimensions(cfg.InputPath, cfg.Suppress.IncidenceColumn)
		if err != nil {
			return err
		}
		cfg.Suppress.Dimensions = inferred
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg).WithComponent("run")

	ctx := context.Background()
	rows, err := loadRows(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info("starting suppression run", map[string]interface{}{"rows": len(rows)})
	start := time.Now()
	out, err := suppress.Suppress(ctx, rows, cfg.Suppress)
	if err != nil {
		return err
	}
	logger.Info("suppression run complete", map[string]interface{}{
		"redacted_cells": out.Stats.RedactedCells,
		"total_cells":    out.Stats.TotalCells,
		"elapsed":        time.Since(start).String(),
	})

	return writeOutput(ctx, cfg, out)
}

func loadRows(ctx context.Context, cfg config.RunConfig) ([]suppress.InputRow, error) {
	switch cfg.Source {
	case config.SourcePostgres:
		conn, err := postgres.Open(ctx, postgres.Config{ConnectionString: cfg.PostgresDSN})
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return conn.ReadRows(ctx, cfg.SourceTable, cfg.Suppress)
	default:
		return file.ReadRows(cfg.InputPath, cfg.Suppress)
	}
}

func writeOutput(ctx context.Context, cfg config.RunConfig, out suppress.Output) error {
	switch cfg.Source {
	case config.SourcePostgres:
		conn, err := postgres.Open(ctx, postgres.Config{ConnectionString: cfg.PostgresDSN})
		if err != nil {
			return err
		}
		defer conn.Close()
		table := cfg.OutputTable
		if table == "" {
			table = cfg.SourceTable
		}
		return conn.WriteOutput(ctx, table, out)
	default:
		return file.WriteOutput(cfg.OutputPath, out)
	}
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	addr := fs.String("addr", ":8080", "address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	return serve(*addr, logger)
}

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	dir := fs.String("dir", ".", "directory to watch for dropped aggregate files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg).WithComponent("watch")

	w, err := watch.New(watch.Config{Extensions: []string{".csv", ".json"}})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.AddDir(*dir); err != nil {
		return err
	}

	width := progressWidth()
	logger.Info("watching for dropped aggregates", map[string]interface{}{"dir": *dir, "terminal_width": width})

	ctx := context.Background()
	for {
		select {
		case ev := <-w.Events():
			runCfg := cfg
			runCfg.InputPath = ev.Path
			rows, err := file.ReadRows(ev.Path, runCfg.Suppress)
			if err != nil {
				logger.Error("failed to read dropped file", map[string]interface{}{"path": ev.Path, "error": err.Error()})
				continue
			}
			out, err := suppress.Suppress(ctx, rows, runCfg.Suppress)
			if err != nil {
				logger.Error("suppression run failed", map[string]interface{}{"path": ev.Path, "error": err.Error()})
				continue
			}
			if err := writeOutput(ctx, runCfg, out); err != nil {
				logger.Error("failed to write output", map[string]interface{}{"path": ev.Path, "error": err.Error()})
			}
		case err := <-w.Errors():
			logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// progressWidth reports the current terminal width, falling back to 80
// columns when stderr isn't a terminal (e.g. under a process supervisor).
func progressWidth() int {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
