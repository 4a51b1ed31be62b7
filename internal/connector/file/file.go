// Package file connects the suppression engine to flat files: CSV or
// JSON aggregates in, the projected output back out in the same format.
package file

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ostrichaudit/suppress/internal/suppress"
)

// ReadRows loads InputRows from path, dispatching on its extension
// (".csv" or ".json"). In a CSV file, Config.IncidenceColumn is parsed as
// an integer and an empty field in any other column becomes nil (the null
// category); all other values, and every value of a JSON file, are passed
// through as decoded.
func ReadRows(path string, cfg suppress.Config) ([]suppress.InputRow, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(path, cfg)
	case ".json":
		return readJSON(path)
	default:
		return nil, fmt.Errorf("file: unsupported input extension %q", ext)
	}
}

func readCSV(path string, cfg suppress.Config) ([]suppress.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("file: reading header from %s: %w", path, err)
	}

	var rows []suppress.InputRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("file: reading %s: %w", path, err)
		}
		row := make(suppress.InputRow, len(header))
		for i, col := range header {
			if i >= len(record) {
				continue
			}
			if col == cfg.IncidenceColumn {
				n, err := strconv.ParseInt(strings.TrimSpace(record[i]), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("file: %s column %q: %w", path, col, err)
				}
				row[col] = n
				continue
			}
			if record[i] == "" {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readJSON(path string) ([]suppress.InputRow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file: reading %s: %w", path, err)
	}
	var rows []suppress.InputRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("file: parsing %s: %w", path, err)
	}
	return rows, nil
}

// WriteOutput serializes out to path, dispatching on its extension.
func WriteOutput(path string, out suppress.Output) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSV(path, out)
	case ".json":
		return writeJSON(path, out)
	default:
		return fmt.Errorf("file: unsupported output extension %q", ext)
	}
}

func writeJSON(path string, out suppress.Output) error {
	b, err := json.MarshalIndent(out.Rows, "", "  ")
	if err != nil {
		return fmt.Errorf("file: marshaling output: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("file: writing %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, out suppress.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("file: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	dims := dimensionHeader(out)
	header := append(append([]string(nil), dims...), "incidence", "is_redacted", "redaction_reason")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("file: writing header: %w", err)
	}

	for _, row := range out.Rows {
		record := make([]string, 0, len(header))
		for _, d := range dims {
			v := row.Dims[d]
			if v == nil {
				record = append(record, "")
			} else {
				record = append(record, *v)
			}
		}
		record = append(record, fmt.Sprint(row.Incidence))
		record = append(record, strconv.FormatBool(row.IsRedacted))
		if row.RedactionReason != nil {
			record = append(record, *row.RedactionReason)
		} else {
			record = append(record, "")
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("file: writing row: %w", err)
		}
	}
	return nil
}

// InferDimensions reads path's rows and returns every column name except
// incidenceColumn, sorted, for callers (the CLI's `run` command) that
// don't have an explicit dimension list.
func InferDimensions(path, incidenceColumn string) ([]string, error) {
	rows, err := ReadRows(path, suppress.Config{IncidenceColumn: incidenceColumn})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file: cannot infer dimensions from empty %s", path)
	}
	dims := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		if k == incidenceColumn {
			continue
		}
		dims = append(dims, k)
	}
	return sortedCopy(dims), nil
}

func dimensionHeader(out suppress.Output) []string {
	if len(out.Rows) == 0 {
		return nil
	}
	dims := make([]string, 0, len(out.Rows[0].Dims))
	for d := range out.Rows[0].Dims {
		dims = append(dims, d)
	}
	return sortedCopy(dims)
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
