package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostrichaudit/suppress/internal/suppress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVParsesIncidenceColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("age,sex,count\n35,M,3\n25,F,20\n"), 0o644))

	cfg := suppress.Config{IncidenceColumn: "count"}
	rows, err := ReadRows(path, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0]["count"])
	assert.Equal(t, "M", rows[0]["sex"])
}

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"age":"35","sex":"M","count":3}]`), 0o644))

	rows, err := ReadRows(path, suppress.Config{IncidenceColumn: "count"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "35", rows[0]["age"])
}

func TestWriteCSVWritesHeader(t *testing.T) {
	cfg := suppress.Config{Dimensions: []string{"age"}, Threshold: 11, IncidenceColumn: "count"}
	out, err := suppress.Suppress(context.Background(), []suppress.InputRow{
		{"age": "35", "count": 3},
		{"age": "25", "count": 20},
	}, cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteOutput(path, out))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "age,incidence,is_redacted,redaction_reason")
}
