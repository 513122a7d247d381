package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSVFile(t *testing.T, path string) (bom bool, rows [][]string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	bom = bytes.HasPrefix(data, utf8BOM)
	rows, err = csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return bom, rows
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		wantBOM bool
		want    [][]string
	}{
		{
			name: "headers and records with BOM",
			options: WriteOptions{
				Headers:   []string{"a", "b"},
				Records:   [][]string{{"1", "2"}, {"3", "x,y"}},
				BOMPrefix: true,
			},
			wantBOM: true,
			want:    [][]string{{"a", "b"}, {"1", "2"}, {"3", "x,y"}},
		},
		{
			name:    "records only",
			options: WriteOptions{Records: [][]string{{"1"}}},
			want:    [][]string{{"1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "out.csv")

			require.NoError(t, NewCSVWriter(nil).WriteCSV(path, tt.options))

			bom, rows := readCSVFile(t, path)
			assert.Equal(t, tt.wantBOM, bom)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestWriteCSVTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(nil)

	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"h"}, Records: [][]string{{"old"}, {"older"}}}))
	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"h"}, Records: [][]string{{"new"}}}))

	_, rows := readCSVFile(t, path)
	assert.Equal(t, [][]string{{"h"}, {"new"}}, rows)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "20.0000", formatPercent(20))
	assert.Equal(t, "0.1235", formatPercent(0.123456))
	assert.Equal(t, "-3.5000", formatPercent(-3.5))
	assert.Equal(t, "42", formatInt(42))
}
