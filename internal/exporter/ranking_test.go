package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volscan/internal/report"
	"volscan/internal/volatility"
)

func sampleReport() report.Report {
	agg := volatility.NewAggregate()
	agg.Volatility["TICKER_AFH9"] = 20
	agg.Volatility["TICKER_BRH9"] = 7.5
	agg.Volatility["TICKER_CLH9"] = 12.25
	agg.Zero.Add("TICKER_PDH9")
	return report.Build(agg)
}

func sampleMeta() Metadata {
	return Metadata{
		RunID:       "5f0c6d8e-1111-4222-8333-944455556666",
		Root:        "trades",
		Workers:     2,
		Files:       4,
		GeneratedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "volatility.csv")

	require.NoError(t, NewRankingExporter(nil).Export(path, sampleReport(), sampleMeta()))

	bom, rows := readCSVFile(t, path)
	assert.True(t, bom)
	assert.Equal(t, [][]string{
		RankingHeaders,
		{"1", "TICKER_AFH9", "20.0000", StatusRanked},
		{"2", "TICKER_CLH9", "12.2500", StatusRanked},
		{"3", "TICKER_BRH9", "7.5000", StatusRanked},
		{"", "TICKER_PDH9", "", StatusDegenerate},
	}, rows)
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volatility.JSON")

	require.NoError(t, NewRankingExporter(nil).Export(path, sampleReport(), sampleMeta()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		Metadata map[string]interface{} `json:"metadata"`
		Top      []report.Entry         `json:"top"`
		Bottom   []report.Entry         `json:"bottom"`
		Ranked   []report.Entry         `json:"ranked"`
		Zero     []string               `json:"zero"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "5f0c6d8e-1111-4222-8333-944455556666", out.Metadata["run_id"])
	assert.Equal(t, "2026-03-02T09:30:00Z", out.Metadata["generated_at"])
	assert.EqualValues(t, 1.5, out.Metadata["duration_seconds"])
	assert.EqualValues(t, 3, out.Metadata["ranked_count"])
	require.Len(t, out.Ranked, 3)
	assert.Equal(t, "TICKER_AFH9", out.Top[0].Instrument)
	assert.Equal(t, 1, out.Top[0].Rank)
	assert.Equal(t, []string{"TICKER_PDH9"}, out.Zero)
}

func TestExportUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err := NewRankingExporter(nil).Export(filepath.Join(blocker, "out.csv"), sampleReport(), sampleMeta())
	assert.Error(t, err)
}
