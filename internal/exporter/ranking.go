package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"volscan/internal/files"
	"volscan/internal/infrastructure"
	"volscan/internal/report"
)

// Status values written in the status column
const (
	StatusRanked     = "ranked"
	StatusDegenerate = "zero"
)

// RankingHeaders is the header row of a ranking CSV
var RankingHeaders = []string{"rank", "instrument", "volatility_pct", "status"}

// Metadata describes the run an export came from
type Metadata struct {
	RunID       string        `json:"run_id"`
	Root        string        `json:"root"`
	Workers     int           `json:"workers"`
	Files       int           `json:"files"`
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"-"`
}

// RankingExporter writes the full ranking of a run to disk
type RankingExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewRankingExporter creates a ranking exporter
func NewRankingExporter(logger *slog.Logger) *RankingExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingExporter{
		csv:    NewCSVWriter(logger),
		logger: infrastructure.WithComponent(logger, "exporter"),
	}
}

// Export picks the format from the file extension: .json, otherwise CSV
func (e *RankingExporter) Export(path string, r report.Report, meta Metadata) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return e.SaveToJSON(path, r, meta)
	}
	return e.SaveToCSV(path, r, meta)
}

// SaveToCSV writes ranked instruments followed by degenerate ones
func (e *RankingExporter) SaveToCSV(path string, r report.Report, meta Metadata) error {
	records := make([][]string, 0, len(r.Ranked)+len(r.Zero))
	for _, entry := range r.Ranked {
		records = append(records, []string{
			formatInt(entry.Rank),
			entry.Instrument,
			formatPercent(entry.Volatility),
			StatusRanked,
		})
	}
	for _, name := range r.Zero {
		records = append(records, []string{"", name, "", StatusDegenerate})
	}

	if err := e.csv.WriteCSV(path, WriteOptions{
		Headers:   RankingHeaders,
		Records:   records,
		BOMPrefix: true,
	}); err != nil {
		return fmt.Errorf("export ranking to %s: %w", path, err)
	}

	e.logger.Info("Exported ranking",
		slog.String("path", path),
		slog.String("format", "csv"),
		slog.String("run_id", meta.RunID),
		slog.Int("rows", len(records)))
	return nil
}

// SaveToJSON writes the report with run metadata as indented JSON
func (e *RankingExporter) SaveToJSON(path string, r report.Report, meta Metadata) error {
	if err := files.EnsureParentDir(path); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	output := map[string]interface{}{
		"metadata": map[string]interface{}{
			"run_id":           meta.RunID,
			"root":             meta.Root,
			"workers":          meta.Workers,
			"files":            meta.Files,
			"generated_at":     meta.GeneratedAt.Format(time.RFC3339),
			"duration_seconds": meta.Duration.Seconds(),
			"ranked_count":     len(r.Ranked),
			"zero_count":       len(r.Zero),
		},
		"top":    r.Top,
		"bottom": r.Bottom,
		"ranked": r.Ranked,
		"zero":   r.Zero,
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	e.logger.Info("Exported ranking",
		slog.String("path", path),
		slog.String("format", "json"),
		slog.String("run_id", meta.RunID))
	return file.Close()
}
