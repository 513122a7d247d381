// Package exporter writes the full volatility ranking of a run to disk.
//
// CSVWriter is the low-level writer, with an optional UTF-8
// BOM so spreadsheet tools detect the encoding. RankingExporter builds on it
// and chooses CSV or JSON from the target file's extension:
//
//	exp := exporter.NewRankingExporter(logger)
//	err := exp.Export("reports/volatility.csv", rep, exporter.Metadata{RunID: runID})
package exporter
