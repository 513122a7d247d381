// Package dataprocessing reads per-instrument price histories.
//
// A price file has one header row followed by one row per observation. The
// price sits in a fixed zero-based column (2 by default) and must parse as a
// decimal. Comma-separated files and Excel workbooks are both accepted:
//
//	prices, err := dataprocessing.ReadPriceSeries("trades/TICKER_AFH9.csv", 2)
//	if err != nil {
//	    // *errors.FileParseError names the file, row and offending value
//	    // *errors.EmptySeriesError means the file had no price rows
//	}
//
// Rows are numbered as a spreadsheet would show them: the header is row 1.
package dataprocessing
