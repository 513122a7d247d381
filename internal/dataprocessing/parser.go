package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	apperrors "volscan/internal/errors"
)

var errMissingColumn = errors.New("price column missing")

// ReadPriceSeries reads the price column of one price-history file.
//
// The first row is a header and is skipped. Every remaining row must carry a
// decimal in column (zero-based). Files ending in .xlsx are read from their
// first sheet; anything else is read as comma-separated text.
// A bad cell yields *errors.FileParseError and a file without price rows
// yields *errors.EmptySeriesError.
func ReadPriceSeries(path string, column int) ([]decimal.Decimal, error) {
	var (
		prices []decimal.Decimal
		err    error
	)

	if IsWorkbook(path) {
		prices, err = readWorkbook(path, column)
	} else {
		prices, err = readCSV(path, column)
	}
	if err != nil {
		return nil, err
	}

	if len(prices) == 0 {
		return nil, &apperrors.EmptySeriesError{Path: path}
	}
	return prices, nil
}

// IsWorkbook reports whether path is read as an Excel workbook
func IsWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// InstrumentName derives the instrument name from a file path: its base name without extension
func InstrumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readCSV(path string, column int) ([]decimal.Decimal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var prices []decimal.Decimal
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			row := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				row = csvErr.StartLine
			}
			return nil, &apperrors.FileParseError{Path: path, Row: row, Column: column, Cause: err}
		}
		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		price, err := parsePrice(path, line, column, record)
		if err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}

	return prices, nil
}

func readWorkbook(path string, column int) ([]decimal.Decimal, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}

	var prices []decimal.Decimal
	header := true
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if header {
			header = false
			continue
		}

		price, err := parsePrice(path, i+1, column, row)
		if err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}

	return prices, nil
}

// parsePrice extracts column from record; row is the 1-based line or sheet row
func parsePrice(path string, row, column int, record []string) (decimal.Decimal, error) {
	if column >= len(record) {
		return decimal.Decimal{}, &apperrors.FileParseError{
			Path: path, Row: row, Column: column, Cause: errMissingColumn,
		}
	}

	raw := strings.TrimSpace(record[column])
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &apperrors.FileParseError{
			Path: path, Row: row, Column: column, Value: record[column], Cause: err,
		}
	}
	return price, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
