package extraction

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ExtractCSV reads every data row of a CSV file and returns the rows whose
// combined column text is longer than MinBlockLength. The first row is treated
// as the header. Column names are ignored, so any schema works.
func ExtractCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Format: "csv", Cause: err}
	}
	defer func() { _ = f.Close() }()

	texts, err := extractCSVRows(f)
	if err != nil {
		return nil, &ExtractionError{Path: path, Format: "csv", Cause: err}
	}
	return texts, nil
}

func extractCSVRows(r io.Reader) ([]string, error) {
	reader := newCSVReader(r)

	// Header row
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []string{}, nil
		}
		return nil, err
	}

	texts := []string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		combined := collapseWhitespace(strings.Join(record, " "))
		if utf8.RuneCountInString(combined) > MinBlockLength {
			texts = append(texts, combined)
		}
	}

	return texts, nil
}

// readCSVRecords drains a CSV file into header-keyed records.
// Rows shorter than the header leave the missing columns empty.
func readCSVRecords(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Format: "csv", Cause: err}
	}
	defer func() { _ = f.Close() }()

	reader := newCSVReader(f)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ExtractionError{Path: path, Format: "csv", Cause: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ExtractionError{Path: path, Format: "csv", Cause: err}
		}
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}
