package helpers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spektr-org/choropleth/engine"
)

// ============================================================================
// ROW HELPERS — Parses CSV / JSON data into []engine.Row
// ============================================================================
// Consumer reads the data from wherever it lives (file, upload, store).
// This helper converts the raw bytes into generic Rows: numeric cells become
// float64, empty and NA cells become nil, everything else stays text.
// ============================================================================

// Identifier columns are always kept as text so ids such as "007" survive.
var textColumns = map[string]bool{
	engine.ColumnAreaID:    true,
	engine.ColumnSex:       true,
	engine.ColumnAge:       true,
	engine.ColumnSurvey:    true,
	engine.ColumnQuarter:   true,
	engine.ColumnIndicator: true,
	"area_name":            true,
	"parent_area_id":       true,
	"indicator_id":         true,
}

// ParseCSV parses CSV bytes into Rows. Header names are snake_cased.
// Malformed rows are skipped.
func ParseCSV(data []byte) ([]engine.Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = toSnakeCase(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows []engine.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}

		row := make(engine.Row, len(keys))
		for i, val := range record {
			if i >= len(keys) {
				break
			}
			row[keys[i]] = parseCell(keys[i], val)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ParseCSVView parses CSV into a RowView (convenience wrapper).
func ParseCSVView(data []byte) (engine.RowView, error) {
	rows, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}
	return engine.NewSliceView(rows), nil
}

// ParseJSONRows parses a JSON array of objects into Rows.
// Numbers decode as float64 and null stays nil.
func ParseJSONRows(data []byte) ([]engine.Row, error) {
	var rows []engine.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON rows: %w", err)
	}
	return rows, nil
}

// ParseRows picks the parser from the file name: ".json" is JSON,
// anything else is CSV.
func ParseRows(name string, data []byte) ([]engine.Row, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return ParseJSONRows(data)
	}
	return ParseCSV(data)
}

func parseCell(key, val string) any {
	val = strings.TrimSpace(val)
	switch val {
	case "", "NA", "N/A", "null", "NULL":
		return nil
	}
	if textColumns[key] {
		return val
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}

// toSnakeCase converts "Column Name" → "column_name".
func toSnakeCase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
