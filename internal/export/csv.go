// Package export renders collected product records as delimited-text tables.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/jadrxma/productfinder/internal/product"
)

// Table is a rectangular view over irregular product records. Columns are the
// union of every field name seen across the records; fields a record lacks
// render as empty cells. No normalization is applied.
type Table struct {
	Columns []string
	Rows    [][]string
}

// BuildTable flattens records into a Table. Columns are sorted alphabetically
// with source_url pinned last so exports are deterministic across runs.
func BuildTable(records []product.Record) Table {
	seen := make(map[string]struct{})
	columns := []string{}
	hasSource := false
	for _, record := range records {
		for name := range record {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if name == product.SourceURLField {
				hasSource = true
				continue
			}
			columns = append(columns, name)
		}
	}
	sort.Strings(columns)
	if hasSource {
		columns = append(columns, product.SourceURLField)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for i, name := range columns {
			value, ok := record[name]
			if !ok {
				continue
			}
			row[i] = formatCell(value)
		}
		rows = append(rows, row)
	}
	return Table{Columns: columns, Rows: rows}
}

// EncodeCSV renders the table as CSV with a header row. An empty table
// encodes to zero bytes.
func EncodeCSV(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		// Nested objects and arrays pass through as JSON text.
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
