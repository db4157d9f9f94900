// Package input parses the uploaded link files that seed a collection run.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinkColumn is the required CSV header naming the base URL column.
const LinkColumn = "link"

// ErrMissingLinkColumn is returned when the uploaded CSV has no link column.
// It is a user-facing validation failure: the run must not start.
var ErrMissingLinkColumn = errors.New(`link file must contain a "link" column with base URLs`)

// ParseLinks reads a CSV and returns the base URLs from its link column, in
// row order. Blank cells are skipped. Rows may have irregular field counts;
// rows too short to contain the link column are ignored.
func ParseLinks(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingLinkColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	linkIdx := -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if strings.TrimSpace(name) == LinkColumn {
			linkIdx = i
			break
		}
	}
	if linkIdx == -1 {
		return nil, ErrMissingLinkColumn
	}

	var links []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if linkIdx >= len(row) {
			continue
		}
		link := strings.TrimSpace(row[linkIdx])
		if link == "" {
			continue
		}
		links = append(links, link)
	}
	return links, nil
}
