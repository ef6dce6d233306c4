// Package csv reads work items from and exports fetch results to CSV files.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/wikifetch"
)

// Default column names.
const (
	DefaultKeyColumn  = "player_qid"
	DefaultNameColumn = "player_name"
)

var _ wikifetch.WorkItemSource = (*WorkItemSource)(nil)

// WorkItemSource reads work items from a CSV file with a header row.
// Every column other than the key and name columns is carried through as a
// work item field.
type WorkItemSource struct {
	Path       string
	KeyColumn  string
	NameColumn string
}

// NewWorkItemSource returns a WorkItemSource using the default columns.
func NewWorkItemSource(path string) *WorkItemSource {
	return &WorkItemSource{
		Path:       path,
		KeyColumn:  DefaultKeyColumn,
		NameColumn: DefaultNameColumn,
	}
}

// ReadWorkItems implements wikifetch.WorkItemSource.
func (s *WorkItemSource) ReadWorkItems(ctx context.Context) ([]*wikifetch.WorkItem, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wikifetch.Errorf(wikifetch.ENOTFOUND, "input file not found: %s", s.Path)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return ReadWorkItems(ctx, f, s.KeyColumn, s.NameColumn)
}

// ReadWorkItems parses work items from r. Rows with an empty key or name are
// skipped.
func ReadWorkItems(ctx context.Context, r io.Reader, keyColumn, nameColumn string) ([]*wikifetch.WorkItem, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	if nameColumn == "" {
		nameColumn = DefaultNameColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "input has no header row")
	} else if err != nil {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "read header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	keyIdx, nameIdx := -1, -1
	for i, col := range header {
		switch col {
		case keyColumn:
			keyIdx = i
		case nameColumn:
			nameIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "input is missing column %q", keyColumn)
	}
	if nameIdx < 0 {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "input is missing column %q", nameColumn)
	}

	var items []*wikifetch.WorkItem
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, wikifetch.Errorf(wikifetch.EINVALID, "read input: %v", err)
		}

		item := &wikifetch.WorkItem{
			Key:         strings.TrimSpace(cell(record, keyIdx)),
			DisplayName: strings.TrimSpace(cell(record, nameIdx)),
			Fields:      make(map[string]string, len(header)),
		}
		if item.Validate() != nil {
			continue
		}
		for i, col := range header {
			if i == keyIdx || i == nameIdx || col == "" {
				continue
			}
			item.Fields[col] = cell(record, i)
		}
		items = append(items, item)
	}
	return items, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
