// Package tablecsv writes normalized tables to CSV files.
package tablecsv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mickolasjae/okta-workflows-backup/internal/fileutils"
)

// Writer serializes headers and records to RFC4180 CSV text. The excluded
// column set mirrors the normalizer's and is applied once more on write.
type Writer struct {
	excluded map[string]struct{}
}

// New returns a Writer which never emits the given column names.
func New(excluded []string) *Writer {
	ex := make(map[string]struct{}, len(excluded))
	for _, c := range excluded {
		ex[c] = struct{}{}
	}
	return &Writer{excluded: ex}
}

// Write renders the table and writes it to path, creating intermediate
// directories as needed. The whole buffer is built before the filesystem call,
// so a failed write leaves no partial file behind.
//
// Column order follows headers exactly and row order follows records exactly.
// A record missing a header key renders as an empty field; record keys absent
// from headers are dropped silently.
func (w *Writer) Write(path string, headers []string, records []map[string]any) error {
	data, err := w.Render(headers, records)
	if err != nil {
		return err
	}
	return fileutils.AtomicWrite(path, data)
}

// Render builds the CSV text for the table.
func (w *Writer) Render(headers []string, records []map[string]any) ([]byte, error) {
	cols := make([]string, 0, len(headers))
	for _, h := range headers {
		if _, drop := w.excluded[h]; drop {
			continue
		}
		cols = append(cols, h)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(cols); err != nil {
		return nil, fmt.Errorf("failed to write header row: %v", err)
	}

	row := make([]string, len(cols))
	for _, rec := range records {
		for i, h := range cols {
			field, err := formatField(rec[h])
			if err != nil {
				return nil, fmt.Errorf("failed to render column %q: %v", h, err)
			}
			row[i] = field
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write record: %v", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %v", err)
	}
	return buf.Bytes(), nil
}

// formatField stringifies a single cell. Nil and absent values render empty,
// numbers keep their JSON literal form, and the odd nested value that slipped
// through normalization is rendered as compact JSON rather than erroring.
func formatField(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
