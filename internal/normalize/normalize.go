// Package normalize is the implementation of the row normalizer component.
// The normalizer converts the raw row payloads returned by the stash API,
// which have no stable shape contract, into an ordered header list and a
// sequence of flat records ready to be written as CSV.
package normalize

import (
	"fmt"
)

// fallbackHeader is the synthetic column used for scalar rows.
const fallbackHeader = "value"

// wrapperKeys are checked in priority order when the payload is an object
// wrapping the actual row array.
var wrapperKeys = []string{"rows", "data", "items", "result"}

// Column is a single column description from the stash metadata.
type Column struct {
	Name string
}

// Meta is the optional table metadata returned by the stash API.
type Meta struct {
	Name    string
	Columns []Column
}

// Table is the normalized output: unique ordered headers and flat records.
// Record keys with no matching header are dropped when the table is written.
type Table struct {
	Headers []string
	Records []map[string]any
}

// Normalizer flattens raw row payloads. The excluded column set is fixed at
// construction and is never present in output headers or records.
type Normalizer struct {
	excluded map[string]struct{}
}

// New returns a Normalizer which strips the given column names.
func New(excluded []string) *Normalizer {
	ex := make(map[string]struct{}, len(excluded))
	for _, c := range excluded {
		ex[c] = struct{}{}
	}
	return &Normalizer{excluded: ex}
}

// Normalize converts a raw JSON row payload and optional metadata into a Table.
//
// It never fails: unrecognized or malformed payloads yield a table with no
// records, and headers resolved from the metadata or the scalar fallback.
func (n *Normalizer) Normalize(data []byte, meta *Meta) Table {
	metaHeaders := n.headersFromMeta(meta)

	var sh shape
	var elems []any
	if v, ok := decode(data); ok {
		sh, elems = classify(unwrap(v))
	}

	var headers []string
	var records []map[string]any

	switch sh {
	case shapeObjectRows:
		var order []string
		records, order = n.objectRecords(elems)
		headers = metaHeaders
		if len(headers) == 0 {
			headers = order
		}
	case shapeArrayRows:
		headers = positionalHeaders(metaHeaders, maxWidth(elems))
		records = n.positionalRecords(elems, headers)
	case shapeScalarRows, shapeSingleScalar:
		records = n.scalarRecords(elems)
		headers = metaHeaders
		if len(headers) == 0 && len(records) > 0 {
			headers = []string{fallbackHeader}
		}
	case shapeNone:
		headers = metaHeaders
	}

	if len(headers) == 0 && len(records) == 0 && !n.isExcluded(fallbackHeader) {
		headers = []string{fallbackHeader}
	}

	// Metadata may disagree with the record shape, so filter once more.
	return Table{Headers: n.finalizeHeaders(headers), Records: records}
}

func (n *Normalizer) isExcluded(name string) bool {
	_, ok := n.excluded[name]
	return ok
}

// headersFromMeta derives the candidate header list from the column metadata.
func (n *Normalizer) headersFromMeta(meta *Meta) []string {
	if meta == nil {
		return nil
	}
	var headers []string
	for _, c := range meta.Columns {
		if n.isExcluded(c.Name) {
			continue
		}
		headers = append(headers, c.Name)
	}
	return headers
}

// objectRecords converts object rows into records, stripping excluded columns
// per record, and reports the first-seen key order across all rows.
func (n *Normalizer) objectRecords(elems []any) (records []map[string]any, order []string) {
	seen := make(map[string]struct{})
	records = make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		obj, ok := e.(*object)
		if !ok {
			continue
		}
		rec := make(map[string]any, len(obj.keys))
		for _, k := range obj.keys {
			if n.isExcluded(k) {
				continue
			}
			rec[k] = obj.fields[k]
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				order = append(order, k)
			}
		}
		records = append(records, rec)
	}
	return records, order
}

// positionalRecords converts array rows into records keyed by the positional
// headers. Positions past the end of a row fill with nil.
func (n *Normalizer) positionalRecords(elems []any, headers []string) []map[string]any {
	records := make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		row, ok := e.([]any)
		if !ok {
			continue
		}
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			if n.isExcluded(h) {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = nil
			}
		}
		records = append(records, rec)
	}
	return records
}

// scalarRecords wraps bare scalars under the fallback header. No records are
// produced when the fallback header itself is excluded.
func (n *Normalizer) scalarRecords(elems []any) []map[string]any {
	if n.isExcluded(fallbackHeader) {
		return nil
	}
	records := make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		records = append(records, map[string]any{fallbackHeader: e})
	}
	return records
}

// finalizeHeaders drops excluded and duplicate names, preserving order.
func (n *Normalizer) finalizeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if n.isExcluded(h) {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// positionalHeaders aligns the metadata headers to the row width, synthesizing
// colN names for positions the metadata does not cover.
func positionalHeaders(metaHeaders []string, width int) []string {
	headers := make([]string, width)
	for i := range headers {
		if i < len(metaHeaders) {
			headers[i] = metaHeaders[i]
		} else {
			headers[i] = fmt.Sprintf("col%d", i+1)
		}
	}
	return headers
}

func maxWidth(elems []any) int {
	width := 0
	for _, e := range elems {
		if row, ok := e.([]any); ok && len(row) > width {
			width = len(row)
		}
	}
	return width
}
