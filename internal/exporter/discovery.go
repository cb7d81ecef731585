package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mickolasjae/okta-workflows-backup/internal/normalize"
)

// ErrNoOrgID is returned when no known session response shape yields an org id.
var ErrNoOrgID = errors.New("could not discover the org id from the session response")

const sessionPath = "/api/flo/session/me"

func groupsPath(orgID int64) string {
	return fmt.Sprintf("/api/flo/v1/orgs/%d/folders", orgID)
}

func bundlePath(groupID int64) string {
	return fmt.Sprintf("/api/flo/v1/folders/%d/export", groupID)
}

func tablesPath(groupID int64) string {
	return fmt.Sprintf("/api/flo/v1/folders/%d/stashes", groupID)
}

func tableMetaPath(tableID string) string {
	return fmt.Sprintf("/api/flo/v1/stashes/%s", tableID)
}

func tableRowsPath(tableID string) string {
	return fmt.Sprintf("/api/flo/v1/stashes/%s/rows", tableID)
}

// orgIDCandidates are the known locations of the org id across the observed
// session response variants, in the order they are tried.
var orgIDCandidates = [][]string{
	{"org", "id"},
	{"orgId"},
	{"organization", "id"},
	{"data", "org", "id"},
	{"data", "orgId"},
	{"user", "orgId"},
	{"id"},
}

// orgIDFromSession extracts the org id from the session response.
func orgIDFromSession(raw json.RawMessage) (int64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("session response is not valid JSON: %v", err)
	}

	for _, path := range orgIDCandidates {
		if id, ok := lookupInt(v, path); ok {
			return id, nil
		}
	}
	return 0, ErrNoOrgID
}

// lookupInt walks a key path through nested objects and coerces the leaf to an
// integer. String and float forms are accepted, anything else is not.
func lookupInt(v any, path []string) (int64, bool) {
	for _, k := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return 0, false
		}
		if v, ok = m[k]; !ok {
			return 0, false
		}
	}

	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case string:
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case json.Number:
		id, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// listElements unwraps a list payload which may be a bare array or an object
// wrapping one under a known key.
func listElements(raw json.RawMessage) ([]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("list payload is not valid JSON: %v", err)
	}

	if arr, ok := v.([]any); ok {
		return arr, nil
	}
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"rows", "data", "items", "result"} {
			if arr, ok := m[k].([]any); ok {
				return arr, nil
			}
		}
	}
	return nil, errors.New("unrecognized list payload shape")
}

func decodeGroups(raw json.RawMessage) ([]Group, error) {
	elems, err := listElements(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode group list: %v", err)
	}

	groups := make([]Group, 0, len(elems))
	for _, e := range elems {
		var g Group
		if err := weakDecode(e, &g); err != nil {
			return nil, fmt.Errorf("group entry does not match expected structure: %v", err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func decodeTables(raw json.RawMessage) ([]Table, error) {
	elems, err := listElements(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table list: %v", err)
	}

	tables := make([]Table, 0, len(elems))
	for _, e := range elems {
		var t Table
		if err := weakDecode(e, &t); err != nil {
			return nil, fmt.Errorf("table entry does not match expected structure: %v", err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// decodeMeta extracts the optional table metadata from its response, which may
// be wrapped and whose columns may be given as names or as objects.
func decodeMeta(raw json.RawMessage) (*normalize.Meta, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("metadata payload is not valid JSON: %v", err)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("metadata payload is not an object")
	}
	for _, k := range []string{"data", "result", "stash"} {
		if inner, ok := m[k].(map[string]any); ok {
			m = inner
			break
		}
	}

	meta := normalize.Meta{}
	meta.Name, _ = m["name"].(string)

	cols, _ := m["columns"].([]any)
	for _, c := range cols {
		switch t := c.(type) {
		case string:
			meta.Columns = append(meta.Columns, normalize.Column{Name: t})
		case map[string]any:
			if name, ok := t["name"].(string); ok {
				meta.Columns = append(meta.Columns, normalize.Column{Name: name})
			}
		}
	}
	return &meta, nil
}

// weakDecode decodes a generic JSON value into target, coercing between
// string and numeric id representations. The upstream API is not consistent
// about them.
func weakDecode(in, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %v", err)
	}
	return decoder.Decode(in)
}
