package exporter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mickolasjae/okta-workflows-backup/internal/normalize"
)

func TestOrgIDFromSession(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload string

		want    int64
		wantErr error
	}{
		"Nested org object":        {payload: `{"org":{"id":42}}`, want: 42},
		"Flat orgId":               {payload: `{"orgId":7}`, want: 7},
		"Organization object":      {payload: `{"organization":{"id":11}}`, want: 11},
		"Wrapped in data":          {payload: `{"data":{"org":{"id":3}}}`, want: 3},
		"Wrapped flat orgId":       {payload: `{"data":{"orgId":4}}`, want: 4},
		"On the user object":       {payload: `{"user":{"orgId":5}}`, want: 5},
		"Bare id as last resort":   {payload: `{"id":6}`, want: 6},
		"String form is coerced":   {payload: `{"orgId":"123"}`, want: 123},
		"First candidate wins":     {payload: `{"org":{"id":1},"orgId":2}`, want: 1},

		"Fractional id is rejected":  {payload: `{"orgId":1.5}`, wantErr: ErrNoOrgID},
		"Non-numeric string":         {payload: `{"orgId":"abc"}`, wantErr: ErrNoOrgID},
		"Boolean id":                 {payload: `{"orgId":true}`, wantErr: ErrNoOrgID},
		"Nothing recognizable":       {payload: `{"user":"someone"}`, wantErr: ErrNoOrgID},
		"Array payload":              {payload: `[1,2,3]`, wantErr: ErrNoOrgID},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := orgIDFromSession(json.RawMessage(tc.payload))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err, "orgIDFromSession should not fail")
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeGroups(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload string

		want    []Group
		wantErr bool
	}{
		"Bare array": {
			payload: `[{"id":1,"name":"A"},{"id":2,"name":"B"}]`,
			want:    []Group{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		},
		"Wrapped array": {
			payload: `{"data":[{"id":1,"name":"A"}]}`,
			want:    []Group{{ID: 1, Name: "A"}},
		},
		"String ids are coerced": {
			payload: `[{"id":"10","name":"A"}]`,
			want:    []Group{{ID: 10, Name: "A"}},
		},
		"Extra fields are ignored": {
			payload: `[{"id":1,"name":"A","createdAt":"2024-01-01","flows":[]}]`,
			want:    []Group{{ID: 1, Name: "A"}},
		},
		"Empty list": {
			payload: `[]`,
			want:    []Group{},
		},
		"Scalar entry":      {payload: `[1,2]`, wantErr: true},
		"Not a list at all": {payload: `{"ok":true}`, wantErr: true},
		"Invalid JSON":      {payload: `{nope`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeGroups(json.RawMessage(tc.payload))
			if tc.wantErr {
				require.Error(t, err, "decodeGroups should fail")
				return
			}
			require.NoError(t, err, "decodeGroups should not fail")
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeTables(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload string

		want    []Table
		wantErr bool
	}{
		"String ids stay strings": {
			payload: `[{"id":"tbl-1","name":"Invoices"}]`,
			want:    []Table{{ID: "tbl-1", Name: "Invoices"}},
		},
		"Numeric ids are coerced to strings": {
			payload: `{"items":[{"id":99,"name":"Refunds"}]}`,
			want:    []Table{{ID: "99", Name: "Refunds"}},
		},
		"Unrecognized wrapper": {payload: `{"tables":[]}`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeTables(json.RawMessage(tc.payload))
			if tc.wantErr {
				require.Error(t, err, "decodeTables should fail")
				return
			}
			require.NoError(t, err, "decodeTables should not fail")
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeMeta(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload string

		want    *normalize.Meta
		wantErr bool
	}{
		"Columns as strings": {
			payload: `{"name":"Invoices","columns":["a","b"]}`,
			want:    &normalize.Meta{Name: "Invoices", Columns: []normalize.Column{{Name: "a"}, {Name: "b"}}},
		},
		"Columns as objects": {
			payload: `{"columns":[{"name":"a","type":"string"},{"name":"b"}]}`,
			want:    &normalize.Meta{Columns: []normalize.Column{{Name: "a"}, {Name: "b"}}},
		},
		"Mixed column forms": {
			payload: `{"columns":["a",{"name":"b"},{"noName":true},7]}`,
			want:    &normalize.Meta{Columns: []normalize.Column{{Name: "a"}, {Name: "b"}}},
		},
		"Wrapped under data": {
			payload: `{"data":{"name":"Invoices","columns":["a"]}}`,
			want:    &normalize.Meta{Name: "Invoices", Columns: []normalize.Column{{Name: "a"}}},
		},
		"Wrapped under stash": {
			payload: `{"stash":{"columns":["a"]}}`,
			want:    &normalize.Meta{Columns: []normalize.Column{{Name: "a"}}},
		},
		"No columns at all": {
			payload: `{"name":"Invoices"}`,
			want:    &normalize.Meta{Name: "Invoices"},
		},
		"Not an object":  {payload: `[1,2]`, wantErr: true},
		"Invalid JSON":   {payload: `<meta>`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeMeta(json.RawMessage(tc.payload))
			if tc.wantErr {
				require.Error(t, err, "decodeMeta should fail")
				return
			}
			require.NoError(t, err, "decodeMeta should not fail")
			require.Equal(t, tc.want, got)
		})
	}
}
