// Package testutils provides helper functions for tests.
package testutils

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var update bool

func init() {
	flag.BoolVar(&update, "update", false, "update golden files")
}

// GoldenPath returns the golden path for the given test.
func GoldenPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join("testdata", "golden", strings.ReplaceAll(t.Name(), "/", "_"))
	return strings.ReplaceAll(path, " ", "_")
}

// LoadWithUpdateFromGolden loads the element from a plain text golden file.
// It will update the file if the update flag is used prior to loading it.
func LoadWithUpdateFromGolden(t *testing.T, data string) string {
	t.Helper()

	goldenPath := GoldenPath(t)

	if update {
		t.Logf("updating golden file %s", goldenPath)
		err := os.MkdirAll(filepath.Dir(goldenPath), 0750)
		require.NoError(t, err, "Cannot create directory for updating golden files")
		err = os.WriteFile(goldenPath, []byte(data), 0600)
		require.NoError(t, err, "Cannot write golden file")
	}

	want, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "Cannot load golden file")

	return string(want)
}

// LoadWithUpdateFromGoldenYAML loads the element from a YAML golden file in
// testdata/golden. It will update the file if the update flag is used prior to
// deserializing it.
func LoadWithUpdateFromGoldenYAML[E any](t *testing.T, got E) E {
	t.Helper()

	t.Logf("Golden file path: %s", GoldenPath(t))

	if update {
		data, err := yaml.Marshal(got)
		require.NoError(t, err, "Cannot marshal object to YAML")
		LoadWithUpdateFromGolden(t, string(data))
	}

	want, err := os.ReadFile(GoldenPath(t))
	require.NoError(t, err, "Cannot load golden file")

	var wantObject E
	err = yaml.Unmarshal(want, &wantObject)
	require.NoError(t, err, "Cannot create object from golden file")

	return wantObject
}
