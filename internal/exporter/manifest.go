package exporter

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"github.com/mickolasjae/okta-workflows-backup/internal/fileutils"
)

// Manifest is the JSON summary of a run, written once at the output root.
type Manifest struct {
	SourceBase  string     `json:"sourceBase"`
	CSVRoot     string     `json:"csvRoot"`
	Org         OrgInfo    `json:"org"`
	GroupsCount int        `json:"groups_count"`
	Groups      []GroupRef `json:"groups"`
	// PacksExported counts the successfully exported bundles; groups whose
	// bundle export failed are absent from Packs.
	PacksExported int       `json:"packs_exported"`
	Packs         []PackRef `json:"packs"`
}

// OrgInfo identifies the org, keeping the raw session response for reference.
type OrgInfo struct {
	ID  int64           `json:"id"`
	Raw json.RawMessage `json:"raw"`
}

// GroupRef is a group as listed in the manifest.
type GroupRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PackRef records one exported bundle. File is relative to the output root.
type PackRef struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
	File      string `json:"file"`
}

// writeManifest renders the manifest pretty-printed and writes it atomically.
func (e *Exporter) writeManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %v", err)
	}
	data = append(data, '\n')

	path := filepath.Join(e.outDir, constants.ManifestFileName)
	if e.dryRun {
		e.log.Info("Dry run, skipping manifest write", "file", path)
		return nil
	}
	return fileutils.AtomicWrite(path, data)
}
