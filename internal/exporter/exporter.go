// Package exporter is the implementation of the export orchestrator.
// It discovers the org and its groups, exports each group's flow bundle and
// tables, and assembles the run manifest.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mickolasjae/okta-workflows-backup/internal/client"
	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"github.com/mickolasjae/okta-workflows-backup/internal/fileutils"
	"github.com/mickolasjae/okta-workflows-backup/internal/normalize"
	"github.com/mickolasjae/okta-workflows-backup/internal/pool"
	"github.com/mickolasjae/okta-workflows-backup/internal/tablecsv"
)

// Fetcher is the API surface the exporter needs from the HTTP client.
type Fetcher interface {
	GetJSON(ctx context.Context, path string) (json.RawMessage, error)
	GetBlob(ctx context.Context, path string) ([]byte, error)
}

// Group is a namespace holding flows and tables. Immutable once fetched.
type Group struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Table identifies a stash within a group.
type Table struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Exporter is an abstraction of the export orchestrator.
type Exporter struct {
	client     Fetcher
	norm       *normalize.Normalizer
	csv        *tablecsv.Writer
	sourceBase string
	outDir     string

	concurrency int
	dryRun      bool

	log *slog.Logger
}

type options struct {
	// Private members exported for tests.
	concurrency int
	excluded    []string
	dryRun      bool
}

// Options represents an optional function to override Exporter default values.
type Options func(*options)

// WithConcurrency overrides the per-group table concurrency.
func WithConcurrency(n int) Options {
	return func(o *options) { o.concurrency = n }
}

// WithExcludedColumns overrides the excluded column set.
func WithExcludedColumns(cols []string) Options {
	return func(o *options) { o.excluded = cols }
}

// WithDryRun makes the exporter go through the motions without writing files.
func WithDryRun(dryRun bool) Options {
	return func(o *options) { o.dryRun = dryRun }
}

// New returns a new Exporter writing under outDir.
func New(l *slog.Logger, f Fetcher, sourceBase, outDir string, args ...Options) *Exporter {
	opts := options{
		concurrency: constants.DefaultConcurrency,
		excluded:    constants.DefaultExcludedColumns(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Exporter{
		client:      f,
		norm:        normalize.New(opts.excluded),
		csv:         tablecsv.New(opts.excluded),
		sourceBase:  sourceBase,
		outDir:      outDir,
		concurrency: opts.concurrency,
		dryRun:      opts.dryRun,
		log:         l,
	}
}

// Export runs the whole export and returns the manifest.
//
// A failing token or undiscoverable org aborts the run. A failing group is
// logged and skipped; it is absent from the manifest packs. A failing table is
// logged and skipped by the table worker. An unauthorized response anywhere
// aborts the run, as continuing would only repeat it.
func (e *Exporter) Export(ctx context.Context) (Manifest, error) {
	raw, err := e.client.GetJSON(ctx, sessionPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to fetch session info: %w", err)
	}
	orgID, err := orgIDFromSession(raw)
	if err != nil {
		return Manifest{}, err
	}
	e.log.Info("Discovered org", "org", orgID)

	groupsRaw, err := e.client.GetJSON(ctx, groupsPath(orgID))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to list groups: %w", err)
	}
	groups, err := decodeGroups(groupsRaw)
	if err != nil {
		return Manifest{}, err
	}
	e.log.Info("Discovered groups", "count", len(groups))

	m := Manifest{
		SourceBase:  e.sourceBase,
		CSVRoot:     e.outDir,
		Org:         OrgInfo{ID: orgID, Raw: raw},
		GroupsCount: len(groups),
		Groups:      make([]GroupRef, 0, len(groups)),
		Packs:       []PackRef{},
	}
	for _, g := range groups {
		m.Groups = append(m.Groups, GroupRef{ID: g.ID, Name: g.Name})
	}

	// Groups export strictly one at a time; tables fan out inside each group.
	for _, g := range groups {
		pack, err := e.exportGroup(ctx, g)
		if err != nil {
			if errors.Is(err, client.ErrUnauthorized) || ctx.Err() != nil {
				return m, err
			}
			e.log.Warn("Skipping group, bundle export failed", "group", g.Name, "error", err)
			continue
		}
		m.Packs = append(m.Packs, pack)
	}
	m.PacksExported = len(m.Packs)

	if err := e.writeManifest(m); err != nil {
		e.log.Warn("Failed to write manifest", "error", err)
	}

	return m, nil
}

// exportGroup fetches the group's flow bundle and then its tables.
func (e *Exporter) exportGroup(ctx context.Context, g Group) (PackRef, error) {
	safe := fileutils.SafeName(g.Name)
	dir := filepath.Join(e.outDir, safe)

	blob, err := e.client.GetBlob(ctx, bundlePath(g.ID))
	if err != nil {
		return PackRef{}, fmt.Errorf("failed to fetch bundle: %w", err)
	}

	file := filepath.Join(safe, safe+constants.BundleExt)
	if e.dryRun {
		e.log.Info("Dry run, skipping bundle write", "file", file, "bytes", len(blob))
	} else {
		if err := fileutils.AtomicWrite(filepath.Join(e.outDir, file), blob); err != nil {
			return PackRef{}, fmt.Errorf("failed to write bundle: %v", err)
		}
		e.log.Info("Exported bundle", "group", g.Name, "file", file, "bytes", len(blob))
	}

	if err := e.exportTables(ctx, g, dir); err != nil {
		return PackRef{}, err
	}

	return PackRef{GroupID: g.ID, GroupName: g.Name, File: file}, nil
}

// exportTables fetches the group's table list and exports each table through
// the worker pool. Table failures other than unauthorized are swallowed so the
// remaining tables still export.
func (e *Exporter) exportTables(ctx context.Context, g Group, dir string) error {
	raw, err := e.client.GetJSON(ctx, tablesPath(g.ID))
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return err
		}
		e.log.Warn("Failed to list tables for group", "group", g.Name, "error", err)
		return nil
	}
	tables, err := decodeTables(raw)
	if err != nil {
		e.log.Warn("Unrecognized table list for group", "group", g.Name, "error", err)
		return nil
	}
	e.log.Debug("Exporting tables", "group", g.Name, "count", len(tables))

	_, err = pool.Run(ctx, tables, e.concurrency, func(ctx context.Context, _ int, t Table) (struct{}, error) {
		if err := e.exportTable(ctx, t, dir); err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return struct{}{}, err
			}
			e.log.Warn("Skipping table", "group", g.Name, "table", t.Name, "error", err)
		}
		return struct{}{}, nil
	})
	return err
}

// exportTable fetches rows and metadata for one table, normalizes them, and
// writes the CSV. The CSV buffer is built fully in memory, so a failure leaves
// no partial file.
func (e *Exporter) exportTable(ctx context.Context, t Table, dir string) error {
	rows, err := e.client.GetJSON(ctx, tableRowsPath(t.ID))
	if err != nil {
		return fmt.Errorf("failed to fetch rows: %w", err)
	}

	table := e.norm.Normalize(rows, e.fetchMeta(ctx, t))

	file := filepath.Join(dir, fileutils.SafeName(t.Name)+constants.CSVExt)
	if e.dryRun {
		e.log.Info("Dry run, skipping table write", "file", file, "rows", len(table.Records))
		return nil
	}
	if err := e.csv.Write(file, table.Headers, table.Records); err != nil {
		return fmt.Errorf("failed to write CSV: %v", err)
	}
	e.log.Info("Exported table", "table", t.Name, "rows", len(table.Records), "file", file)
	return nil
}

// fetchMeta returns the table metadata, or nil when it is missing or in a
// shape we don't recognize. Headers fall back to the rows themselves.
func (e *Exporter) fetchMeta(ctx context.Context, t Table) *normalize.Meta {
	raw, err := e.client.GetJSON(ctx, tableMetaPath(t.ID))
	if err != nil {
		e.log.Debug("No metadata for table", "table", t.Name, "error", err)
		return nil
	}
	meta, err := decodeMeta(raw)
	if err != nil {
		e.log.Debug("Unrecognized metadata shape", "table", t.Name, "error", err)
		return nil
	}
	return meta
}
