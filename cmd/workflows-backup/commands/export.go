package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/mickolasjae/okta-workflows-backup/internal/auth"
	"github.com/mickolasjae/okta-workflows-backup/internal/client"
	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"github.com/mickolasjae/okta-workflows-backup/internal/exporter"
)

// exportConfig holds the export command configuration.
type exportConfig struct {
	URL             string
	Token           string
	Out             string
	Concurrency     int
	Timeout         time.Duration
	ExcludeColumns  []string
	CredentialsFile string
	Interactive     bool
	DryRun          bool
}

func installExportCmd(app *App) {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the org's flow bundles and data tables",
		Long: `Export the org's flow bundles and data tables to local files.

Each group is written to its own subdirectory: the flow bundle as a .folder
file and every data table as a CSV file. A manifest.json summarizing the run
is written at the output root.

An API token is taken from the --token flag or the credentials file when
available; otherwise a token is lifted from a local browser profile, and as a
last resort a browser login is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running export command")
			return app.exportRun()
		},
	}

	flags := exportCmd.Flags()
	flags.StringVarP(&app.config.Export.URL, "url", "u", "", "base URL of the workflows org (required)")
	flags.StringVarP(&app.config.Export.Token, "token", "t", "", "explicit API token, skipping all other credential sources")
	flags.StringVarP(&app.config.Export.Out, "out", "o", constants.DefaultOutDir, "root directory for exported files")
	flags.IntVar(&app.config.Export.Concurrency, "concurrency", constants.DefaultConcurrency, "number of tables fetched concurrently per group")
	flags.DurationVar(&app.config.Export.Timeout, "timeout", constants.DefaultRequestTimeout, "timeout applied to every API request")
	flags.StringSliceVar(&app.config.Export.ExcludeColumns, "exclude-columns", constants.DefaultExcludedColumns(), "column names stripped from every exported table")
	flags.StringVar(&app.config.Export.CredentialsFile, "credentials-file", "", "path to a TOML credentials file")
	flags.BoolVarP(&app.config.Export.Interactive, "interactive", "i", false, "run the browser login with a visible window")
	flags.BoolVarP(&app.config.Export.DryRun, "dry-run", "d", false, "go through the motions of an export without writing any files")

	if err := exportCmd.MarkFlagDirname("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as directory: %v", err))
	}

	app.cmd.AddCommand(exportCmd)
}

// exportRun runs the export command.
func (a App) exportRun() error {
	l := slog.Default()
	cfg := a.config.Export

	if cfg.URL == "" {
		return fmt.Errorf("the base URL of the workflows org must be provided with --url")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil || base.Hostname() == "" {
		return fmt.Errorf("invalid base URL %q", cfg.URL)
	}

	ctx := context.Background()

	token, err := auth.Acquire(ctx, l, auth.Config{
		Token:           cfg.Token,
		CredentialsFile: cfg.CredentialsFile,
		Hostname:        base.Hostname(),
		BaseURL:         cfg.URL,
		Interactive:     cfg.Interactive,
	})
	if err != nil {
		return fmt.Errorf("failed to acquire an API token: %w", err)
	}

	c, err := client.New(l, cfg.URL, token, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create API client: %v", err)
	}

	e := exporter.New(l, c, cfg.URL, cfg.Out,
		exporter.WithConcurrency(cfg.Concurrency),
		exporter.WithExcludedColumns(cfg.ExcludeColumns),
		exporter.WithDryRun(cfg.DryRun),
	)

	m, err := e.Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println(renderSummary(m))
	return nil
}
