package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickolasjae/okta-workflows-backup/cmd/workflows-backup/commands"
)

func TestRootCmd(t *testing.T) {
	t.Parallel()

	app := commands.NewForTests(t)

	cmd := app.RootCmd()
	require.Equal(t, "workflows-backup", cmd.Name())

	var subcommands []string
	for _, c := range cmd.Commands() {
		subcommands = append(subcommands, c.Name())
	}
	assert.Contains(t, subcommands, "export")
	assert.Contains(t, subcommands, "version")
}

func TestVersion(t *testing.T) {
	app := commands.NewForTests(t, "version")

	err := app.Run()
	require.NoError(t, err, "the version command should not fail")
	assert.False(t, app.UsageError())
}

func TestBadCommand(t *testing.T) {
	app := commands.NewForTests(t, "no-such-command")

	err := app.Run()
	require.Error(t, err, "an unknown command should fail")
	assert.True(t, app.UsageError())
}

func TestExport(t *testing.T) {
	tests := map[string]struct {
		args []string

		wantUsageErr bool
	}{
		"Missing URL":           {args: []string{"export"}},
		"Empty URL":             {args: []string{"export", "--url", ""}},
		"URL without host":      {args: []string{"export", "--url", "not a url"}},
		"Unknown flag":          {args: []string{"export", "--no-such-flag"}, wantUsageErr: true},
		"Unexpected positional": {args: []string{"export", "extra"}, wantUsageErr: true},
		"Bad concurrency value": {args: []string{"export", "--concurrency", "lots"}, wantUsageErr: true},
		"Bad timeout value":     {args: []string{"export", "--timeout", "soon"}, wantUsageErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app := commands.NewForTests(t, tc.args...)

			err := app.Run()
			require.Error(t, err, "the export command should fail")
			assert.Equal(t, tc.wantUsageErr, app.UsageError(), "unexpected usage error state")
		})
	}
}

func TestExportFlagDefaults(t *testing.T) {
	// Parsing the version command still populates the export defaults.
	app := commands.NewForTests(t, "version")
	require.NoError(t, app.Run(), "Setup: the version command should not fail")

	cfg := app.Config().Export
	assert.Equal(t, "workflows-export", cfg.Out)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, []string{"stashId", "system"}, cfg.ExcludeColumns)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.Interactive)
}
