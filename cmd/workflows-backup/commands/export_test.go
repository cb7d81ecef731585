package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewForTests creates a new App with the given args already set.
func NewForTests(t *testing.T, args ...string) *App {
	t.Helper()

	app, err := New()
	require.NoError(t, err, "Setup: could not create app")
	app.cmd.SetArgs(args)

	return app
}

// Config returns the current application configuration, for tests.
func (a App) Config() appConfig {
	return a.config
}
