// Package constants defines the constants used in the application,
// as well as the default paths for configuration and output.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "workflows-backup"

	// DefaultAppFolder is the name of the default configuration folder.
	DefaultAppFolder = "workflows-backup"

	// DefaultOutDir is the default root folder for exported data.
	DefaultOutDir = "workflows-export"

	// DefaultCredentialsFileName is the default base name of the credentials file.
	DefaultCredentialsFileName = "credentials.toml"

	// ManifestFileName is the name of the run manifest written at the output root.
	ManifestFileName = "manifest.json"

	// BundleExt is the extension of exported flow bundle files.
	BundleExt = ".folder"

	// CSVExt is the extension of exported table files.
	CSVExt = ".csv"

	// TokenCookieName is the name of the session cookie carrying the API token.
	TokenCookieName = "oktaworkflows_session"

	// DefaultConcurrency is the default number of tables fetched concurrently per group.
	DefaultConcurrency = 4

	// DefaultRequestTimeout is the fixed timeout applied to every API request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultLoginTimeout is how long the browser login flow waits for a session cookie.
	DefaultLoginTimeout = 2 * time.Minute

	// MaxFileNameLength is the maximum length of a sanitized file name component.
	MaxFileNameLength = 200

	// DefaultLogLevel is the default logging level for the application.
	DefaultLogLevel = slog.LevelWarn
)

// DefaultExcludedColumns returns the column names stripped from every exported table.
func DefaultExcludedColumns() []string {
	return []string{"stashId", "system"}
}

// DefaultConfigPath is the default app user configuration path. It's overridden when imported.
var DefaultConfigPath = defaultConfigPath()

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultAppFolder
	}
	return filepath.Join(dir, DefaultAppFolder)
}
