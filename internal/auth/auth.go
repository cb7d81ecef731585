// Package auth implements the credential acquisition component.
// A bearer token is acquired from the first tier that yields one: an explicit
// token or credentials file, a cookie lifted from a local browser profile, or
// a live browser login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"github.com/ubuntu/decorate"
)

var (
	// ErrNoToken is returned when every tier failed to produce a token.
	ErrNoToken = errors.New("no API token could be acquired")
	// ErrEmptyHostname is returned when the passed hostname is incorrectly an empty string.
	ErrEmptyHostname = errors.New("hostname cannot be an empty string")
)

// Config represents the data needed to acquire a token.
type Config struct {
	Token           string // Explicit token; used verbatim when set.
	CredentialsFile string // Path to a TOML credentials file. Empty means the default path.
	Hostname        string // Host the token must be valid for.
	BaseURL         string // Sign-in page for the browser login tier.
	Interactive     bool   // Run the browser login tier with a visible window.
}

// Acquire returns a bearer token for the configured host.
//
// Tiers are tried in order and the first non-empty token wins. Failures of
// individual tiers are logged and the next tier is tried; only when all tiers
// are exhausted is ErrNoToken returned.
func Acquire(ctx context.Context, l *slog.Logger, cfg Config) (string, error) {
	if cfg.Hostname == "" {
		return "", ErrEmptyHostname
	}

	if cfg.Token != "" {
		l.Debug("Using explicitly provided token")
		return cfg.Token, nil
	}

	if token, err := fromCredentialsFile(cfg.CredentialsFile, cfg.Hostname); err != nil {
		l.Debug("No token from credentials file", "error", err)
	} else if token != "" {
		l.Info("Using token from credentials file")
		return token, nil
	}

	if token := fromBrowserCookies(l, cfg.Hostname); token != "" {
		l.Info("Using session token from browser cookies")
		return token, nil
	}

	l.Info("No stored credentials found, starting browser login", "interactive", cfg.Interactive)
	token, err := fromBrowserLogin(ctx, l, cfg.BaseURL, cfg.Interactive)
	if err != nil {
		l.Warn("Browser login failed", "error", err)
	} else if token != "" {
		return token, nil
	}

	return "", ErrNoToken
}

// credentialsFile is the on-disk TOML credentials layout, keyed by hostname.
type credentialsFile struct {
	Hosts map[string]hostCredentials `toml:"hosts"`
}

type hostCredentials struct {
	Token string `toml:"token"`
}

// fromCredentialsFile reads the token for hostname from the TOML credentials
// file at path, or the default location when path is empty.
func fromCredentialsFile(path, hostname string) (token string, err error) {
	defer decorate.OnError(&err, "could not read credentials file")

	if path == "" {
		path = filepath.Join(constants.DefaultConfigPath, constants.DefaultCredentialsFileName)
	}

	if _, err := os.Stat(path); err != nil {
		return "", err
	}

	var creds credentialsFile
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return "", err
	}

	entry, ok := creds.Hosts[hostname]
	if !ok {
		return "", fmt.Errorf("no entry for host %s", hostname)
	}
	return entry.Token, nil
}
