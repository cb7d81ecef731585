package auth

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"gopkg.in/ini.v1"

	_ "modernc.org/sqlite" // pure Go sqlite driver, no cgo
)

// fromBrowserCookies tries to lift the session cookie from local browser
// profiles. Firefox first, then Chromium-based browsers whose cookie store is
// readable unencrypted. Returns "" when nothing usable is found.
func fromBrowserCookies(l *slog.Logger, hostname string) string {
	if token := firefoxCookie(l, hostname); token != "" {
		return token
	}
	return chromiumCookie(l, hostname)
}

// firefoxCookie walks the Firefox profiles listed in profiles.ini and queries
// each profile's cookies.sqlite for the session cookie.
func firefoxCookie(l *slog.Logger, hostname string) string {
	base := firefoxRoot()
	if base == "" {
		return ""
	}

	cfg, err := ini.Load(filepath.Join(base, "profiles.ini"))
	if err != nil {
		l.Debug("No readable Firefox profiles.ini", "error", err)
		return ""
	}

	for _, profile := range firefoxProfiles(cfg, base) {
		dbPath := filepath.Join(profile, "cookies.sqlite")
		token, err := queryCookie(dbPath, "moz_cookies", "host", "expiry", hostname)
		if err != nil {
			l.Debug("Failed to read Firefox cookie database", "path", dbPath, "error", err)
			continue
		}
		if token != "" {
			l.Debug("Found session cookie in Firefox profile", "profile", profile)
			return token
		}
	}
	return ""
}

// firefoxProfiles returns profile directories from profiles.ini, default
// profiles first.
func firefoxProfiles(cfg *ini.File, base string) []string {
	var defaults, others []string
	for _, sec := range cfg.Sections() {
		if !strings.HasPrefix(sec.Name(), "Profile") {
			continue
		}
		p := sec.Key("Path").String()
		if p == "" {
			continue
		}
		if sec.Key("IsRelative").MustInt(1) == 1 {
			p = filepath.Join(base, p)
		}
		if sec.Key("Default").MustInt(0) == 1 {
			defaults = append(defaults, p)
		} else {
			others = append(others, p)
		}
	}
	return append(defaults, others...)
}

func firefoxRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	}
	return filepath.Join(home, ".mozilla", "firefox")
}

// chromiumCookie checks well-known Chromium cookie stores. Values are usually
// encrypted on disk; only plaintext values are usable here.
func chromiumCookie(l *slog.Logger, hostname string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	for _, dir := range []string{
		filepath.Join(home, ".config", "google-chrome"),
		filepath.Join(home, ".config", "chromium"),
	} {
		dbPath := filepath.Join(dir, "Default", "Cookies")
		token, err := queryCookie(dbPath, "cookies", "host_key", "expires_utc", hostname)
		if err != nil {
			l.Debug("Failed to read Chromium cookie database", "path", dbPath, "error", err)
			continue
		}
		if token != "" {
			l.Debug("Found session cookie in Chromium store", "path", dbPath)
			return token
		}
	}
	return ""
}

// queryCookie looks up the session cookie value for the host in a browser
// cookie database. The database is copied aside first since a running browser
// keeps it locked.
func queryCookie(dbPath, table, hostColumn, expiryColumn, hostname string) (string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return "", err
	}

	tmp, err := copyToTemp(dbPath)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", "file:"+tmp+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("failed to open cookie database: %v", err)
	}
	defer db.Close()

	//nolint:gosec // table and column names come from the fixed call sites above.
	query := fmt.Sprintf(
		"SELECT value FROM %s WHERE name = ? AND (%s = ? OR %s = ?) ORDER BY %s DESC LIMIT 1",
		table, hostColumn, hostColumn, expiryColumn)

	var value string
	err = db.QueryRow(query, constants.TokenCookieName, hostname, "."+hostname).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query cookie database: %v", err)
	}
	return value, nil
}

func copyToTemp(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "cookies-*.sqlite")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
