package auth

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
)

func TestAcquireHostnameRequired(t *testing.T) {
	t.Parallel()

	_, err := Acquire(context.Background(), slog.Default(), Config{})
	require.ErrorIs(t, err, ErrEmptyHostname, "Acquire should reject an empty hostname")
}

func TestAcquireExplicitTokenWins(t *testing.T) {
	t.Parallel()

	got, err := Acquire(context.Background(), slog.Default(), Config{
		Token:    "explicit",
		Hostname: "acme.example.com",
		// A credentials file that would return a different token.
		CredentialsFile: writeCredentials(t, "acme.example.com", "from-file"),
	})
	require.NoError(t, err, "Acquire should not fail")
	require.Equal(t, "explicit", got, "the explicit token should win over every other tier")
}

func TestAcquireFromCredentialsFile(t *testing.T) {
	t.Parallel()

	got, err := Acquire(context.Background(), slog.Default(), Config{
		Hostname:        "acme.example.com",
		CredentialsFile: writeCredentials(t, "acme.example.com", "from-file"),
	})
	require.NoError(t, err, "Acquire should not fail")
	require.Equal(t, "from-file", got)
}

func TestFromCredentialsFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content  string
		noFile   bool
		hostname string

		want    string
		wantErr bool
	}{
		"Token for the host": {
			content: "[hosts.\"acme.example.com\"]\ntoken = \"tok\"\n",

			want: "tok",
		},
		"Several hosts": {
			content: "[hosts.\"other.example.com\"]\ntoken = \"wrong\"\n" +
				"[hosts.\"acme.example.com\"]\ntoken = \"tok\"\n",

			want: "tok",
		},
		"Entry without a token yields empty": {
			content: "[hosts.\"acme.example.com\"]\n",
		},
		"No entry for the host": {
			content: "[hosts.\"other.example.com\"]\ntoken = \"tok\"\n",

			wantErr: true,
		},
		"Missing file": {noFile: true, wantErr: true},
		"Malformed TOML": {
			content: "hosts = [not toml",

			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "credentials.toml")
			if !tc.noFile {
				require.NoError(t, os.WriteFile(path, []byte(tc.content), 0600), "Setup: could not write credentials file")
			}

			hostname := tc.hostname
			if hostname == "" {
				hostname = "acme.example.com"
			}

			got, err := fromCredentialsFile(path, hostname)
			if tc.wantErr {
				require.Error(t, err, "fromCredentialsFile should fail")
				return
			}
			require.NoError(t, err, "fromCredentialsFile should not fail")
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFirefoxCookie(t *testing.T) {
	tests := map[string]struct {
		cookieHost string
		cookieName string
		noProfiles bool

		want string
	}{
		"Cookie for the host":         {cookieHost: "acme.example.com", cookieName: cookieName(), want: "session-token"},
		"Domain cookie with dot":      {cookieHost: ".acme.example.com", cookieName: cookieName(), want: "session-token"},
		"Cookie for another host":     {cookieHost: "other.example.com", cookieName: cookieName()},
		"Unrelated cookie name":       {cookieHost: "acme.example.com", cookieName: "tracking_id"},
		"No Firefox profiles at all":  {noProfiles: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)

			if !tc.noProfiles {
				root := filepath.Join(home, ".mozilla", "firefox")
				profile := filepath.Join(root, "abcd1234.default")
				require.NoError(t, os.MkdirAll(profile, 0750), "Setup: could not create profile directory")

				ini := "[Profile0]\nPath=abcd1234.default\nIsRelative=1\nDefault=1\n"
				require.NoError(t, os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(ini), 0600), "Setup: could not write profiles.ini")

				writeCookieDB(t, filepath.Join(profile, "cookies.sqlite"),
					"CREATE TABLE moz_cookies (name TEXT, value TEXT, host TEXT, expiry INTEGER)",
					"INSERT INTO moz_cookies (name, value, host, expiry) VALUES (?, ?, ?, ?)",
					tc.cookieName, "session-token", tc.cookieHost, 4102444800)
			}

			got := firefoxCookie(slog.Default(), "acme.example.com")
			require.Equal(t, tc.want, got, "firefoxCookie should return the expected token")
		})
	}
}

func TestFirefoxCookiePrefersNewestExpiry(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	root := filepath.Join(home, ".mozilla", "firefox")
	profile := filepath.Join(root, "p.default")
	require.NoError(t, os.MkdirAll(profile, 0750), "Setup: could not create profile directory")
	ini := "[Profile0]\nPath=p.default\nIsRelative=1\nDefault=1\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(ini), 0600), "Setup: could not write profiles.ini")

	dbPath := filepath.Join(profile, "cookies.sqlite")
	writeCookieDB(t, dbPath,
		"CREATE TABLE moz_cookies (name TEXT, value TEXT, host TEXT, expiry INTEGER)",
		"INSERT INTO moz_cookies (name, value, host, expiry) VALUES (?, ?, ?, ?)",
		cookieName(), "stale-token", "acme.example.com", 1000)
	insertCookie(t, dbPath,
		"INSERT INTO moz_cookies (name, value, host, expiry) VALUES (?, ?, ?, ?)",
		cookieName(), "fresh-token", "acme.example.com", 4102444800)

	got := firefoxCookie(slog.Default(), "acme.example.com")
	require.Equal(t, "fresh-token", got, "the cookie with the latest expiry should win")
}

func TestChromiumCookie(t *testing.T) {
	tests := map[string]struct {
		browserDir string
		cookieHost string

		want string
	}{
		"Chrome cookie":        {browserDir: "google-chrome", cookieHost: "acme.example.com", want: "session-token"},
		"Chromium cookie":      {browserDir: "chromium", cookieHost: ".acme.example.com", want: "session-token"},
		"Other host only":      {browserDir: "chromium", cookieHost: "other.example.com"},
		"No browser directory": {},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)

			if tc.browserDir != "" {
				dir := filepath.Join(home, ".config", tc.browserDir, "Default")
				require.NoError(t, os.MkdirAll(dir, 0750), "Setup: could not create cookie directory")

				writeCookieDB(t, filepath.Join(dir, "Cookies"),
					"CREATE TABLE cookies (name TEXT, value TEXT, host_key TEXT, expires_utc INTEGER)",
					"INSERT INTO cookies (name, value, host_key, expires_utc) VALUES (?, ?, ?, ?)",
					cookieName(), "session-token", tc.cookieHost, 13350000000000000)
			}

			got := chromiumCookie(slog.Default(), "acme.example.com")
			require.Equal(t, tc.want, got, "chromiumCookie should return the expected token")
		})
	}
}

func TestFirefoxProfilesOrder(t *testing.T) {
	t.Parallel()

	content := `[General]
StartWithLastProfile=1

[Profile0]
Path=old.profile
IsRelative=1

[Profile1]
Path=main.profile
IsRelative=1
Default=1

[Profile2]
Path=/abs/profile
IsRelative=0
`
	cfg, err := ini.Load([]byte(content))
	require.NoError(t, err, "Setup: could not parse profiles.ini content")

	got := firefoxProfiles(cfg, "/base")
	require.Equal(t, []string{
		filepath.Join("/base", "main.profile"),
		filepath.Join("/base", "old.profile"),
		"/abs/profile",
	}, got, "default profiles should come first")
}

// writeCredentials writes a TOML credentials file and returns its path.
func writeCredentials(t *testing.T, hostname, token string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credentials.toml")
	content := "[hosts.\"" + hostname + "\"]\ntoken = \"" + token + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "Setup: could not write credentials file")
	return path
}

// writeCookieDB creates a sqlite cookie database with a single cookie row.
func writeCookieDB(t *testing.T, path, createStmt, insertStmt string, args ...any) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err, "Setup: could not create cookie database")
	defer db.Close()

	_, err = db.Exec(createStmt)
	require.NoError(t, err, "Setup: could not create cookie table")
	_, err = db.Exec(insertStmt, args...)
	require.NoError(t, err, "Setup: could not insert cookie")
}

// insertCookie adds a row to an existing cookie database.
func insertCookie(t *testing.T, path, insertStmt string, args ...any) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err, "Setup: could not open cookie database")
	defer db.Close()

	_, err = db.Exec(insertStmt, args...)
	require.NoError(t, err, "Setup: could not insert cookie")
}

func cookieName() string {
	return constants.TokenCookieName
}
