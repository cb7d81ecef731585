package cli

import (
	"log/slog"
	"os"

	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
)

// SetSlog sets the level and format of the default logger from the verbose
// flag count: 0 is the default level, 1 is info, anything above is debug.
func SetSlog(level int, jsonLogs bool) {
	slogLevel := getLevel(level)
	if jsonLogs {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})))
		return
	}

	slog.SetLogLoggerLevel(slogLevel)
}

func getLevel(level int) slog.Level {
	switch level {
	case 0:
		return constants.DefaultLogLevel
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
