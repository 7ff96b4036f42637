package extract

import (
	"context"
	"log/slog"
)

// diag logs engine decisions at Info when verbose logging is enabled and at
// Debug otherwise.
type diag struct {
	logger  *slog.Logger
	verbose bool
}

func newDiag(logger *slog.Logger, verbose bool) diag {
	if logger == nil {
		logger = slog.Default()
	}
	return diag{logger: logger, verbose: verbose}
}

func (d diag) log(msg string, args ...any) {
	level := slog.LevelDebug
	if d.verbose {
		level = slog.LevelInfo
	}
	d.logger.Log(context.Background(), level, msg, args...)
}

func (d diag) warn(msg string, args ...any) {
	d.logger.Warn(msg, args...)
}
