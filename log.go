package dio

import "log/slog"

// Global logger for all dio files
var log = slog.Default()

// SetLogger configures the global logger
func SetLogger(l *slog.Logger) {
	log = l
}
