package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output. Prefer
// log.NewNop() in packages that already import internal/log; this exists
// for tests that only need the slog type.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
