// Package applog builds the agent's default structured logger. Mirrors
// pitabwire-frame's logger construction: a tint-colorized slog handler
// writing to stderr when the host doesn't supply its own *slog.Logger.
package applog

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Default returns a slog.Logger with a tint handler at the given level.
func Default(level slog.Level) *slog.Logger {
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	})
	return slog.New(h)
}
