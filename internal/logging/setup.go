package logging

import (
	"io"
	"log/slog"
)

// Environment names understood by Setup.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup builds a Logger for the given environment: human-readable text with
// debug level locally, JSON with debug level in dev, JSON with info level in
// prod. Unknown environments fall back to prod settings.
func Setup(env string, w io.Writer) Logger {
	var h slog.Handler

	switch env {
	case EnvLocal:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case EnvDev:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return NewSlogLogger(slog.New(h))
}
