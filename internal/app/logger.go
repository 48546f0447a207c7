package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger shared by the API server and the
// worker: JSON when LOG_FORMAT=json for log ingestion, readable text
// otherwise. Source locations are always attached.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
