package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/doITmagic/repo-similarity/internal/config"
)

// setupLogging installs the default slog logger. Logs go to stderr so that
// stdout stays reserved for the report. The returned closer releases the
// log file, if one was opened.
func setupLogging(cfg config.LoggingConfig) (io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.File != "" {
		if cfg.MaxSizeMB > 0 {
			rotateLogFile(cfg.File, cfg.MaxSizeMB)
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// rotateLogFile trims the oldest lines of the log file once it exceeds
// maxSizeMB. At least a tenth of the file is dropped, and the cut always
// lands on a line boundary.
func rotateLogFile(path string, maxSizeMB int) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	limit := int64(maxSizeMB) * 1024 * 1024
	if info.Size() <= limit {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to read log file %s for rotation: %v\n", path, err)
		return
	}

	cut := max(int64(len(data))/10, int64(len(data))-limit*9/10)
	nl := bytes.IndexByte(data[cut:], '\n')
	if nl < 0 {
		data = nil
	} else {
		data = data[cut+int64(nl)+1:]
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to rotate log file %s: %v\n", path, err)
	}
}
