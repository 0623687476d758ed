package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for the host log and service capture files.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the host log destinations.
// The host writes structured records to a single rotating file and mirrors
// them to the console. Captured service output can additionally be teed to
// per-role files under Dir.
type Config struct {
	Dir        string `json:"dir" mapstructure:"dir"`                 // base directory for log files
	FilePath   string `json:"file" mapstructure:"file"`               // explicit host log path overrides Dir/host.log
	Level      string `json:"level" mapstructure:"level"`             // debug|info|warn|error (default info)
	Console    bool   `json:"console" mapstructure:"console"`         // mirror records to stderr
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"` // megabytes before rotation
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// New builds the host *slog.Logger. The returned closer owns the rotating
// file writer and must be closed on shutdown.
func (c Config) New() (*slog.Logger, io.Closer, error) {
	level := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	path := c.FilePath
	if path == "" && c.Dir != "" {
		path = filepath.Join(c.Dir, "host.log")
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		fw := &lj.Logger{
			Filename:   path,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
		handlers = append(handlers, slog.NewTextHandler(fw, opts))
		closer = fw
	}
	if c.Console || path == "" {
		handlers = append(handlers, NewColorTextHandler(os.Stderr, opts, true))
	}
	return slog.New(newFanoutHandler(handlers...)), closer, nil
}

// CaptureWriter returns a rotating writer for one service role's raw output
// (Dir/<role>.out.log). Returns nil when no Dir is configured; callers then
// rely on the structured log alone.
func (c Config) CaptureWriter(role string) io.WriteCloser {
	if c.Dir == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   filepath.Join(c.Dir, fmt.Sprintf("%s.out.log", role)),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
