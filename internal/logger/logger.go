// Package logger provides the supervisor's slog setup and the rotating
// log sinks that receive each worker's combined stdout/stderr stream.
package logger

import (
	"io"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// SinkConfig describes the log destination for one share. If Path is empty
// the sink is placed under Dir as <id>.log. Rotation parameters follow
// lumberjack semantics.
type SinkConfig struct {
	Dir        string `json:"dir" mapstructure:"dir"`
	Path       string `json:"path" mapstructure:"path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// SinkPath resolves the log file path for the given share id.
func (c SinkConfig) SinkPath(id string) string {
	if c.Path != "" {
		return c.Path
	}
	if c.Dir != "" {
		return filepath.Join(c.Dir, id+".log")
	}
	return ""
}

// Sink opens a rotating writer for the share's combined output stream. The
// writer stays open for the lifetime of the worker process and is closed by
// the supervisor when the process exits.
func (c SinkConfig) Sink(id string) (io.WriteCloser, string) {
	path := c.SinkPath(id)
	if path == "" {
		return nil, ""
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}, path
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
