package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"snapfetch/internal/common"
	"snapfetch/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates the process root logger from configuration. It always writes to
// the console and additionally to a rotated log file when LogFile is set.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	writers := []io.Writer{consoleWriter(cfg, os.Stderr)}

	if cfg.LogFile != "" {
		fileWriter, err := newFileWriter(cfg, cfg.LogFile)
		if err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, fileWriter)
	}

	return build(cfg, writers)
}

// NewSourceLogger creates a logger for one fetcher. It tees the root logger's
// console output with a rotated per-source log file and tags every event with
// the source name.
func NewSourceLogger(cfg config.LogConfig, sourceName, logPath string) (zerolog.Logger, error) {
	fileWriter, err := newFileWriter(cfg, logPath)
	if err != nil {
		return zerolog.Logger{}, err
	}

	base, err := build(cfg, []io.Writer{consoleWriter(cfg, os.Stderr), fileWriter})
	if err != nil {
		return zerolog.Logger{}, err
	}
	return base.With().Str("source", sourceName).Logger(), nil
}

func build(cfg config.LogConfig, writers []io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, common.WrapError(err, "invalid log level '"+cfg.LogLevel+"'")
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).Level(level).With().Timestamp().Logger(), nil
}

func consoleWriter(cfg config.LogConfig, out io.Writer) io.Writer {
	if cfg.LogFormat == "json" {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
}

// newFileWriter creates a rotated file writer. Log files always carry plain
// JSON lines regardless of the console format.
func newFileWriter(cfg config.LogConfig, path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, common.WrapError(err, "failed to create log directory for '"+path+"'")
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxLogSizeMB,
		MaxBackups: cfg.MaxLogBackups,
		LocalTime:  true,
	}, nil
}
