// grbwatch/logging/logging.go
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gewnthar/grbwatch/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger that every package's
// component entry writes through. Output goes to stdout, and additionally to
// a size-rotated file when cfg.File is set. The returned closer releases the
// file and is a no-op otherwise.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	return configure(logrus.StandardLogger(), cfg, os.Stdout)
}

func configure(logger *logrus.Logger, cfg config.LoggingConfig, stdout io.Writer) (io.Closer, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.File == "" {
		logger.SetOutput(stdout)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", cfg.File, err)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	logger.SetOutput(io.MultiWriter(stdout, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
