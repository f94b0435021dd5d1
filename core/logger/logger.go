package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AzielCF/az-connect/core/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger from cfg. When a log file is
// set, output goes to both stdout and a rotating file.
func Setup(cfg config.LogConfig, debug bool) error {
	w, err := buildWriter(cfg)
	if err != nil {
		return err
	}
	logrus.SetOutput(w)

	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := parseLevel(cfg.Level)
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	return nil
}

func buildWriter(cfg config.LogConfig) (io.Writer, error) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stdout, nil
	}

	dir := filepath.Dir(cfg.File)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir failed: %w", err)
		}
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	rotate := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: max(cfg.MaxBackups, 0),
		MaxAge:     max(cfg.MaxAgeDays, 0),
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotate), nil
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
