package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "swing-analysis.log"

type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`

	// Dir enables a rotated log file next to stdout when set
	Dir        string `json:"dir" yaml:"dir"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// New builds a logger writing to out and, if cfg.Dir is set, to a rotated
// file in that directory.
func New(cfg Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid log level")
	}

	log := logrus.New()
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, pkgerrors.Errorf("unknown log format %q", cfg.Format)
	}

	if out == nil {
		out = os.Stdout
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create log directory")
		}

		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, logFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, logFile)
	}
	log.SetOutput(out)

	return log, nil
}
