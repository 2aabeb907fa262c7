package core

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger described by cfg.
//
// When cfg.Path is set, entries are written to both stderr and
// <path>/powerpersona.log. The returned close function releases the file.
func NewLogger(cfg LogConfig) (*log.Logger, func() error, error) {
	logger := log.New()

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, NewPersonaError("NewLogger", wrapf(ErrInvalidConfig, "log level %q", cfg.Level))
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	closeFn := func() error { return nil }
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, nil, NewPersonaError("NewLogger", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Path, "powerpersona.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, NewPersonaError("NewLogger", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
		closeFn = f.Close
	}

	return logger, closeFn, nil
}
