// Package logging routes the standard logger to stderr, a rotating file, or both.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/unklstewy/ivao-tracker/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the standard logger at the configured destination.
//
// With a log file configured, output goes to a lumberjack rotating file and,
// when console is true, also to stderr. Without one, output goes to stderr if
// console is true and is discarded otherwise (full-screen terminal UIs).
// The returned closer releases the file; it is safe to call when no file is used.
func Setup(cfg config.LoggingConfig, console bool) (io.Closer, error) {
	log.SetFlags(log.LstdFlags)

	if cfg.File == "" {
		if console {
			log.SetOutput(os.Stderr)
		} else {
			log.SetOutput(io.Discard)
		}
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, err
	}

	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	if console {
		log.SetOutput(io.MultiWriter(os.Stderr, w))
	} else {
		log.SetOutput(w)
	}
	return w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
