package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"checkoutsdk/internal/common/fsutil"
	"checkoutsdk/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger builds the process logger: console (or JSON) on out, plus JSON
// lines into a rotating file when log_file is set. The closer releases the
// file.
func newLogger(cfg config.Config, out io.Writer) (zerolog.Logger, io.Closer, error) {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "":
	case "off":
		lvl = zerolog.Disabled
	default:
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
		}
		lvl = parsed
	}

	w := out
	if !cfg.LogJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		if err := fsutil.EnsureParentDir(cfg.LogFile); err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(w, file)
		closer = file
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), closer, nil
}
