// Package logger configures zerolog for the command line tools.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileName is the run log written next to the GeoJSON output.
const FileName = "logging.log"

// Logger holds the logging options shared by every command.
type Logger struct {
	Level  string `long:"log-level"   env:"LOG_LEVEL"   description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format string `long:"log-format"  env:"LOG_FORMAT"  description:"Console log format" choice:"console" choice:"json" default:"console"`
	NoFile bool   `long:"no-log-file" env:"NO_LOG_FILE" description:"Do not write the log file into the output directory"`
}

// Setup installs the console logger as the global zerolog logger.
func (l *Logger) Setup() {
	zerolog.SetGlobalLevel(l.level())
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(l.console()).With().Timestamp().Logger()
}

// Open returns the logger for one run. Besides the console it appends to
// FileName inside dir, creating dir if needed. The returned closer must be
// closed when the run ends.
func (l *Logger) Open(dir string) (zerolog.Logger, io.Closer, error) {
	console := l.console()
	if l.NoFile {
		return zerolog.New(console).Level(l.level()).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop(), nil, eris.Wrapf(err, "logger: create %s", dir)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, eris.Wrapf(err, "logger: open %s", path)
	}

	file := zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339}
	w := zerolog.MultiLevelWriter(console, file)

	return zerolog.New(w).Level(l.level()).With().Timestamp().Logger(), f, nil
}

func (l *Logger) console() io.Writer {
	if l.Format == "json" {
		return os.Stderr
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
}

func (l *Logger) level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
