package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Config selects the log level and the optional log file.
type Config struct {
	Level string // debug, info, warn or error
	File  string // Log file path; empty disables file output.
}

// New builds the CLI logger: records go to console and, when cfg.File is set, to a log file
// that is truncated at the start of every run.
//
// The returned closer must be closed when the run ends.
func New(fs afero.Fs, console io.Writer, cfg Config) (Logger, io.Closer, error) {
	if cfg.File == "" {
		return NewSlogLogger(console, LogLevel(cfg.Level)), nopCloser{}, nil
	}

	f, err := fs.OpenFile(cfg.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %q: %w", cfg.File, err)
	}

	w := io.MultiWriter(console, f)
	return NewSlogLogger(w, LogLevel(cfg.Level)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
