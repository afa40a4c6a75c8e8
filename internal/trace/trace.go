// Package trace provides the optional diagnostic trace sink. Tracing is
// enabled by pointing it at a file; a disabled tracer costs one nil check
// per call and performs no I/O.
package trace

import (
	"fmt"
	"os"

	clog "github.com/charmbracelet/log"
)

// EnvVar names the environment variable that enables tracing when no
// explicit destination is configured.
const EnvVar = "TERMLINE_TRACE"

// Tracer writes internal events to an append-only log file.
type Tracer struct {
	log *clog.Logger
	f   *os.File
}

// New opens an append-only trace sink at path.
func New(path string) (*Tracer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	logger := clog.NewWithOptions(f, clog.Options{
		ReportTimestamp: true,
		Prefix:          "termline",
	})
	logger.SetLevel(clog.DebugLevel)
	return &Tracer{log: logger, f: f}, nil
}

// FromEnv returns a tracer configured from TERMLINE_TRACE, or a disabled
// tracer if the variable is unset or the file cannot be opened.
func FromEnv() *Tracer {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil
	}
	t, err := New(path)
	if err != nil {
		return nil
	}
	return t
}

// Enabled reports whether events are being recorded.
func (t *Tracer) Enabled() bool {
	return t != nil && t.log != nil
}

// Event records one internal event with key/value context.
func (t *Tracer) Event(msg string, kv ...any) {
	if !t.Enabled() {
		return
	}
	t.log.Debug(msg, kv...)
}

// Close releases the underlying file.
func (t *Tracer) Close() error {
	if t == nil || t.f == nil {
		return nil
	}
	return t.f.Close()
}
