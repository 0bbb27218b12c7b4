// Package logging configures the logrus logger shared by every volcheck
// component.
package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// Field names used across packages.
const (
	FieldRun      = "run"
	FieldStage    = "stage"
	FieldResource = "resource"
	FieldStatus   = "status"
)

const (
	TextFormat = "text"
	JSONFormat = "json"

	// SyslogTag is the program name entries carry in syslog.
	SyslogTag = "volume_testing"
)

// Options configures New.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string
	// Format is text or json. Defaults to text.
	Format string
	// Syslog mirrors entries to the local syslog daemon.
	Syslog bool
	// Output defaults to stdout.
	Output io.Writer
}

// newSyslogHook is replaced in tests.
var newSyslogHook = func() (logrus.Hook, error) {
	return lsyslog.NewSyslogHook("", "", syslog.LOG_WARNING|syslog.LOG_USER, SyslogTag)
}

// New returns a logger configured by opts.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	if opts.Level == "" {
		opts.Level = "info"
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	logger.SetLevel(level)

	switch opts.Format {
	case "", TextFormat:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case JSONFormat:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format: %s", opts.Format)
	}

	if opts.Syslog {
		hook, err := newSyslogHook()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		logger.AddHook(hook)
	}

	return logger, nil
}

// ForRun returns a logger that tags every entry with the run id.
func ForRun(logger logrus.FieldLogger, runID string) logrus.FieldLogger {
	return logger.WithField(FieldRun, runID)
}
