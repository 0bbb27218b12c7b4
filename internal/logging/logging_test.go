package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantLevel logrus.Level
		wantErr   bool
	}{
		{
			name:      "defaults",
			opts:      Options{},
			wantLevel: logrus.InfoLevel,
		},
		{
			name:      "debug json",
			opts:      Options{Level: "debug", Format: JSONFormat},
			wantLevel: logrus.DebugLevel,
		},
		{
			name:    "bad level",
			opts:    Options{Level: "chatty"},
			wantErr: true,
		},
		{
			name:    "bad format",
			opts:    Options{Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf

			logger, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if logger.GetLevel() != tt.wantLevel {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestNew_TextHasFullTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ForRun(logger, "run-1").WithField(FieldStage, "restore").Info("Stage started.")

	out := buf.String()
	for _, want := range []string{"time=", "run=run-1", "stage=restore", "Stage started."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNew_Syslog(t *testing.T) {
	orig := newSyslogHook
	defer func() { newSyslogHook = orig }()

	_, hook := test.NewNullLogger()
	newSyslogHook = func() (logrus.Hook, error) { return hook, nil }

	var buf bytes.Buffer
	logger, err := New(Options{Syslog: true, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Warn("Device is not readable and has no removal control.")

	if len(hook.Entries) != 1 {
		t.Fatalf("syslog hook saw %d entries, want 1", len(hook.Entries))
	}
	if !strings.Contains(buf.String(), "removal control") {
		t.Errorf("entry missing from stdout sink: %s", buf.String())
	}

	newSyslogHook = func() (logrus.Hook, error) { return nil, errors.New("no syslog daemon") }
	if _, err := New(Options{Syslog: true, Output: &buf}); err == nil {
		t.Error("expected syslog connection failure to be returned")
	}
}
