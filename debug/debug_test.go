package debug

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(os.Stderr) })
	return &buf
}

func TestDropError_WithError(t *testing.T) {
	buf := capture(t)
	DropError("transport", errors.New("connection reset"))

	out := buf.String()
	if !strings.Contains(out, `"at":"transport"`) {
		t.Errorf("missing prefix field: %s", out)
	}
	if !strings.Contains(out, "connection reset") {
		t.Errorf("missing error text: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("expected error level: %s", out)
	}
}

func TestDropError_NilIsWarning(t *testing.T) {
	buf := capture(t)
	DropError("gc", nil)
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("nil error should log at warn: %s", buf.String())
	}
}

func TestDropMessage(t *testing.T) {
	buf := capture(t)
	DropMessage("engine", "safe mode entered")
	out := buf.String()
	if !strings.Contains(out, "safe mode entered") || !strings.Contains(out, `"at":"engine"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestSetup_FileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	l, err := Setup(Options{Level: "debug", Path: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	l.Info().Str("k", "v").Msg("hello")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	SetWriter(os.Stderr)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "engine*.log"))
	if len(matches) == 0 {
		t.Fatal("no log file written")
	}
	var found bool
	for _, m := range matches {
		b, _ := os.ReadFile(m)
		if bytes.Contains(b, []byte("hello")) {
			found = true
		}
	}
	if !found {
		t.Error("log line not found in any rotated file")
	}
}
