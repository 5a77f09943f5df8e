package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"ERROR", log.ErrorLevel},
		{"", log.InfoLevel},
		{"loud", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(&bytes.Buffer{}, tt.level)
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("New(%q).GetLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("quiet")
	l.Warn("loud", "key", "ff/C4")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "ff/C4") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "textseq.log")
	l, f, err := OpenFile(path, "info")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	l.Info("started")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "started") {
		t.Errorf("log file = %q, want it to contain %q", data, "started")
	}
}
