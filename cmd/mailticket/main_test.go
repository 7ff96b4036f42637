package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/mailticket/internal/extract"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestPrintTermScores(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printTermScores(&buf, "Livewire export fails.", "live wire")
	out := buf.String()

	for _, want := range []string{
		"CANDIDATE",
		"fails",
		`"export fails"`,
		`best similarity of "live wire" in content:`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "fails.") {
		t.Errorf("punctuation not stripped:\n%s", out)
	}
}

func TestPrintDictionary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printDictionary(&buf, extract.DefaultDictionary())
	out := buf.String()

	for _, want := range []string{"SECTION", "project", "priority", "bug type", "Livewire"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestReadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.eml":   "Subject: one\n\nbody",
		"b.txt":   "Subject: two\n\nbody",
		"c.jpg":   "not mail",
		"one.eml": "Subject: three\n\nbody",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	msgs, err := readPath(dir, []string{".eml", ".txt"})
	if err != nil {
		t.Fatalf("readPath(dir): %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("directory messages: got %d, want 3", len(msgs))
	}

	msgs, err = readPath(filepath.Join(dir, "c.jpg"), []string{".eml"})
	if err != nil {
		t.Fatalf("readPath(file): %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "c.jpg" {
		t.Errorf("single file: got %+v", msgs)
	}

	if _, err := readPath(filepath.Join(dir, "absent.eml"), nil); err == nil {
		t.Error("expected error for missing path")
	}
}
