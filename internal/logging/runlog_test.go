package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenRunLog_WritesFileAndParent(t *testing.T) {
	dir := t.TempDir()
	var parentBuf bytes.Buffer
	parent := slog.New(slog.NewTextHandler(&parentBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	now := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	rl, err := OpenRunLog(dir, parent, now)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}

	wantPath := filepath.Join(dir, "import_20240301123045.log")
	if rl.Path != wantPath {
		t.Errorf("Path = %q, want %q", rl.Path, wantPath)
	}

	rl.Logger.With("gmv_id", "151234").Debug("debug detail")
	rl.Logger.Info("phase started", "phase", "organizations")
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(rl.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	file := string(data)
	if !strings.Contains(file, "debug detail") || !strings.Contains(file, "gmv_id=151234") {
		t.Errorf("run log missing debug record: %s", file)
	}
	if !strings.Contains(file, "phase=organizations") {
		t.Errorf("run log missing info record: %s", file)
	}

	if strings.Contains(parentBuf.String(), "debug detail") {
		t.Errorf("parent logger should not receive debug records: %s", parentBuf.String())
	}
	if !strings.Contains(parentBuf.String(), "phase started") {
		t.Errorf("parent logger missing info record: %s", parentBuf.String())
	}
}

func TestOpenRunLog_MissingFolder(t *testing.T) {
	if _, err := OpenRunLog(filepath.Join(t.TempDir(), "nope"), nil, time.Now()); err == nil {
		t.Fatal("OpenRunLog() expected error for missing folder")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
