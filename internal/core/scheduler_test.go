package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/gmvsync/internal/entity"
)

func TestFolderOf(t *testing.T) {
	base := filepath.FromSlash("/imports")
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/imports/2024-03-01", "2024-03-01", true},
		{"/imports/2024-03-01/data/ekir_gmv/person.csv", "2024-03-01", true},
		{"/imports", "", false},
		{"/elsewhere/2024-03-01", "", false},
		{"/imports/.tmp/x.csv", "", false},
	}

	for _, tt := range tests {
		got, ok := folderOf(base, filepath.FromSlash(tt.path))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("folderOf(%q) = %q, %t, want %q, %t", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	svc := NewService(&fakeRunner{}, t.TempDir(), nil, nil, nil)
	s := NewScheduler(svc, nil)
	defer s.Stop()

	if err := s.Schedule(context.Background(), "not a cron"); err == nil {
		t.Error("Schedule() with an invalid spec should fail")
	}
	if err := s.Schedule(context.Background(), "0 6 * * *"); err != nil {
		t.Errorf("Schedule() error = %v", err)
	}
}

func TestWatchRunsNewFolder(t *testing.T) {
	base := t.TempDir()
	runner := &fakeRunner{}
	svc := NewService(runner, base, NewRunGate(time.Second), nil, nil)
	s := NewScheduler(svc, nil)
	defer s.Stop()

	if err := s.Watch(context.Background(), 50*time.Millisecond); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	dataDir := filepath.Join(base, "2024-03-01", filepath.FromSlash(entity.DataDir))
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dataDir, entity.FilePersons), []byte("id\n"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := runner.ran(); len(got) > 0 {
			if filepath.Base(got[0]) != "2024-03-01" {
				t.Errorf("ran %v, want 2024-03-01", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watched folder was not run")
}
