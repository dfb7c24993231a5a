package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// makeFolder creates an import folder below base, optionally with the
// export sub folder, and sets its modification time.
func makeFolder(t *testing.T, base, name string, withData bool, mod time.Time) {
	t.Helper()
	dir := filepath.Join(base, name)
	if withData {
		dir = filepath.Join(dir, filepath.FromSlash(entity.DataDir))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(base, name), mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestListFolders(t *testing.T) {
	base := t.TempDir()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	makeFolder(t, base, "2024-02-01", true, day.Add(-24*time.Hour))
	makeFolder(t, base, "2024-03-01", true, day)
	makeFolder(t, base, "incomplete", false, day.Add(time.Hour))
	makeFolder(t, base, ".hidden", true, day.Add(2*time.Hour))
	os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644)

	folders, err := ListFolders(base)
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}

	want := []struct {
		name    string
		hasData bool
	}{
		{"incomplete", false},
		{"2024-03-01", true},
		{"2024-02-01", true},
	}
	if len(folders) != len(want) {
		t.Fatalf("len(ListFolders()) = %d, want %d", len(folders), len(want))
	}
	for i, w := range want {
		if folders[i].Name != w.name || folders[i].HasData != w.hasData {
			t.Errorf("folders[%d] = %s/%t, want %s/%t", i, folders[i].Name, folders[i].HasData, w.name, w.hasData)
		}
	}
}

func TestListFoldersMissingBase(t *testing.T) {
	if _, err := ListFolders(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ListFolders() on a missing base should fail")
	}
}

func TestResolveFolder(t *testing.T) {
	base := t.TempDir()
	makeFolder(t, base, "2024-03-01", true, time.Now())

	tests := []struct {
		name    string
		folder  string
		wantErr error
	}{
		{"existing folder", "2024-03-01", nil},
		{"missing folder", "2024-04-01", reconcile.ErrFolderNotFound},
		{"empty name", "", ErrInvalidFolder},
		{"parent", "..", ErrInvalidFolder},
		{"path traversal", "../etc", ErrInvalidFolder},
		{"nested path", "2024-03-01/data", ErrInvalidFolder},
		{"backslash", `a\b`, ErrInvalidFolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ResolveFolder(base, tt.folder)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ResolveFolder() error = %v", err)
				}
				if path != filepath.Join(base, tt.folder) {
					t.Errorf("ResolveFolder() = %q", path)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ResolveFolder(%q) error = %v, want %v", tt.folder, err, tt.wantErr)
			}
		})
	}
}
