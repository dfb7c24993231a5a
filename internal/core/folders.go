package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// ErrInvalidFolder is returned for a folder name that is not a single path
// element below the base folder.
var ErrInvalidFolder = errors.New("invalid import folder name")

// ListFolders returns the import folders below base, newest first.
func ListFolders(base string) ([]Folder, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("list import folders: %w", err)
	}

	var folders []Folder
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(base, e.Name())
		_, statErr := os.Stat(filepath.Join(path, filepath.FromSlash(entity.DataDir)))
		folders = append(folders, Folder{
			Name:     e.Name(),
			Path:     path,
			Modified: info.ModTime(),
			HasData:  statErr == nil,
		})
	}

	sort.Slice(folders, func(i, j int) bool {
		if !folders[i].Modified.Equal(folders[j].Modified) {
			return folders[i].Modified.After(folders[j].Modified)
		}
		return folders[i].Name > folders[j].Name
	})
	return folders, nil
}

// ResolveFolder returns the path of the import folder name below base.
func ResolveFolder(base, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, name)
	}
	path := filepath.Join(base, name)
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", reconcile.ErrFolderNotFound, name)
	}
	return path, nil
}
