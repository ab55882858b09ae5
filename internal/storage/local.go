package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStorage archives reports under a directory on disk. The default
// backend for local-first runs.
type LocalStorage struct {
	root string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates the directory-backed archive.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Store writes data to a file under the root, creating subdirectories as
// needed.
func (l *LocalStorage) Store(name string, data []byte) error {
	path := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Retrieve reads a stored file.
func (l *LocalStorage) Retrieve(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// List returns stored names with the given prefix, sorted.
func (l *LocalStorage) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a stored file.
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(l.root, filepath.FromSlash(name))); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
