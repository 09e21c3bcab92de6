package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store reads and substitutes document content.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
}

// DiskStore persists documents in place.
type DiskStore struct{}

// NewDiskStore creates a store backed by the file system.
func NewDiskStore() *DiskStore {
	return &DiskStore{}
}

func (s *DiskStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file atomically: content goes to a temporary file in
// the same directory which is then renamed over the original.
func (s *DiskStore) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".avport-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// MemoryStore keeps documents in memory, optionally over a base store.
// Writes never reach the base store, which makes it suitable for dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string][]byte
	written map[string]bool
	base    Store
}

// NewMemoryStore creates a store holding the given documents.
func NewMemoryStore(files map[string][]byte) *MemoryStore {
	m := &MemoryStore{files: map[string][]byte{}, written: map[string]bool{}}
	for k, v := range files {
		m.files[k] = append([]byte(nil), v...)
	}
	return m
}

// NewOverlayStore creates a store that reads through to base until a
// document is written.
func NewOverlayStore(base Store) *MemoryStore {
	m := NewMemoryStore(nil)
	m.base = base
	return m
}

func (m *MemoryStore) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.files[path]
	m.mu.RUnlock()
	if ok {
		return append([]byte(nil), data...), nil
	}
	if m.base != nil {
		return m.base.Read(ctx, path)
	}
	return nil, fmt.Errorf("failed to read %s: %w", path, os.ErrNotExist)
}

func (m *MemoryStore) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), content...)
	m.written[path] = true
	return nil
}

// Content returns the current content of a document held in memory.
func (m *MemoryStore) Content(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	return data, ok
}

// Written returns the sorted paths written since the store was created.
func (m *MemoryStore) Written() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.written))
	for p := range m.written {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
