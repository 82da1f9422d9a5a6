package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Blobs is the key-value blob store profiles persist into. The file
// implementation below is the default; tests use the in-memory one.
type Blobs interface {
	// Get returns the blob stored under key, or ok=false when none is.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous blob.
	Set(key string, value []byte) error

	// Delete removes the blob under key. Missing keys are not an error.
	Delete(key string) error
}

// fileBlobs stores each key as a file inside one directory.
type fileBlobs struct {
	dir string
	mu  sync.Mutex
}

// NewFileBlobs returns a Blobs writing into dir, creating it if needed.
func NewFileBlobs(dir string) (Blobs, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &fileBlobs{dir: dir}, nil
}

func (b *fileBlobs) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *fileBlobs) Get(key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, true, nil
}

func (b *fileBlobs) Set(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Write-then-rename so a crash never leaves a half-written blob.
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		return fmt.Errorf("failed to commit blob %q: %w", key, err)
	}
	return nil
}

func (b *fileBlobs) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := os.Remove(b.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

// memoryBlobs is an in-memory Blobs for tests.
type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryBlobs returns an in-memory Blobs.
func NewMemoryBlobs() Blobs {
	return &memoryBlobs{blobs: make(map[string][]byte)}
}

func (b *memoryBlobs) Get(key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (b *memoryBlobs) Set(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (b *memoryBlobs) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs, key)
	return nil
}
