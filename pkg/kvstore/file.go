package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Storage persisted as a single JSON document on disk.
// It plays the role browser local storage plays for a web client: state
// written by one process run is visible to the next.
//
// Every mutation rewrites the document atomically (temp file + rename).
// File is safe for concurrent use within one process only.
type File struct {
	items map[string]string
	path  string
	perm  os.FileMode
	mu    sync.Mutex
}

// FileOption configures a File storage.
type FileOption func(*File)

// WithFileMode sets the permission bits used when creating the document.
// Default: 0o600.
func WithFileMode(perm os.FileMode) FileOption {
	return func(f *File) {
		f.perm = perm
	}
}

// OpenFile loads the document at path, creating parent directories as needed.
// A missing file is treated as empty storage.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		items: make(map[string]string),
		path:  path,
		perm:  0o600,
	}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("kvstore: read %s: %w", path, err)
	}

	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.items); err != nil {
		return nil, errors.Join(ErrCorruptFile, err)
	}

	return f, nil
}

// Get returns the value stored under key.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

// Set stores value under key and flushes the document.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.items[key]
	f.items[key] = string(value)

	if err := f.flush(); err != nil {
		if existed {
			f.items[key] = prev
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

// Remove deletes key and flushes the document.
func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.items[key]
	if !existed {
		return nil
	}
	delete(f.items, key)

	if err := f.flush(); err != nil {
		f.items[key] = prev
		return err
	}
	return nil
}

// Path returns the location of the backing document.
func (f *File) Path() string {
	return f.path
}

// flush writes the document. Caller must hold the mutex.
func (f *File) flush() error {
	data, err := json.MarshalIndent(f.items, "", "  ")
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("kvstore: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kvstore: write temp file: %w", err)
	}
	if err := tmp.Chmod(f.perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kvstore: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kvstore: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("kvstore: replace %s: %w", f.path, err)
	}
	return nil
}

var _ Storage = (*File)(nil)
