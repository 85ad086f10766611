package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores all keys as one JSON object in a file. Writes go to a temp file in
// the same directory and are renamed into place, so readers never observe a torn file.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend persisting to path. The parent directory is created
// on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return f.writeLocked(values)
}

func (f *FileBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.writeLocked(values)
}

func (f *FileBackend) readLocked() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("session file %s is corrupt: %w", f.path, err)
	}
	return values, nil
}

func (f *FileBackend) writeLocked(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
