package credstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

// DefaultPath returns ~/.twcadmin/credentials.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".twcadmin", "credentials.yaml"), nil
}

// FileStore persists credentials in a YAML file readable only by the owner.
//
// The file is re-read on every Get so that a login performed by another
// process is visible immediately.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by the file at path. The file is
// created lazily on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}

	e, ok := entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(f.now()) {
		delete(entries, key)
		if err := f.save(entries); err != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return e.Value, nil
}

// Set stores value under key.
func (f *FileStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[key] = newEntry(value, ttl, f.now())
	return f.save(entries)
}

// Delete removes the given keys.
func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}

	changed := false
	for _, k := range keys {
		if _, ok := entries[k]; ok {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(entries)
}

// Clear removes both tokens.
func (f *FileStore) Clear(ctx context.Context) error {
	return f.Delete(ctx, TokenKey, RefreshTokenKey)
}

func (f *FileStore) load() (map[string]entry, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]entry), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read credentials", err)
	}

	entries := make(map[string]entry)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to parse credentials", err).
			WithSuggestion(fmt.Sprintf("Remove %s and sign in again", f.path))
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string]entry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to create credentials directory", err)
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to encode credentials", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	return nil
}
