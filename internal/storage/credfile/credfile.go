// Package credfile keeps registrar credentials in a small JSON document on
// disk, keyed the same way the browser client keys its local storage.
package credfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/storage"
)

var _ storage.CredentialStore = (*Store)(nil)

// Store reads and writes one credentials file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store for path. The file is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// LoadCredentials returns the saved credentials, or a zero value when the
// file does not exist yet.
func (s *Store) LoadCredentials(ctx context.Context) (brand.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return brand.Credentials{}, nil
	}
	if err != nil {
		return brand.Credentials{}, fmt.Errorf("credfile: read %s: %w", s.path, err)
	}

	var kv map[string]string
	if err := json.Unmarshal(data, &kv); err != nil {
		return brand.Credentials{}, fmt.Errorf("credfile: decode %s: %w", s.path, err)
	}
	return brand.Credentials{
		UserID: kv[storage.KeyUserID],
		APIKey: kv[storage.KeyAPIKey],
	}, nil
}

// SaveCredentials replaces the file contents. The write goes through a
// temporary file so readers never see a partial document.
func (s *Store) SaveCredentials(ctx context.Context, creds brand.Credentials) error {
	data, err := json.MarshalIndent(map[string]string{
		storage.KeyUserID: creds.UserID,
		storage.KeyAPIKey: creds.APIKey,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("credfile: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credfile: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("credfile: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: chmod: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: close: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("credfile: replace %s: %w", s.path, err)
	}
	return nil
}
