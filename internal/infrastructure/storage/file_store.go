package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

// FileStore keeps the latest payload as a JSON file. Each save replaces the
// file atomically, so readers never see a partial document.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

var _ ports.PayloadStore = (*FileStore)(nil)

// NewFileStore targets path; parent directories are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the payload location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes payload to a temp file next to the target and renames it over.
func (s *FileStore) Save(ctx context.Context, payload domain.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".payload-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Latest reads the stored payload. A missing file yields domain.ErrNoPayload.
func (s *FileStore) Latest(ctx context.Context) (domain.Payload, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payload{}, err
	}

	s.mu.RLock()
	raw, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Payload{}, domain.ErrNoPayload
	}
	if err != nil {
		return domain.Payload{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	var payload domain.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Payload{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return payload, nil
}
