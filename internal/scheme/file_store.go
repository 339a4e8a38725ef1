package scheme

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// FileStore keeps schemes in a single JSON file on local disk.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// Save writes schemes to a temporary file in the target directory and
// renames it over the target, so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, schemes []domain.Scheme) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(schemes)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scheme: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("scheme: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("scheme: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("scheme: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("scheme: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("scheme: rename to %s: %w", s.path, err)
	}
	return nil
}

// Load reads and decodes the file. A missing file yields domain.ErrNotFound.
func (s *FileStore) Load(ctx context.Context) ([]domain.Scheme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scheme: load %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scheme: load %s: %w", s.path, err)
	}
	return Decode(data)
}

var _ domain.SchemeStore = (*FileStore)(nil)
