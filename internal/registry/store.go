package registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edgegen/internal/common/fsutil"
	"edgegen/pkg/types"
)

// Magic is the first four bytes of every GGUF file.
var Magic = []byte("GGUF")

// ErrNotFound is returned when an id has no file in the store.
var ErrNotFound = errors.New("model not found")

// Store maps model ids to files under one directory: "<dir>/<id>.gguf".
type Store struct {
	Dir string

	// Download tuning; zero values select the Default* constants and
	// http.DefaultClient.
	Client           *http.Client
	Attempts         int
	RetryBackoff     time.Duration
	ProgressInterval time.Duration
}

// NewStore resolves dir ("~" allowed) and returns a Store over it.
func NewStore(dir string) (*Store, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	return &Store{Dir: abs}, nil
}

// Path returns where id lives. id may carry the extension already. Ids
// containing path separators are rejected.
func (s *Store) Path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid model id %q", id)
	}
	if !strings.EqualFold(filepath.Ext(id), Ext) {
		id += Ext
	}
	return filepath.Join(s.Dir, id), nil
}

// Exists reports whether id has a regular file in the store.
func (s *Store) Exists(id string) bool {
	p, err := s.Path(id)
	if err != nil {
		return false
	}
	_, err = fsutil.RegularFile(p)
	return err == nil
}

// Resolve returns the path of an existing model or ErrNotFound.
func (s *Store) Resolve(id string) (string, error) {
	p, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if _, err := fsutil.RegularFile(p); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Delete removes id. Deleting a missing model succeeds.
func (s *Store) Delete(id string) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List scans the store directory.
func (s *Store) List() ([]types.Model, error) {
	return NewGGUFScanner().Scan(s.Dir)
}

// Preflight checks that path is a readable regular file starting with the
// GGUF magic.
func Preflight(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("model path is empty")
	}
	if _, err := fsutil.RegularFile(path); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, head); err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	if string(head) != string(Magic) {
		return fmt.Errorf("%s: not a GGUF file", path)
	}
	return nil
}
