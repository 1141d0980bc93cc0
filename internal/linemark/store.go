package linemark

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultNotesDir is the fixed-name storage subdirectory under the
// workspace root.
const DefaultNotesDir = ".linemark"

// Backend stores one note document per identifier. DirStore is the
// canonical implementation; the directory listing is the source of truth,
// there is no manifest. Memory and postgres backends exist for tests and
// headless use (see backend_factory.go) but only DirStore can be watched.
type Backend interface {
	EnsureRoot() error
	Read(id string) (string, error)
	Write(id, content string) error
	Delete(id string) error
	ListAll() (map[string]string, error)
	Close() error
}

// DirStore keeps one UTF-8 text file per note, filename = identifier.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: filepath.Clean(root)}
}

func (s *DirStore) Root() string {
	return s.root
}

// Path returns the on-disk location of a note document.
func (s *DirStore) Path(id string) string {
	return filepath.Join(s.root, id)
}

// EnsureRoot creates the storage directory and parents if absent.
// Idempotent: an existing directory and its contents are left untouched.
func (s *DirStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return storageErr("mkdir", s.root, err)
	}
	return nil
}

func (s *DirStore) Read(id string) (string, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", storageErr("read", s.Path(id), err)
	}
	return string(data), nil
}

// Write creates or overwrites a note. The write goes through a temp file
// and rename so a failure never leaves the old content truncated.
func (s *DirStore) Write(id, content string) error {
	if err := writeFileAtomic(s.Path(id), []byte(content), 0o644); err != nil {
		return storageErr("write", s.Path(id), err)
	}
	return nil
}

func (s *DirStore) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return storageErr("delete", s.Path(id), err)
	}
	return nil
}

// ListAll takes a full synchronous snapshot of the directory. Used for the
// initial load on arming and as the fresh-read fallback behind hover
// lookups; steady-state reads go through the index.
func (s *DirStore) ListAll() (map[string]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, storageErr("list", s.root, err)
	}
	all := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsIdentifier(entry.Name()) {
			continue
		}
		content, err := s.Read(entry.Name())
		if err != nil {
			// A file removed between the listing and the read is not an
			// error; the watcher reconciles the index afterwards.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		all[entry.Name()] = content
	}
	return all, nil
}

func (s *DirStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
