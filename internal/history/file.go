package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// StorageError reports a failed operation on the history file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// FileStore persists the history as a JSON array in a single file. Every
// operation reads, modifies and rewrites the whole file. Calls are
// serialized within the process; writes replace the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	opts options
}

// NewFileStore creates a FileStore backed by path. The file and its parent
// directory are created on first write.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &FileStore{path: path, opts: o}
}

func (s *FileStore) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readSoft()
	sortNewestFirst(entries)
	return entries
}

func (s *FileStore) Record(name string) (Entry, error) {
	if strings.TrimSpace(name) == "" {
		return Entry{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, e := applyRecord(s.readSoft(), name, s.opts.now(), s.opts.newID)
	if err := s.write(entries); err != nil {
		return Entry{}, err
	}

	s.opts.log.Debug().Str("id", e.ID).Str("name", e.Name).Msg("search recorded")
	return e, nil
}

func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(applyRemove(s.readSoft(), id))
}

func (s *FileStore) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, removed := applyPrune(s.readSoft(), s.opts.now().Add(-maxAge))
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(entries); err != nil {
		return 0, err
	}
	return removed, nil
}

// readSoft loads the file, treating a missing or unreadable file as empty.
func (s *FileStore) readSoft() []Entry {
	entries, err := s.read()
	if err != nil {
		s.opts.log.Warn().Err(err).Msg("history unreadable, starting empty")
		return []Entry{}
	}
	return entries
}

func (s *FileStore) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.path, Err: err}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// write replaces the file with entries via a temp file and rename.
func (s *FileStore) write(entries []Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			s.opts.log.Warn().Err(removeErr).Str("temp_path", tmpPath).Msg("failed to clean up temp file")
		}
		return &StorageError{Op: "rename", Path: s.path, Err: err}
	}

	s.opts.observer(len(entries))
	return nil
}
