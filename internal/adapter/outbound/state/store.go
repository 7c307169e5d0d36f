// Package state provides file-based persistence for the session mirror.
//
// The session file plays the part of the browser's local storage for
// processes that have none (the CLI): a flat JSON object of opaque string
// values. Writes are atomic (write-tmp-then-rename), guarded by a mutex for
// in-process callers and a flock for other processes, and the file is kept
// at 0600 because it holds a bearer token.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/passa-a-bola/web/internal/domain/session"
)

// fileVersion is the schema version written to new files.
const fileVersion = "1"

// sessionFile is the on-disk layout.
type sessionFile struct {
	Version   string            `json:"version"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileStorage implements session.Storage on top of a JSON file.
type FileStorage struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStorage creates a FileStorage for the given path. The file is
// created on first write; its directory is created with 0700 if missing.
func NewFileStorage(path string, logger *slog.Logger) *FileStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{
		path:   path,
		logger: logger,
	}
}

// Get returns the value for key. A missing file is an empty store.
func (s *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := f.Values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *FileStorage) Set(_ context.Context, key, value string) error {
	return s.update(func(values map[string]string) bool {
		if cur, ok := values[key]; ok && cur == value {
			return false
		}
		values[key] = value
		return true
	})
}

// Delete removes key. Deleting an absent key does not touch the file.
func (s *FileStorage) Delete(_ context.Context, key string) error {
	return s.update(func(values map[string]string) bool {
		if _, ok := values[key]; !ok {
			return false
		}
		delete(values, key)
		return true
	})
}

// Path returns the configured file path.
func (s *FileStorage) Path() string {
	return s.path
}

// Exists returns true if the session file exists on disk.
func (s *FileStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// update runs mutate against the current values under both locks and
// persists the result if mutate reports a change.
func (s *FileStorage) update(mutate func(map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Acquire cross-process file lock.
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	// Re-read under the flock so writes from other processes are kept.
	f, err := s.load()
	if err != nil {
		return err
	}
	if !mutate(f.Values) {
		return nil
	}
	f.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	// Rename keeps the tmp file's mode, but make sure anyway.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on session file", "error", err)
	}

	s.logger.Debug("session file saved", "path", s.path)
	return nil
}

// load reads and parses the session file. Callers hold s.mu.
func (s *FileStorage) load() (*sessionFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &sessionFile{Version: fileVersion, Values: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	// Skip on Windows where Unix permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("session file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if f.Values == nil {
		f.Values = map[string]string{}
	}
	return &f, nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStorage) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to session file: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var _ session.Storage = (*FileStorage)(nil)
