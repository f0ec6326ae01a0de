package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/habedi/paydash/auth"
)

// credentialFile is the root JSON structure stored on disk.
type credentialFile struct {
	Slots     map[string]string `json:"slots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileStore keeps credentials in a JSON file readable only by the owner.
// Writes replace the file atomically and are serialized across processes with flock.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

var (
	_ auth.CredentialStore = (*FileStore)(nil)
	_ auth.SessionWriter   = (*FileStore)(nil)
)

// NewFileStore creates a FileStore at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}

func (s *FileStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

func (s *FileStore) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	var found bool
	err := s.withFileLock(syscall.LOCK_SH, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		value, found = file.Slots[name]
		return nil
	})
	return value, found, err
}

func (s *FileStore) Set(_ context.Context, name, value string) error {
	return s.update(func(slots map[string]string) bool {
		slots[name] = value
		return true
	})
}

func (s *FileStore) Clear(_ context.Context, name string) error {
	return s.update(func(slots map[string]string) bool {
		if _, ok := slots[name]; !ok {
			return false
		}
		delete(slots, name)
		return true
	})
}

func (s *FileStore) ClearAll(_ context.Context) error {
	return s.update(func(slots map[string]string) bool {
		if len(slots) == 0 {
			return false
		}
		for k := range slots {
			delete(slots, k)
		}
		return true
	})
}

// SetSession writes both slots in a single file replacement.
func (s *FileStore) SetSession(_ context.Context, access, refresh string) error {
	return s.update(func(slots map[string]string) bool {
		slots[auth.AccessSlot] = access
		slots[auth.RefreshSlot] = refresh
		return true
	})
}

// update applies fn under the exclusive lock and saves when fn reports a change.
func (s *FileStore) update(fn func(map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(syscall.LOCK_EX, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		if !fn(file.Slots) {
			return nil
		}
		file.UpdatedAt = time.Now()
		return s.save(file)
	})
}

// load reads the credential file. A missing or empty file has no slots.
func (s *FileStore) load() (credentialFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return credentialFile{Slots: make(map[string]string)}, nil
		}
		return credentialFile{}, err
	}
	if len(data) == 0 {
		return credentialFile{Slots: make(map[string]string)}, nil
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return credentialFile{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if file.Slots == nil {
		file.Slots = make(map[string]string)
	}
	return file, nil
}

// save writes the credential file atomically with owner-only permissions.
func (s *FileStore) save(file credentialFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
