// Package store persists the menu snapshot and the user profile document.
// Each document is read and written as a whole unit; writes go to a
// temporary file in the same directory and are renamed into place so a
// reader never observes a torn document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"mensahub/internal/menu"
	"mensahub/internal/user"
)

// MenuStore loads and saves the WeekMenu snapshot.
type MenuStore interface {
	Load() (*menu.WeekMenu, error)
	Save(week menu.WeekMenu) error
}

// UserStore loads and saves the full user profile document.
type UserStore interface {
	Load() (user.Profiles, error)
	Save(profiles user.Profiles) error
}

type menuFileStore struct {
	mu   sync.Mutex
	path string
}

// NewMenuStore returns a MenuStore backed by the JSON file at path.
func NewMenuStore(path string) MenuStore {
	return &menuFileStore{path: path}
}

// Load returns the current snapshot, or nil when no snapshot exists yet.
func (s *menuFileStore) Load() (*menu.WeekMenu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading menu snapshot: %w", err)
	}

	var week menu.WeekMenu
	if err := json.Unmarshal(data, &week); err != nil {
		return nil, fmt.Errorf("parsing menu snapshot: %w", err)
	}
	return &week, nil
}

// Save replaces the snapshot wholesale. The previous snapshot stays valid
// until the new one is fully written.
func (s *menuFileStore) Save(week menu.WeekMenu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDocument(s.path, week)
}

type userFileStore struct {
	mu   sync.Mutex
	path string
}

// NewUserStore returns a UserStore backed by the JSON file at path.
func NewUserStore(path string) UserStore {
	return &userFileStore{path: path}
}

// Load returns the profile document. A missing file yields an empty
// document, not an error.
func (s *userFileStore) Load() (user.Profiles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return user.Profiles{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user data: %w", err)
	}

	var profiles user.Profiles
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parsing user data: %w", err)
	}
	for id, profile := range profiles {
		profile.ID = id
		if profile.Notifications == nil {
			profile.Notifications = map[string]*user.Notification{}
		}
	}
	return profiles, nil
}

func (s *userFileStore) Save(profiles user.Profiles) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDocument(s.path, profiles)
}

// writeDocument marshals v and atomically replaces the file at path.
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating document directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp document: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}
