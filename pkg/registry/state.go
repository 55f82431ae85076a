package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ccproxy-hq/ccproxy/pkg/config"
)

// State is the persisted part of the registry.
type State struct {
	SelectedProvider  string          `json:"selected_provider"`
	SelectionRequired bool            `json:"selection_required"`
	GlobalOverride    config.Override `json:"global_override"`
}

func (s State) clone() State {
	s.GlobalOverride = s.GlobalOverride.Clone()
	return s
}

// StateStore persists registry state between runs.
type StateStore interface {
	// Load returns the stored state. A store with nothing saved yet returns
	// the zero State and no error.
	Load() (State, error)

	// Save replaces the stored state.
	Save(State) error
}

// FileStore implements StateStore as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the state file. A missing file is not an error.
func (f *FileStore) Load() (State, error) {
	var st State

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read state file %q: %w", f.path, err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to decode state file %q: %w", f.path, err)
	}
	return st, nil
}

// Save writes state to a temporary file in the same directory and renames it
// over the target, so readers never see a partial document.
func (f *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file %q: %w", f.path, err)
	}
	return nil
}

// MemoryStore implements StateStore in memory. Nothing survives the process.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saves int
}

// NewMemoryStore creates a store preloaded with initial.
func NewMemoryStore(initial State) *MemoryStore {
	return &MemoryStore{state: initial.clone()}
}

// Load returns the last saved state.
func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

// Save records st.
func (m *MemoryStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st.clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
