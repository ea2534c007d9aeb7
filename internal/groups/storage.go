package groups

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
)

// FileStore persists groups as one JSON document per group under
// <root>/groups/. Writes are atomic (write-temp-then-rename) so concurrent
// readers always see a consistent snapshot.
type FileStore struct {
	mu   sync.RWMutex
	root string
}

// NewFileStore creates the storage root if needed.
func NewFileStore(root string) (*FileStore, error) {
	dir := filepath.Join(root, "groups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "init")
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) groupPath(id string) string {
	return filepath.Join(s.root, "groups", id+".json")
}

// Save writes a group atomically.
func (s *FileStore) Save(g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "save")
	}

	path := s.groupPath(g.ID)
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "save")
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "save")
	}
	return nil
}

// Load reads one group by id.
func (s *FileStore) Load(id string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.groupPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, enginerr.New(enginerr.KindPersistenceFailure, "groups", "load",
				fmt.Sprintf("group %q does not exist", id))
		}
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "load")
	}
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "load")
	}
	if g.Members == nil {
		g.Members = map[string]SymbolConfig{}
	}
	return &g, nil
}

// LoadAll reads every persisted group.
func (s *FileStore) LoadAll() ([]*Group, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(s.root, "groups"))
	s.mu.RUnlock()
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "load_all")
	}

	var out []*Group
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		g, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Delete removes a group file and its monitor state directory.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.groupPath(id)); err != nil && !os.IsNotExist(err) {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "delete")
	}
	// Associated alert state goes with the group.
	monitorDir := filepath.Join(s.root, "monitors", id)
	if err := os.RemoveAll(monitorDir); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "delete")
	}
	return nil
}

// Root returns the storage root directory.
func (s *FileStore) Root() string { return s.root }
