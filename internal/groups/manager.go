package groups

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
)

var idSanitizer = regexp.MustCompile(`[^a-z0-9_-]+`)

// Manager is the in-memory view over the group store. It serializes all
// mutations so the scheduler sees config changes atomically between ticks.
type Manager struct {
	mu    sync.RWMutex
	store *FileStore
	cache map[string]*Group
	now   func() time.Time
}

// NewManager loads every persisted group into memory.
func NewManager(store *FileStore) (*Manager, error) {
	m := &Manager{store: store, cache: make(map[string]*Group), now: time.Now}
	loaded, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, g := range loaded {
		m.cache[g.ID] = g
	}
	return m, nil
}

// CreateGroup creates and persists a new enabled group. The id is derived
// from the name.
func (m *Manager) CreateGroup(name, description string, tags []string) (*Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := idSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	if id == "" {
		return nil, enginerr.New(enginerr.KindParameterValidation, "groups", "create", "empty group name")
	}
	if _, exists := m.cache[id]; exists {
		return nil, enginerr.New(enginerr.KindParameterValidation, "groups", "create",
			fmt.Sprintf("group %q already exists", id))
	}

	now := m.now().UTC()
	g := &Group{
		ID:          id,
		Name:        name,
		Description: description,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
		Enabled:     true,
		Members:     map[string]SymbolConfig{},
	}
	if err := m.store.Save(g); err != nil {
		return nil, err
	}
	m.cache[id] = g
	return cloneGroup(g), nil
}

// Get returns a copy of one group.
func (m *Manager) Get(id string) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.cache[id]
	if !ok {
		return nil, enginerr.New(enginerr.KindPersistenceFailure, "groups", "get",
			fmt.Sprintf("group %q does not exist", id))
	}
	return cloneGroup(g), nil
}

// List returns copies of all groups sorted by id.
func (m *Manager) List() []*Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Group, 0, len(m.cache))
	for _, g := range m.cache {
		out = append(out, cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update applies a mutation to a group under the manager lock and persists
// the result. The mutation sees a private copy; on success the copy becomes
// the new cached group.
func (m *Manager) Update(id string, mutate func(*Group) error) (*Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.cache[id]
	if !ok {
		return nil, enginerr.New(enginerr.KindPersistenceFailure, "groups", "update",
			fmt.Sprintf("group %q does not exist", id))
	}
	next := cloneGroup(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now().UTC()
	if err := m.store.Save(next); err != nil {
		return nil, err
	}
	m.cache[id] = next
	return cloneGroup(next), nil
}

// DeleteGroup removes a group and its persisted file. Monitor state lives
// in the scheduler's StateStore; callers deleting a group remove it there
// via StateStore.DeleteGroup.
func (m *Manager) DeleteGroup(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cache[id]; !ok {
		return enginerr.New(enginerr.KindPersistenceFailure, "groups", "delete",
			fmt.Sprintf("group %q does not exist", id))
	}
	if err := m.store.Delete(id); err != nil {
		return err
	}
	delete(m.cache, id)
	return nil
}

// AddSymbol adds a member to a group, keyed by upper-cased symbol.
func (m *Manager) AddSymbol(groupID string, cfg SymbolConfig) (*Group, error) {
	key := SymbolKey(cfg.Symbol)
	return m.Update(groupID, func(g *Group) error {
		if _, exists := g.Members[key]; exists {
			return enginerr.New(enginerr.KindParameterValidation, "groups", "add_symbol",
				fmt.Sprintf("symbol %q already in group %q", key, groupID))
		}
		g.Members[key] = cfg
		return nil
	})
}

// RemoveSymbol drops a member from a group.
func (m *Manager) RemoveSymbol(groupID, symbolKey string) (*Group, error) {
	return m.Update(groupID, func(g *Group) error {
		if _, exists := g.Members[symbolKey]; !exists {
			return enginerr.New(enginerr.KindParameterValidation, "groups", "remove_symbol",
				fmt.Sprintf("symbol %q not in group %q", symbolKey, groupID))
		}
		delete(g.Members, symbolKey)
		return nil
	})
}

// SetSymbolEnabled toggles one member without touching its other settings.
func (m *Manager) SetSymbolEnabled(groupID, symbolKey string, enabled bool) (*Group, error) {
	return m.Update(groupID, func(g *Group) error {
		member, exists := g.Members[symbolKey]
		if !exists {
			return enginerr.New(enginerr.KindParameterValidation, "groups", "set_enabled",
				fmt.Sprintf("symbol %q not in group %q", symbolKey, groupID))
		}
		member.Enabled = enabled
		g.Members[symbolKey] = member
		return nil
	})
}

// Resolved returns the merged config for one member.
func (m *Manager) Resolved(groupID, symbolKey string) (ResolvedConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.cache[groupID]
	if !ok {
		return ResolvedConfig{}, enginerr.New(enginerr.KindPersistenceFailure, "groups", "resolve",
			fmt.Sprintf("group %q does not exist", groupID))
	}
	cfg, ok := Resolve(g, symbolKey)
	if !ok {
		return ResolvedConfig{}, enginerr.New(enginerr.KindParameterValidation, "groups", "resolve",
			fmt.Sprintf("symbol %q not in group %q", symbolKey, groupID))
	}
	return cfg, nil
}

// ResolvedMonitors returns the resolved config of every enabled member with
// an enabled alert policy, across all groups.
func (m *Manager) ResolvedMonitors() []ResolvedConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ResolvedConfig
	for _, g := range m.cache {
		for _, cfg := range ResolveAll(g) {
			if cfg.Enabled && cfg.Alert.Enabled {
				out = append(out, cfg)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return out[i].GroupID < out[j].GroupID
		}
		return out[i].SymbolKey < out[j].SymbolKey
	})
	return out
}

// Export writes a group as indented JSON to a file.
func (m *Manager) Export(groupID, path string) error {
	g, err := m.Get(groupID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "export")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "export")
	}
	return nil
}

// Import loads a group document from a file and persists it. An existing
// group with the same id is replaced.
func (m *Manager) Import(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "import")
	}
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "groups", "import")
	}
	if g.ID == "" {
		return nil, enginerr.New(enginerr.KindParameterValidation, "groups", "import", "group id missing")
	}
	if g.Members == nil {
		g.Members = map[string]SymbolConfig{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g.UpdatedAt = m.now().UTC()
	if err := m.store.Save(&g); err != nil {
		return nil, err
	}
	m.cache[g.ID] = &g
	return cloneGroup(&g), nil
}

// SymbolKey normalizes a symbol into its member key.
func SymbolKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// cloneGroup deep-copies via JSON; group documents are small and this keeps
// copy semantics in lockstep with the persisted form.
func cloneGroup(g *Group) *Group {
	data, _ := json.Marshal(g)
	var out Group
	_ = json.Unmarshal(data, &out)
	if out.Members == nil {
		out.Members = map[string]SymbolConfig{}
	}
	return &out
}
