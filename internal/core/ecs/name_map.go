package ecs

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// EditorNameMap associates IDs with human-readable names for tooling. Names are
// compared after NFC normalization and must be unique, as must IDs.
type EditorNameMap struct {
	log *zap.Logger

	mu     sync.RWMutex
	byID   map[ID]string
	byName map[string]ID
}

func NewEditorNameMap(log *zap.Logger) *EditorNameMap {
	if log == nil {
		log = zap.NewNop()
	}
	return &EditorNameMap{
		log:    log,
		byID:   make(map[ID]string),
		byName: make(map[string]ID),
	}
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Add registers name for id. It fails if either is invalid or already mapped.
func (m *EditorNameMap) Add(id ID, name string) bool {
	name = normalizeName(name)
	if id == InvalidID || name == "" {
		m.log.Warn("editor name rejected", zap.Stringer("id", id), zap.String("name", name))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byID[id]; ok {
		m.log.Warn("id already has an editor name",
			zap.Stringer("id", id), zap.String("existing", existing), zap.String("name", name))
		return false
	}
	if owner, ok := m.byName[name]; ok {
		m.log.Warn("editor name already in use",
			zap.String("name", name), zap.Stringer("owner", owner), zap.Stringer("id", id))
		return false
	}
	m.byID[id] = name
	m.byName[name] = id
	return true
}

// Update renames id. An empty name removes the mapping.
func (m *EditorNameMap) Update(id ID, name string) bool {
	name = normalizeName(name)
	if name == "" {
		return m.Remove(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.byID[id]
	if !ok {
		m.log.Warn("no editor name to update", zap.Stringer("id", id))
		return false
	}
	if old == name {
		return true
	}
	if owner, taken := m.byName[name]; taken {
		m.log.Warn("editor name already in use",
			zap.String("name", name), zap.Stringer("owner", owner), zap.Stringer("id", id))
		return false
	}
	delete(m.byName, old)
	m.byID[id] = name
	m.byName[name] = id
	return true
}

func (m *EditorNameMap) Remove(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	delete(m.byName, name)
	return true
}

// FindID returns InvalidID if name is not mapped.
func (m *EditorNameMap) FindID(name string) ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[normalizeName(name)]
}

func (m *EditorNameMap) FindName(id ID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byID[id]
	return name, ok
}

func (m *EditorNameMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Each calls fn for every mapping in ascending ID order, outside the lock.
func (m *EditorNameMap) Each(fn func(id ID, name string)) {
	m.mu.RLock()
	ids := make([]ID, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = m.byID[id]
	}
	m.mu.RUnlock()

	for i, id := range ids {
		fn(id, names[i])
	}
}
