package ecs

import (
	"slices"
	"sync"
)

const (
	PersistentGroupName = "Persistent"
	TemporaryGroupName  = "Temporary"
)

type groupEntry struct {
	name    string
	indexes *Indexes
}

// Groups owns one Indexes allocator per ID group. The persistent and temporary groups
// always exist; dynamic groups are added and removed at runtime.
type Groups struct {
	mu     sync.RWMutex
	groups map[ID]groupEntry
}

func NewGroups() *Groups {
	g := &Groups{groups: make(map[ID]groupEntry, 4)}
	persistent, _ := NewIndexes(PersistentGroup)
	temporary, _ := NewIndexes(TemporaryGroup)
	g.groups[PersistentGroup] = groupEntry{name: PersistentGroupName, indexes: persistent}
	g.groups[TemporaryGroup] = groupEntry{name: TemporaryGroupName, indexes: temporary}
	return g
}

// Add registers a dynamic group under name.
func (g *Groups) Add(name string, indexes *Indexes) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.groups[indexes.GroupID()]; ok {
		return ErrGroupExists
	}
	for _, e := range g.groups {
		if e.name == name {
			return ErrGroupNameExists
		}
	}
	g.groups[indexes.GroupID()] = groupEntry{name: name, indexes: indexes}
	return nil
}

// Remove drops a dynamic group. The persistent and temporary groups cannot be removed.
func (g *Groups) Remove(groupID ID) bool {
	if groupID == PersistentGroup || groupID == TemporaryGroup {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.groups[groupID]; !ok {
		return false
	}
	delete(g.groups, groupID)
	return true
}

func (g *Groups) Group(groupID ID) (*Indexes, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.groups[groupID.Group()]
	return e.indexes, ok
}

func (g *Groups) ByName(name string) (*Indexes, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.groups {
		if e.name == name {
			return e.indexes, true
		}
	}
	return nil, false
}

func (g *Groups) Name(groupID ID) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.groups[groupID.Group()]
	return e.name, ok
}

func (g *Groups) Persistent() *Indexes {
	ix, _ := g.Group(PersistentGroup)
	return ix
}

func (g *Groups) Temporary() *Indexes {
	ix, _ := g.Group(TemporaryGroup)
	return ix
}

// Each calls fn for every group in ascending group order.
func (g *Groups) Each(fn func(name string, indexes *Indexes)) {
	g.mu.RLock()
	ids := make([]ID, 0, len(g.groups))
	for id := range g.groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	entries := make([]groupEntry, len(ids))
	for i, id := range ids {
		entries[i] = g.groups[id]
	}
	g.mu.RUnlock()

	for _, e := range entries {
		fn(e.name, e.indexes)
	}
}

// GroupTranslator maps the group values of another source (a snapshot written by a
// different simulation) onto local groups. Values without a mapping pass through,
// and the persistent group always maps to itself.
type GroupTranslator struct {
	to map[uint32]ID
}

func NewGroupTranslator() *GroupTranslator {
	return &GroupTranslator{to: make(map[uint32]ID)}
}

// Map routes the source group value from to the local group to.
func (t *GroupTranslator) Map(from uint32, to ID) error {
	if !to.IsGroup() {
		return ErrNotGroupID
	}
	t.to[from] = to
	return nil
}

// Group translates a source group value. A nil translator is the identity.
func (t *GroupTranslator) Group(from uint32) ID {
	if from == PersistentGroupValue {
		return PersistentGroup
	}
	if t != nil {
		if to, ok := t.to[from]; ok {
			return to
		}
	}
	return GroupFromValue(from)
}

// Translate rewrites the group portion of id, keeping its index.
func (t *GroupTranslator) Translate(id ID) ID {
	if id == InvalidID {
		return InvalidID
	}
	return NewID(t.Group(id.GroupValue()), id.Index())
}
