package ecs

import (
	"slices"
	"sync"
)

// ComponentPool is a Pool of fixed-size byte records, for components whose layout is
// only known at runtime (registered by name, exported raw). Of several inserts staged
// for the same ID in one cycle the first one wins.
//
// A ComponentPool can also report modified entities: IDs passed to MarkModified, plus
// everything inserted, are reset into every registered EntityList at each maintenance.
type ComponentPool struct {
	pool     *Pool[[]byte]
	dataSize int

	modifiedMu sync.Mutex
	modified   []ID

	listMu sync.Mutex
	lists  []*EntityList
}

// ComponentPoolOptions configures NewComponentPool.
type ComponentPoolOptions struct {
	InitialCapacity   int
	ExpansionRate     int
	MaxCapacity       int
	InsertStagingStep int
	DataSize          int
	Destructor        func([]byte)
}

func NewComponentPool(opts ComponentPoolOptions) (*ComponentPool, error) {
	if opts.DataSize < 0 {
		return nil, ErrDataSize
	}
	var destructor func(*[]byte)
	if opts.Destructor != nil {
		destructor = func(b *[]byte) { opts.Destructor(*b) }
	}
	return &ComponentPool{
		pool: NewPool(PoolOptions[[]byte]{
			InitialCapacity:   opts.InitialCapacity,
			ExpansionRate:     opts.ExpansionRate,
			MaxCapacity:       opts.MaxCapacity,
			InsertStagingStep: opts.InsertStagingStep,
			Dedup:             KeepFirst,
			Destructor:        destructor,
		}),
		dataSize: opts.DataSize,
	}, nil
}

func (c *ComponentPool) DataSize() int { return c.dataSize }

// Insert stages a copy of data for id. data must be exactly DataSize bytes.
func (c *ComponentPool) Insert(id ID, data []byte) error {
	if len(data) != c.dataSize {
		return ErrDataSize
	}
	record := make([]byte, c.dataSize)
	copy(record, data)
	c.pool.Insert(id, record)
	return nil
}

func (c *ComponentPool) Remove(id ID) { c.pool.Remove(id) }

// MarkModified stages id to be reported to the registered entity lists.
func (c *ComponentPool) MarkModified(id ID) {
	c.modifiedMu.Lock()
	c.modified = append(c.modified, id)
	c.modifiedMu.Unlock()
}

// Maintenance commits staged removals and insertions, then resets every registered
// entity list with this cycle's modified set.
func (c *ComponentPool) Maintenance() error {
	err := c.pool.Maintenance()

	c.modifiedMu.Lock()
	modified := c.modified
	c.modified = nil
	c.modifiedMu.Unlock()

	c.listMu.Lock()
	defer c.listMu.Unlock()
	if len(c.lists) == 0 {
		return err
	}

	changed := make([]ID, 0, len(modified)+c.pool.InsertedCount())
	for _, id := range modified {
		if c.pool.Exist(id) {
			changed = append(changed, id)
		}
	}
	for _, off := range c.pool.inserted {
		changed = append(changed, c.pool.ids[off])
	}
	slices.Sort(changed)
	changed = slices.Compact(changed)

	for _, l := range c.lists {
		l.Reset(changed)
	}
	return err
}

// Destroy calls the destructor on every removed, staged and stored record.
func (c *ComponentPool) Destroy() { c.pool.Destroy() }

func (c *ComponentPool) SetExpansionRate(rate int)      { c.pool.SetExpansionRate(rate) }
func (c *ComponentPool) ExpansionRate() int             { return c.pool.ExpansionRate() }
func (c *ComponentPool) Size() int                      { return c.pool.Size() }
func (c *ComponentPool) Capacity() int                  { return c.pool.Capacity() }
func (c *ComponentPool) Reserve(capacity int)           { c.pool.Reserve(capacity) }
func (c *ComponentPool) InsertCapacity() int            { return c.pool.InsertCapacity() }
func (c *ComponentPool) ReserveInsertCapacity(n int)    { c.pool.ReserveInsertCapacity(n) }
func (c *ComponentPool) InsertedCount() int             { return c.pool.InsertedCount() }
func (c *ComponentPool) RemovedCount() int              { return c.pool.RemovedCount() }
func (c *ComponentPool) Exist(id ID) bool               { return c.pool.Exist(id) }
func (c *ComponentPool) Find(id ID) (int, bool)         { return c.pool.Find(id) }
func (c *ComponentPool) Stored() StoredView[[]byte]     { return c.pool.Stored() }
func (c *ComponentPool) Inserted() InsertedView[[]byte] { return c.pool.Inserted() }
func (c *ComponentPool) Removed() RemovedView[[]byte]   { return c.pool.Removed() }

func (c *ComponentPool) SequentialSearch(id ID) (int, bool) { return c.pool.SequentialSearch(id) }
func (c *ComponentPool) BinarySearch(id ID) (int, bool)     { return c.pool.BinarySearch(id) }

// AddEntityList registers l to receive the modified set each maintenance.
func (c *ComponentPool) AddEntityList(l *EntityList) error {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	if slices.Contains(c.lists, l) {
		return ErrDuplicateEntityList
	}
	c.lists = append(c.lists, l)
	return nil
}

func (c *ComponentPool) RemoveEntityList(l *EntityList) {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	if i := slices.Index(c.lists, l); i >= 0 {
		c.lists = slices.Delete(c.lists, i, i+1)
	}
}

// EntityLists returns the registered lists.
func (c *ComponentPool) EntityLists() []*EntityList {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return slices.Clone(c.lists)
}
