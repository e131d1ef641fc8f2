package ecs

import (
	"cmp"
	"slices"
	"sync"
)

// DedupPolicy picks which of several inserts for the same ID staged within one
// maintenance cycle is committed.
type DedupPolicy uint8

const (
	// KeepLast commits the most recently staged insert.
	KeepLast DedupPolicy = iota
	// KeepFirst commits the earliest staged insert.
	KeepFirst
)

func (d DedupPolicy) String() string {
	if d == KeepFirst {
		return "keep-first"
	}
	return "keep-last"
}

const (
	DefaultExpansionRate     = 128
	DefaultInsertStagingStep = 16
)

// PoolOptions configures a Pool. Zero values select the defaults.
type PoolOptions[T any] struct {
	// InitialCapacity is the capacity requested for the first growth of the stored set.
	InitialCapacity int
	// ExpansionRate is the minimum capacity of any newly allocated stored set.
	ExpansionRate int
	// MaxCapacity caps stored growth; passing it fails maintenance with ErrOutOfMemory.
	// Zero means unbounded.
	MaxCapacity int
	// InsertStagingStep is how much the insert staging buffer grows when full.
	InsertStagingStep int
	Dedup             DedupPolicy
	// Destructor is called on data leaving the pool for good: dropped inserts, data
	// evicted from the removed set, and everything left when the pool is destroyed.
	Destructor func(*T)
}

type staged[T any] struct {
	id   ID
	data T
}

// Pool stores data of type T keyed by ID in parallel arrays sorted by ID.
//
// Insert and Remove only stage work and may be called from any goroutine. Maintenance
// applies the staged work: removals first, then insertions. It must not run
// concurrently with itself or with any reader of the pool's views; afterwards the
// views may be read concurrently until the next Maintenance call.
type Pool[T any] struct {
	ids  []ID
	data []T
	// generation advances on every Maintenance and invalidates older views.
	generation uint64

	insertMu              sync.Mutex
	toInsert              []staged[T]
	desiredInsertCapacity int
	insertStep            int
	inserted              []int

	removeMu sync.Mutex
	toRemove []ID

	removedIDs  []ID
	removedData []T

	expansionRate   int
	desiredCapacity int
	maxCapacity     int
	dedup           DedupPolicy
	destructor      func(*T)
}

func NewPool[T any](opts PoolOptions[T]) *Pool[T] {
	p := &Pool[T]{
		expansionRate:   opts.ExpansionRate,
		desiredCapacity: opts.InitialCapacity,
		maxCapacity:     opts.MaxCapacity,
		insertStep:      opts.InsertStagingStep,
		dedup:           opts.Dedup,
		destructor:      opts.Destructor,
	}
	if p.insertStep <= 0 {
		p.insertStep = DefaultInsertStagingStep
	}
	return p
}

// NewDataPool creates a pool with last-write-wins deduplication of staged inserts.
func NewDataPool[T any](expansionRate int) *Pool[T] {
	if expansionRate <= 0 {
		expansionRate = DefaultExpansionRate
	}
	return NewPool(PoolOptions[T]{ExpansionRate: expansionRate, Dedup: KeepLast})
}

// Insert stages data for id, to be added next maintenance. If id is already stored
// when that happens, the data is discarded. The pool does not validate ids.
func (p *Pool[T]) Insert(id ID, data T) {
	p.insertMu.Lock()
	defer p.insertMu.Unlock()

	newCapacity := 0
	if len(p.toInsert) == cap(p.toInsert) {
		newCapacity = cap(p.toInsert) + p.insertStep
	}
	if p.desiredInsertCapacity > cap(p.toInsert) && p.desiredInsertCapacity > newCapacity {
		newCapacity = p.desiredInsertCapacity
	}
	p.desiredInsertCapacity = 0
	if newCapacity > cap(p.toInsert) {
		grown := make([]staged[T], len(p.toInsert), newCapacity)
		copy(grown, p.toInsert)
		p.toInsert = grown
	}

	p.toInsert = append(p.toInsert, staged[T]{id: id, data: data})
}

// Remove stages id for removal next maintenance. Removing an ID that is not stored at
// that point, or removing it several times, is a no-op.
func (p *Pool[T]) Remove(id ID) {
	p.removeMu.Lock()
	p.toRemove = append(p.toRemove, id)
	p.removeMu.Unlock()
}

// Maintenance applies staged removals, then staged insertions. Data removed by the
// previous call is released first. On ErrOutOfMemory the removal pass stays committed
// and the stored set is exactly as the removal pass left it.
func (p *Pool[T]) Maintenance() error {
	p.generation++

	p.destroyAll(p.removedData)
	clear(p.removedData)
	p.removedIDs = p.removedIDs[:0]
	p.removedData = p.removedData[:0]
	p.inserted = p.inserted[:0]

	p.removePass()
	return p.insertPass()
}

func (p *Pool[T]) removePass() {
	p.removeMu.Lock()
	toRemove := p.toRemove
	p.toRemove = nil
	p.removeMu.Unlock()

	if len(toRemove) == 0 {
		return
	}
	slices.Sort(toRemove)

	ids, data := p.ids, p.data
	n := len(ids)
	read, write := 0, 0

	for _, rid := range toRemove {
		if read == n {
			break
		}
		j, found := slices.BinarySearch(ids[read:], rid)
		j += read
		if !found {
			continue
		}

		// Shift the surviving run before the match down over earlier gaps.
		if write != read {
			copy(ids[write:], ids[read:j])
			copy(data[write:], data[read:j])
		}
		write += j - read

		p.removedIDs = append(p.removedIDs, ids[j])
		p.removedData = append(p.removedData, data[j])
		read = j + 1
	}

	if read == 0 && len(p.removedIDs) == 0 {
		return
	}
	if write != read {
		copy(ids[write:], ids[read:n])
		copy(data[write:], data[read:n])
	}
	write += n - read

	clear(data[write:n])
	p.ids = ids[:write]
	p.data = data[:write]
}

func (p *Pool[T]) insertPass() error {
	p.insertMu.Lock()
	toInsert := p.toInsert
	p.toInsert = nil
	p.insertMu.Unlock()

	if len(toInsert) == 0 {
		return nil
	}

	slices.SortStableFunc(toInsert, func(a, b staged[T]) int { return cmp.Compare(a.id, b.id) })
	toInsert = p.dedupe(toInsert)

	// Drop anything already stored, remember where the rest lands in the old array.
	ids := p.ids
	dst := make([]int, 0, len(toInsert))
	count, pos := 0, 0
	for i := range toInsert {
		j, found := slices.BinarySearch(ids[pos:], toInsert[i].id)
		j += pos
		pos = j
		if found {
			p.destroy(&toInsert[i].data)
			continue
		}
		toInsert[count] = toInsert[i]
		dst = append(dst, j)
		count++
	}
	toInsert = toInsert[:count]
	if count == 0 {
		return nil
	}

	oldCount := len(ids)
	required := oldCount + count
	newCapacity := max(p.expansionRate, required, p.desiredCapacity)
	if p.maxCapacity > 0 && newCapacity > p.maxCapacity {
		if required > p.maxCapacity {
			p.destroyStaged(toInsert)
			return ErrOutOfMemory
		}
		newCapacity = p.maxCapacity
	}

	dstIDs, dstData := p.ids, p.data
	realloc := cap(p.ids) < newCapacity
	if realloc {
		dstIDs = make([]ID, required, newCapacity)
		dstData = make([]T, required, newCapacity)
	} else {
		dstIDs = dstIDs[:required]
		dstData = dstData[:required]
	}

	if cap(p.inserted) < count {
		p.inserted = make([]int, count)
	} else {
		p.inserted = p.inserted[:count]
	}

	// Right to left: shift each run of old entries once, then drop the new one in.
	lastShifted := oldCount
	shift := count
	for k := count - 1; k >= 0; k-- {
		d := dst[k]
		if d < lastShifted {
			copy(dstIDs[d+shift:], p.ids[d:lastShifted])
			copy(dstData[d+shift:], p.data[d:lastShifted])
			lastShifted = d
		}
		shift--
		dstIDs[d+shift] = toInsert[k].id
		dstData[d+shift] = toInsert[k].data
		p.inserted[k] = d + shift
	}

	if realloc && lastShifted > 0 {
		copy(dstIDs, p.ids[:lastShifted])
		copy(dstData, p.data[:lastShifted])
	}

	p.ids, p.data = dstIDs, dstData
	return nil
}

// dedupe collapses runs of equal IDs in a sorted staging slice per the pool's policy,
// destroying the losers.
func (p *Pool[T]) dedupe(sorted []staged[T]) []staged[T] {
	out := 0
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].id == sorted[i].id {
			j++
		}
		keep := j - 1
		if p.dedup == KeepFirst {
			keep = i
		}
		for k := i; k < j; k++ {
			if k != keep {
				p.destroy(&sorted[k].data)
			}
		}
		sorted[out] = sorted[keep]
		out++
		i = j
	}
	return sorted[:out]
}

func (p *Pool[T]) destroy(v *T) {
	if p.destructor != nil {
		p.destructor(v)
	}
}

func (p *Pool[T]) destroyAll(vs []T) {
	if p.destructor == nil {
		return
	}
	for i := range vs {
		p.destructor(&vs[i])
	}
}

func (p *Pool[T]) destroyStaged(vs []staged[T]) {
	if p.destructor == nil {
		return
	}
	for i := range vs {
		p.destructor(&vs[i].data)
	}
}

// Destroy releases everything the pool holds, calling the destructor on removed,
// staged and stored data. The pool must not be used afterwards.
func (p *Pool[T]) Destroy() {
	p.destroyAll(p.removedData)

	p.insertMu.Lock()
	p.destroyStaged(p.toInsert)
	p.toInsert = nil
	p.insertMu.Unlock()

	p.removeMu.Lock()
	p.toRemove = nil
	p.removeMu.Unlock()

	p.destroyAll(p.data)

	p.generation++
	p.ids, p.data = nil, nil
	p.removedIDs, p.removedData = nil, nil
	p.inserted = nil
}

// SetExpansionRate sets the minimum capacity of the next stored-set allocation.
func (p *Pool[T]) SetExpansionRate(rate int) { p.expansionRate = rate }
func (p *Pool[T]) ExpansionRate() int        { return p.expansionRate }

func (p *Pool[T]) Size() int     { return len(p.ids) }
func (p *Pool[T]) Capacity() int { return cap(p.ids) }

// Reserve raises the capacity the next growth allocates. It never shrinks and never
// allocates by itself.
func (p *Pool[T]) Reserve(capacity int) {
	p.desiredCapacity = max(p.desiredCapacity, capacity)
}

// InsertCapacity is the current capacity of the insert staging buffer.
func (p *Pool[T]) InsertCapacity() int {
	p.insertMu.Lock()
	defer p.insertMu.Unlock()
	return cap(p.toInsert)
}

// ReserveInsertCapacity raises the capacity used at the next staging buffer growth.
func (p *Pool[T]) ReserveInsertCapacity(capacity int) {
	p.insertMu.Lock()
	p.desiredInsertCapacity = max(p.desiredInsertCapacity, capacity)
	p.insertMu.Unlock()
}

// InsertedCount is the number of entries added by the last maintenance.
func (p *Pool[T]) InsertedCount() int { return len(p.inserted) }

// RemovedCount is the number of entries evicted by the last maintenance.
func (p *Pool[T]) RemovedCount() int { return len(p.removedIDs) }

// Generation increases with every maintenance pass.
func (p *Pool[T]) Generation() uint64 { return p.generation }

func (p *Pool[T]) Exist(id ID) bool {
	_, ok := p.BinarySearch(id)
	return ok
}

func (p *Pool[T]) SequentialSearch(id ID) (int, bool) { return sequentialSearch(p.ids, id) }
func (p *Pool[T]) BinarySearch(id ID) (int, bool)     { return slices.BinarySearch(p.ids, id) }

// Find returns the stored offset of id.
func (p *Pool[T]) Find(id ID) (int, bool) { return p.BinarySearch(id) }

func (p *Pool[T]) RemovedSequentialSearch(id ID) (int, bool) {
	return sequentialSearch(p.removedIDs, id)
}

func (p *Pool[T]) RemovedBinarySearch(id ID) (int, bool) {
	return slices.BinarySearch(p.removedIDs, id)
}

// RemovedFind returns the offset of id within the last removed set.
func (p *Pool[T]) RemovedFind(id ID) (int, bool) { return p.RemovedBinarySearch(id) }

func sequentialSearch(ids []ID, id ID) (int, bool) {
	for i, v := range ids {
		if v == id {
			return i, true
		}
		if v > id {
			return i, false
		}
	}
	return len(ids), false
}
