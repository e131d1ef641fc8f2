package ecs

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Indexes generates, recycles and tracks the indexes of one ID group.
//
// An index below the next new index is either live or recycled; anything at or above
// it has never been issued. Recycled indexes are handed out again in the order they
// were freed before any fresh index is used.
//
// Indexes is safe for concurrent use.
type Indexes struct {
	groupID ID

	mu           sync.Mutex
	nextNewIndex atomic.Uint32
	// recycled is a FIFO queue; live entries are recycled[head:].
	recycled []IndexID
	head     int
	free     map[IndexID]struct{}
}

// NewIndexes creates an allocator for groupID, starting at IndexMin with nothing recycled.
func NewIndexes(groupID ID) (*Indexes, error) {
	if !groupID.IsGroup() {
		return nil, ErrNotGroupID
	}
	ix := &Indexes{
		groupID:  groupID,
		recycled: make([]IndexID, 0, 64),
		free:     make(map[IndexID]struct{}, 64),
	}
	ix.nextNewIndex.Store(IndexMin)
	return ix, nil
}

func (ix *Indexes) GroupID() ID { return ix.groupID }

// Generate returns a recycled ID if one is available, otherwise the next never-issued one.
func (ix *Indexes) Generate() (ID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.head < len(ix.recycled) {
		index := ix.recycled[ix.head]
		ix.head++
		delete(ix.free, index)
		ix.compact()
		return NewID(ix.groupID, index), nil
	}

	next := ix.nextNewIndex.Load()
	if next >= IndexMax {
		return InvalidID, ErrOutOfIndexes
	}
	ix.nextNewIndex.Store(next + 1)
	return NewID(ix.groupID, next), nil
}

// compact drops the consumed front of the queue once it dominates the backing array.
func (ix *Indexes) compact() {
	if ix.head == len(ix.recycled) {
		ix.recycled = ix.recycled[:0]
		ix.head = 0
		return
	}
	if ix.head > 64 && ix.head > len(ix.recycled)/2 {
		n := copy(ix.recycled, ix.recycled[ix.head:])
		ix.recycled = ix.recycled[:n]
		ix.head = 0
	}
}

func (ix *Indexes) Free(id ID) error {
	return ix.FreeMany([]ID{id})
}

// FreeMany returns every id in ids to the recycle queue, or none of them. The whole
// batch is validated first; the first failure is returned and nothing is recycled.
func (ix *Indexes) FreeMany(ids []ID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := ix.nextNewIndex.Load()
	var seen map[IndexID]struct{}
	if len(ids) > 1 {
		seen = make(map[IndexID]struct{}, len(ids))
	}
	for _, id := range ids {
		if err := ix.check(id, next); err != nil {
			return err
		}
		if seen != nil {
			if _, ok := seen[id.Index()]; ok {
				return ErrIndexRecycled
			}
			seen[id.Index()] = struct{}{}
		}
	}

	for _, id := range ids {
		index := id.Index()
		ix.recycled = append(ix.recycled, index)
		ix.free[index] = struct{}{}
	}
	return nil
}

// Check returns the error Free would return for id, without freeing it.
func (ix *Indexes) Check(id ID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.check(id, ix.nextNewIndex.Load())
}

func (ix *Indexes) check(id ID, next IndexID) error {
	if id == InvalidID {
		return ErrInvalidID
	}
	if id.Group() != ix.groupID {
		return ErrIncorrectGroupID
	}
	index := id.Index()
	if index >= next {
		return ErrIndexAboveGenerated
	}
	if index < IndexMin {
		return ErrIndexBelowMinimum
	}
	if _, ok := ix.free[index]; ok {
		return ErrIndexRecycled
	}
	return nil
}

// Import replaces the allocator state wholesale. Every recycled index must lie in
// [IndexMin, nextNewIndex) and appear once; otherwise the state is left untouched.
func (ix *Indexes) Import(nextNewIndex IndexID, recycled []IndexID) error {
	if nextNewIndex < IndexMin {
		return ErrIndexBelowMinimum
	}
	free := make(map[IndexID]struct{}, max(len(recycled), 64))
	for _, index := range recycled {
		switch {
		case index < IndexMin:
			return ErrIndexBelowMinimum
		case index >= nextNewIndex:
			return ErrIndexAboveGenerated
		}
		if _, dup := free[index]; dup {
			return ErrIndexRecycled
		}
		free[index] = struct{}{}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.nextNewIndex.Store(nextNewIndex)
	ix.recycled = append(ix.recycled[:0], recycled...)
	ix.head = 0
	ix.free = free
	return nil
}

// Export copies the current state out. With a nil dst it only reports the number of
// recycled indexes. Otherwise up to len(dst) recycled indexes are copied, in queue
// order, and ErrIncomplete is returned alongside the partial fill if dst was short.
func (ix *Indexes) Export(dst []IndexID) (nextNewIndex IndexID, n int, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	nextNewIndex = ix.nextNewIndex.Load()
	pending := ix.recycled[ix.head:]
	if dst == nil {
		return nextNewIndex, len(pending), nil
	}

	n = copy(dst, pending)
	if n < len(pending) {
		return nextNewIndex, n, ErrIncomplete
	}
	return nextNewIndex, n, nil
}

// Snapshot returns a consistent copy of the allocator state, retrying while the
// recycle queue grows between sizing and copying.
func (ix *Indexes) Snapshot() (IndexID, []IndexID) {
	for {
		_, count, _ := ix.Export(nil)
		recycled := make([]IndexID, count)
		next, n, err := ix.Export(recycled)
		if err == nil {
			return next, recycled[:n]
		}
	}
}

// ForEach calls fn with every live ID in ascending order. It works from a snapshot, so
// no lock is held while fn runs and the walk reflects the state at snapshot time.
func (ix *Indexes) ForEach(fn func(ID)) {
	next, recycled := ix.Snapshot()
	slices.Sort(recycled)

	r := 0
	for index := IndexMin; index < next; index++ {
		for r < len(recycled) && recycled[r] < index {
			r++
		}
		if r < len(recycled) && recycled[r] == index {
			continue
		}
		fn(NewID(ix.groupID, index))
	}
}

// Live reports the number of currently issued, unfreed indexes.
func (ix *Indexes) Live() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return int(ix.nextNewIndex.Load()-IndexMin) - (len(ix.recycled) - ix.head)
}
