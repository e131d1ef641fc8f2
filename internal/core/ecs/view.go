package ecs

import "iter"

// StoredView reads the stored set of a pool as of one maintenance generation. Any
// accessor panics with ErrStaleView once the pool has been maintained again.
type StoredView[T any] struct {
	p   *Pool[T]
	gen uint64
}

// InsertedView lists the stored offsets added by one maintenance pass, ascending.
type InsertedView[T any] struct {
	p   *Pool[T]
	gen uint64
}

// RemovedView holds the entries evicted by one maintenance pass, sorted by ID.
type RemovedView[T any] struct {
	p   *Pool[T]
	gen uint64
}

func (p *Pool[T]) Stored() StoredView[T]     { return StoredView[T]{p: p, gen: p.generation} }
func (p *Pool[T]) Inserted() InsertedView[T] { return InsertedView[T]{p: p, gen: p.generation} }
func (p *Pool[T]) Removed() RemovedView[T]   { return RemovedView[T]{p: p, gen: p.generation} }

func checkGeneration[T any](p *Pool[T], gen uint64) {
	if p.generation != gen {
		panic(ErrStaleView)
	}
}

// Valid reports whether the view still reflects the pool.
func (v StoredView[T]) Valid() bool { return v.p.generation == v.gen }

func (v StoredView[T]) Len() int {
	checkGeneration(v.p, v.gen)
	return len(v.p.ids)
}

func (v StoredView[T]) ID(i int) ID {
	checkGeneration(v.p, v.gen)
	return v.p.ids[i]
}

// At returns a pointer into the stored data; writes through it are visible to the pool.
func (v StoredView[T]) At(i int) *T {
	checkGeneration(v.p, v.gen)
	return &v.p.data[i]
}

// IDs returns the backing ID array. It must not be retained past the next maintenance.
func (v StoredView[T]) IDs() []ID {
	checkGeneration(v.p, v.gen)
	return v.p.ids
}

// Data returns the backing data array, parallel to IDs.
func (v StoredView[T]) Data() []T {
	checkGeneration(v.p, v.gen)
	return v.p.data
}

func (v StoredView[T]) All() iter.Seq2[ID, *T] {
	return func(yield func(ID, *T) bool) {
		checkGeneration(v.p, v.gen)
		for i := range v.p.ids {
			if !yield(v.p.ids[i], &v.p.data[i]) {
				return
			}
			checkGeneration(v.p, v.gen)
		}
	}
}

func (v InsertedView[T]) Valid() bool { return v.p.generation == v.gen }

func (v InsertedView[T]) Len() int {
	checkGeneration(v.p, v.gen)
	return len(v.p.inserted)
}

// Offsets returns the offsets into the stored set of every entry inserted this cycle.
func (v InsertedView[T]) Offsets() []int {
	checkGeneration(v.p, v.gen)
	return v.p.inserted
}

func (v InsertedView[T]) All() iter.Seq2[ID, *T] {
	return func(yield func(ID, *T) bool) {
		checkGeneration(v.p, v.gen)
		for _, off := range v.p.inserted {
			if !yield(v.p.ids[off], &v.p.data[off]) {
				return
			}
			checkGeneration(v.p, v.gen)
		}
	}
}

func (v RemovedView[T]) Valid() bool { return v.p.generation == v.gen }

func (v RemovedView[T]) Len() int {
	checkGeneration(v.p, v.gen)
	return len(v.p.removedIDs)
}

func (v RemovedView[T]) IDs() []ID {
	checkGeneration(v.p, v.gen)
	return v.p.removedIDs
}

func (v RemovedView[T]) Data() []T {
	checkGeneration(v.p, v.gen)
	return v.p.removedData
}

func (v RemovedView[T]) All() iter.Seq2[ID, *T] {
	return func(yield func(ID, *T) bool) {
		checkGeneration(v.p, v.gen)
		for i := range v.p.removedIDs {
			if !yield(v.p.removedIDs[i], &v.p.removedData[i]) {
				return
			}
			checkGeneration(v.p, v.gen)
		}
	}
}
