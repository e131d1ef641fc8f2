package ecs

// Remover is implemented by all pools so the Registry can stage an entity's removal
// from every pool on destroy.
type Remover interface {
	Remove(id ID)
}

// Maintainer commits a pool's staged work. Maintenance is never called concurrently
// on the same Maintainer.
type Maintainer interface {
	Maintenance() error
}

// Store is what the Registry needs from a pool.
type Store interface {
	Remover
	Maintainer
	Size() int
	Exist(id ID) bool
}

var (
	_ Store = (*Pool[int])(nil)
	_ Store = (*ComponentPool)(nil)
)
