package ecs

import "errors"

var (
	// ErrNotGroupID is returned when a group tag carries index bits.
	ErrNotGroupID = errors.New("ecs: group id carries index bits")
	// ErrInvalidID is returned when InvalidID is passed where a live id is required.
	ErrInvalidID = errors.New("ecs: invalid id")
	// ErrIncorrectGroupID is returned when an id belongs to another group's allocator.
	ErrIncorrectGroupID = errors.New("ecs: id belongs to a different group")
	// ErrIndexAboveGenerated is returned when freeing an index never issued.
	ErrIndexAboveGenerated = errors.New("ecs: index above generated range")
	// ErrIndexBelowMinimum is returned for indexes under IndexMin.
	ErrIndexBelowMinimum = errors.New("ecs: index below minimum")
	// ErrIndexRecycled is returned when freeing an index that is already free.
	ErrIndexRecycled = errors.New("ecs: index already recycled")
	// ErrOutOfIndexes is returned when a group's index space is exhausted.
	ErrOutOfIndexes = errors.New("ecs: out of indexes")
	// ErrOutOfMemory is returned when storage growth would pass the capacity limit.
	ErrOutOfMemory = errors.New("ecs: out of memory")
	// ErrIncomplete is a status: the destination was too small and holds a partial result.
	ErrIncomplete = errors.New("ecs: incomplete")
	// ErrDataSize is returned when component data does not match the pool's data size.
	ErrDataSize = errors.New("ecs: data size mismatch")
	// ErrGroupExists is returned when adding a group whose id is already registered.
	ErrGroupExists = errors.New("ecs: group already registered")
	// ErrGroupNameExists is returned when adding a group whose name is already registered.
	ErrGroupNameExists = errors.New("ecs: group name already registered")
	// ErrUnknownGroup is returned when no allocator exists for a group.
	ErrUnknownGroup = errors.New("ecs: unknown group")
	// ErrStaleView is the panic value for a view used after the maintenance that invalidated it.
	ErrStaleView = errors.New("ecs: view used after maintenance")
	// ErrDuplicateEntityList is returned when registering the same entity list twice.
	ErrDuplicateEntityList = errors.New("ecs: entity list already registered")
	// ErrPoolExists is returned when registering a second pool under the same name.
	ErrPoolExists = errors.New("ecs: pool already registered")
)
