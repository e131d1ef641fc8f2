package event

import "github.com/foesim/simcore/internal/core/ecs"

type EntityCreated struct {
	ID ecs.ID
}

type EntityDestroyed struct {
	IDs []ecs.ID
}

// PoolMaintained is emitted after a pool's maintenance pass commits.
type PoolMaintained struct {
	Pool     string
	Size     int
	Inserted int
	Removed  int
}

type MaintenanceFailed struct {
	Pool string
	Err  error
}

// WorldNotifier forwards a World's lifecycle notifications onto a Bus.
type WorldNotifier struct {
	Bus *Bus
}

func (n WorldNotifier) EntityCreated(id ecs.ID) {
	Emit(n.Bus, EntityCreated{ID: id})
}

func (n WorldNotifier) EntityDestroyed(ids []ecs.ID) {
	Emit(n.Bus, EntityDestroyed{IDs: ids})
}
