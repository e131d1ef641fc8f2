package ecs

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Notifier receives entity lifecycle notifications from a World.
type Notifier interface {
	EntityCreated(id ID)
	EntityDestroyed(ids []ID)
}

// World is the top-level ECS container. It owns the ID groups, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
type World struct {
	log      *zap.Logger
	groups   *Groups
	registry *Registry
	names    *EditorNameMap
	notifier Notifier

	queueMu      sync.Mutex
	destroyQueue []ID
}

func NewWorld(log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		log:          log,
		groups:       NewGroups(),
		registry:     NewRegistry(),
		names:        NewEditorNameMap(log),
		destroyQueue: make([]ID, 0, 64),
	}
}

func (w *World) Groups() *Groups        { return w.groups }
func (w *World) Registry() *Registry    { return w.registry }
func (w *World) Names() *EditorNameMap  { return w.names }
func (w *World) SetNotifier(n Notifier) { w.notifier = n }
func (w *World) Logger() *zap.Logger    { return w.log }

// CreateEntity generates a new ID in group.
func (w *World) CreateEntity(group ID) (ID, error) {
	ix, ok := w.groups.Group(group)
	if !ok {
		return InvalidID, ErrUnknownGroup
	}
	id, err := ix.Generate()
	if err != nil {
		return InvalidID, err
	}
	if w.notifier != nil {
		w.notifier.EntityCreated(id)
	}
	return id, nil
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Safe for concurrent use.
func (w *World) MarkForDestruction(id ID) {
	w.queueMu.Lock()
	w.destroyQueue = append(w.destroyQueue, id)
	w.queueMu.Unlock()
}

// FlushDestroyQueue frees every queued entity and stages its removal from all stores,
// one batch per group. IDs that cannot be freed (already recycled, never issued, or in
// an unknown group) are logged and dropped without touching the stores. Returns the
// IDs actually freed.
func (w *World) FlushDestroyQueue() []ID {
	w.queueMu.Lock()
	queue := w.destroyQueue
	w.destroyQueue = make([]ID, 0, cap(queue))
	w.queueMu.Unlock()

	if len(queue) == 0 {
		return nil
	}
	slices.Sort(queue)
	queue = slices.Compact(queue)

	freed := make([]ID, 0, len(queue))
	for start := 0; start < len(queue); {
		group := queue[start].Group()
		end := start + 1
		for end < len(queue) && queue[end].Group() == group {
			end++
		}
		batch := queue[start:end]
		start = end

		ix, ok := w.groups.Group(group)
		if !ok {
			w.log.Warn("destroy in unknown group", zap.Stringer("group", group), zap.Int("count", len(batch)))
			continue
		}

		valid := batch[:0]
		for _, id := range batch {
			if err := ix.Check(id); err != nil {
				w.log.Warn("dropping destroy", zap.Stringer("id", id), zap.Error(err))
				continue
			}
			valid = append(valid, id)
		}
		if len(valid) == 0 {
			continue
		}
		// Only a concurrent Free between Check and here can fail the batch.
		if err := ix.FreeMany(valid); err != nil {
			w.log.Warn("free destroyed ids", zap.Stringer("group", group), zap.Error(err))
			continue
		}
		for _, id := range valid {
			w.registry.RemoveAll(id)
		}
		freed = append(freed, valid...)
	}

	for _, id := range freed {
		w.names.Remove(id)
	}
	if w.notifier != nil && len(freed) > 0 {
		w.notifier.EntityDestroyed(freed)
	}
	return freed
}
