package system

import (
	"time"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/core/event"
	coresys "github.com/foesim/simcore/internal/core/system"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaintenanceSystem commits every registered pool's staged work. Pools are
// independent, so up to workers of them are maintained at once. A failing pool is
// logged and reported on the bus; the others still commit. Phase 2 (Maintenance).
type MaintenanceSystem struct {
	world   *ecs.World
	bus     *event.Bus
	log     *zap.Logger
	workers int
}

func NewMaintenanceSystem(world *ecs.World, bus *event.Bus, workers int, log *zap.Logger) *MaintenanceSystem {
	if workers < 1 {
		workers = 1
	}
	return &MaintenanceSystem{world: world, bus: bus, log: log, workers: workers}
}

func (s *MaintenanceSystem) Phase() coresys.Phase { return coresys.PhaseMaintenance }

type maintainResult struct {
	name string
	err  error
}

type counted interface {
	InsertedCount() int
	RemovedCount() int
}

func (s *MaintenanceSystem) Update(_ time.Duration) {
	names := s.world.Registry().Names()
	results := make([]maintainResult, len(names))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, name := range names {
		store, ok := s.world.Registry().Store(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			results[i] = maintainResult{name: name, err: store.Maintenance()}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		if r.name == "" {
			continue
		}
		if r.err != nil {
			s.log.Error("pool maintenance failed", zap.String("pool", r.name), zap.Error(r.err))
			if s.bus != nil {
				event.Emit(s.bus, event.MaintenanceFailed{Pool: r.name, Err: r.err})
			}
			continue
		}
		if s.bus == nil {
			continue
		}
		store, _ := s.world.Registry().Store(r.name)
		ev := event.PoolMaintained{Pool: r.name, Size: store.Size()}
		if c, ok := store.(counted); ok {
			ev.Inserted = c.InsertedCount()
			ev.Removed = c.RemovedCount()
		}
		event.Emit(s.bus, ev)
	}
}
