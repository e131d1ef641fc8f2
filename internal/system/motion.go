package system

import (
	"time"

	"github.com/foesim/simcore/internal/component"
	"github.com/foesim/simcore/internal/core/ecs"
	coresys "github.com/foesim/simcore/internal/core/system"
)

// MotionSystem integrates velocity into position for every entity holding both.
// It writes positions in place and marks them modified, so the moved list holds
// last tick's movers after the next maintenance. Phase 3 (Consume).
type MotionSystem struct {
	position *ecs.ComponentPool
	velocity *ecs.ComponentPool
	moved    *ecs.EntityList
}

func NewMotionSystem(position, velocity *ecs.ComponentPool) (*MotionSystem, error) {
	moved := ecs.NewEntityList()
	if err := position.AddEntityList(moved); err != nil {
		return nil, err
	}
	return &MotionSystem{position: position, velocity: velocity, moved: moved}, nil
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseConsume }

// Moved is the set of entities moved during the previous tick.
func (s *MotionSystem) Moved() *ecs.EntityList { return s.moved }

func (s *MotionSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	ecs.JoinComponents(s.position, s.velocity, func(id ecs.ID, pos, vel []byte) {
		v, ok := component.DecodeScalar(vel)
		if !ok || v == 0 {
			return
		}
		p, ok := component.DecodeScalar(pos)
		if !ok {
			return
		}
		component.PutScalar(pos, p+v*secs)
		s.position.MarkModified(id)
	})
}
