package system

import (
	"time"

	coresys "github.com/foesim/simcore/internal/core/system"
	"github.com/foesim/simcore/internal/scripting"
	"go.uber.org/zap"
)

// ScriptSystem runs the Lua on_tick hook, where scripts stage inserts and removes.
// Phase 1 (Produce).
type ScriptSystem struct {
	engine *scripting.Engine
	log    *zap.Logger
	failed int
}

func NewScriptSystem(engine *scripting.Engine, log *zap.Logger) *ScriptSystem {
	return &ScriptSystem{engine: engine, log: log}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseProduce }

func (s *ScriptSystem) Update(dt time.Duration) {
	if err := s.engine.OnTick(dt); err != nil {
		s.failed++
		// A broken script fails every tick; log the first few only.
		if s.failed <= 3 {
			s.log.Error("lua on_tick error", zap.Error(err), zap.Int("failures", s.failed))
		}
		return
	}
	s.failed = 0
}
