package system

import (
	"context"
	"time"

	"github.com/foesim/simcore/internal/core/ecs"
	coresys "github.com/foesim/simcore/internal/core/system"
	"github.com/foesim/simcore/internal/imex"
	"github.com/foesim/simcore/internal/persist"
	"go.uber.org/zap"
)

// SnapshotSystem periodically exports the world through every registered exporter
// and, when a repo is set, into the database. Phase 4 (Persist).
type SnapshotSystem struct {
	world    *ecs.World
	exports  *imex.Registry
	repo     *persist.SnapshotRepo
	journal  *persist.JournalRepo
	dir      string
	base     string
	interval time.Duration
	elapsed  time.Duration
	log      *zap.Logger
}

// NewSnapshotSystem writes to dir/base.<ext>. repo may be nil.
func NewSnapshotSystem(world *ecs.World, exports *imex.Registry, repo *persist.SnapshotRepo, dir, base string, interval time.Duration, log *zap.Logger) *SnapshotSystem {
	return &SnapshotSystem{
		world:    world,
		exports:  exports,
		repo:     repo,
		dir:      dir,
		base:     base,
		interval: interval,
		log:      log,
	}
}

// SetJournal records every database save in j.
func (s *SnapshotSystem) SetJournal(j *persist.JournalRepo) { s.journal = j }

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *SnapshotSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.SaveNow()
}

// SaveNow snapshots immediately. Called on graceful shutdown.
func (s *SnapshotSystem) SaveNow() {
	start := time.Now()
	if err := s.exports.ExportAll(s.dir, s.base, s.world); err != nil {
		s.log.Error("snapshot export failed", zap.Error(err))
	}

	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d := imex.Capture(s.world)
		if err := s.repo.Save(ctx, d); err != nil {
			s.log.Error("snapshot save failed", zap.Error(err))
			return
		}
		if s.journal != nil {
			entry := persist.NewJournalEntry(persist.JournalSave, s.base, d)
			if err := s.journal.Write(ctx, []persist.JournalEntry{entry}); err != nil {
				s.log.Warn("snapshot journal write failed", zap.Error(err))
			}
		}
	}
	s.log.Debug("snapshot written", zap.Duration("took", time.Since(start)))
}
