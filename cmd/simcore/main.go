package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/foesim/simcore/internal/component"
	"github.com/foesim/simcore/internal/config"
	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/core/event"
	coresys "github.com/foesim/simcore/internal/core/system"
	"github.com/foesim/simcore/internal/imex"
	"github.com/foesim/simcore/internal/imex/binimex"
	"github.com/foesim/simcore/internal/imex/yamlimex"
	"github.com/foesim/simcore/internal/persist"
	"github.com/foesim/simcore/internal/scripting"
	"github.com/foesim/simcore/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               simcore  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1msimulation:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/simcore.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Simulation.Name)

	// 3. World, bus and built-in pools
	printSection("world")
	bus := event.NewBus()
	world := ecs.NewWorld(log)
	world.SetNotifier(event.WorldNotifier{Bus: bus})

	pools := make(map[string]*ecs.ComponentPool, len(component.Builtin))
	for _, b := range component.Builtin {
		cp, err := ecs.NewComponentPool(ecs.ComponentPoolOptions{
			InitialCapacity:   cfg.Pools.DefaultInitialCapacity,
			ExpansionRate:     cfg.Pools.DefaultExpansionRate,
			MaxCapacity:       cfg.Pools.MaxCapacity,
			InsertStagingStep: cfg.Pools.InsertStagingStep,
			DataSize:          b.DataSize,
		})
		if err != nil {
			return fmt.Errorf("pool %s: %w", b.Name, err)
		}
		if err := world.Registry().Register(b.Name, cp); err != nil {
			return err
		}
		pools[b.Name] = cp
	}
	printStat("component pools", len(pools))

	// 4. Snapshot formats
	sealKey, err := cfg.Snapshot.SealKey()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	signKey, err := cfg.Snapshot.SigningKey()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	verifyKey, err := cfg.Snapshot.VerifyKey()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	binFormat := binimex.Format{Key: sealKey, Signer: signKey, Verifier: verifyKey}
	exports := imex.NewRegistry(log)
	if cfg.Snapshot.YAML {
		exports.RegisterExporter("yaml", yamlimex.Format{})
	}
	if cfg.Snapshot.Binary {
		exports.RegisterExporter("binary", binFormat)
	}
	exports.RegisterImporter("yaml", yamlimex.Format{})
	exports.RegisterImporter("binary", binFormat)
	if cfg.Snapshot.Binary {
		printOK(fmt.Sprintf("binary snapshots (sealed=%t signed=%t verified=%t)",
			sealKey != nil, signKey != nil, verifyKey != nil))
	}

	// 5. Optional PostgreSQL snapshot store, else the newest snapshot file
	var (
		repo    *persist.SnapshotRepo
		journal *persist.JournalRepo
	)
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		repo = persist.NewSnapshotRepo(db)
		d, err := repo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if err := imex.Apply(world, d, nil); err != nil {
			return fmt.Errorf("apply snapshot: %w", err)
		}

		journal = persist.NewJournalRepo(db)
		if last, err := journal.Recent(ctx, 1); err == nil && len(last) > 0 {
			printOK(fmt.Sprintf("last snapshot %s at %s", last[0].Kind, last[0].RecordedAt.Format(time.DateTime)))
		}
		entry := persist.NewJournalEntry(persist.JournalLoad, cfg.Simulation.Name, d)
		if err := journal.Write(ctx, []persist.JournalEntry{entry}); err != nil {
			log.Warn("snapshot journal write failed", zap.Error(err))
		}
		if err := journal.Prune(ctx, 1000); err != nil {
			log.Warn("snapshot journal prune failed", zap.Error(err))
		}
	} else if path := latestSnapshot(cfg.Snapshot.Dir, cfg.Simulation.Name); path != "" {
		if err := exports.ImportFile(path, world, nil); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		printOK("snapshot loaded from " + path)
	}
	if err := world.Registry().Maintain(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	for _, name := range world.Registry().Names() {
		s, _ := world.Registry().Store(name)
		printStat(name, s.Size())
	}
	fmt.Println()

	// 6. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewMaintenanceSystem(world, bus, cfg.Simulation.MaintenanceWorkers, log))
	motion, err := system.NewMotionSystem(pools[component.Position], pools[component.Velocity])
	if err != nil {
		return err
	}
	runner.Register(motion)
	snapshots := system.NewSnapshotSystem(world, exports, repo, cfg.Snapshot.Dir, cfg.Simulation.Name, cfg.Snapshot.Interval, log)
	if journal != nil {
		snapshots.SetJournal(journal)
	}
	runner.Register(snapshots)
	runner.Register(system.NewCleanupSystem(world))

	if cfg.Scripting.Enabled {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, world, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		if engine.HasTick() {
			runner.Register(system.NewScriptSystem(engine, log))
		}
	}

	event.Subscribe(bus, func(ev event.MaintenanceFailed) {
		log.Warn("maintenance failed last tick", zap.String("pool", ev.Pool), zap.Error(ev.Err))
	})

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("%d systems", runner.Len()))
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			snapshots.SaveNow()
			for _, cp := range pools {
				cp.Destroy()
			}
			log.Info("simulation stopped")
			return nil
		}
	}
}

// latestSnapshot returns the most recently written snapshot file for name in dir.
func latestSnapshot(dir, name string) string {
	var (
		best    string
		bestMod time.Time
	)
	for _, ext := range []string{yamlimex.Extension, binimex.Extension} {
		path := filepath.Join(dir, name+ext)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = path, info.ModTime()
		}
	}
	return best
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
