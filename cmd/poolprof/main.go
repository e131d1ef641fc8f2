// Command poolprof drives insert/remove churn through a ComponentPool under the
// profiler, for tuning maintenance.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/pkg/profile"
)

func main() {
	var (
		mode     = flag.String("mode", "cpu", "profile mode: cpu, mem, block or mutex")
		dir      = flag.String("dir", ".", "profile output directory")
		cycles   = flag.Int("cycles", 1000, "maintenance cycles")
		entities = flag.Int("entities", 100000, "steady-state entity count")
		churn    = flag.Float64("churn", 0.05, "fraction of entities replaced each cycle")
		size     = flag.Int("size", 16, "record size in bytes")
		seed     = flag.Int64("seed", 1, "random seed")
	)
	flag.Parse()

	var opt func(*profile.Profile)
	switch *mode {
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "block":
		opt = profile.BlockProfile
	case "mutex":
		opt = profile.MutexProfile
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	defer profile.Start(opt, profile.ProfilePath(*dir), profile.NoShutdownHook).Stop()

	if err := churnPool(*cycles, *entities, *churn, *size, rand.New(rand.NewSource(*seed))); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func churnPool(cycles, entities int, churn float64, size int, rng *rand.Rand) error {
	indexes, err := ecs.NewIndexes(ecs.PersistentGroup)
	if err != nil {
		return err
	}
	pool, err := ecs.NewComponentPool(ecs.ComponentPoolOptions{DataSize: size, ExpansionRate: entities})
	if err != nil {
		return err
	}
	defer pool.Destroy()

	record := make([]byte, size)
	live := make([]ecs.ID, 0, entities)
	for i := 0; i < entities; i++ {
		id, err := indexes.Generate()
		if err != nil {
			return err
		}
		pool.Insert(id, record)
		live = append(live, id)
	}
	if err := pool.Maintenance(); err != nil {
		return err
	}

	perCycle := int(float64(entities) * churn)
	start := time.Now()
	for c := 0; c < cycles; c++ {
		freed := make([]ecs.ID, 0, perCycle)
		for i := 0; i < perCycle; i++ {
			k := rng.Intn(len(live))
			pool.Remove(live[k])
			freed = append(freed, live[k])
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		for i := 0; i < perCycle; i++ {
			id, err := indexes.Generate()
			if err != nil {
				return err
			}
			pool.Insert(id, record)
			live = append(live, id)
		}
		if err := pool.Maintenance(); err != nil {
			return err
		}
		if err := indexes.FreeMany(freed); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("%d cycles, %d entities, %d replaced per cycle: %s (%s/cycle)\n",
		cycles, pool.Size(), perCycle, elapsed, elapsed/time.Duration(max(cycles, 1)))
	return nil
}
