// Package imex moves simulation state in and out of the process: ID groups with their
// allocator state, component pool records and editor names.
package imex

import (
	"errors"
	"fmt"

	"github.com/foesim/simcore/internal/core/ecs"
)

var (
	ErrUnknownPool = errors.New("imex: no such component pool")
	ErrRegistered  = errors.New("imex: name already registered")
	ErrNoImporter  = errors.New("imex: no importer for format")
)

// GroupData is one group's allocator state. GroupValue is in the numbering of the
// simulation that wrote it.
type GroupData struct {
	Name          string
	GroupValue    uint32
	NextFreeIndex ecs.IndexID
	Recycled      []ecs.IndexID
}

type Record struct {
	ID   ecs.ID
	Data []byte
}

type PoolData struct {
	Name     string
	DataSize int
	Records  []Record
}

type NameData struct {
	ID   ecs.ID
	Name string
}

// WorldData is the format-independent content of a snapshot.
type WorldData struct {
	Groups []GroupData
	Pools  []PoolData
	Names  []NameData
}

func exported(id ecs.ID) bool {
	return id.Group() != ecs.TemporaryGroup
}

// Capture copies the exportable state of world. Temporary-group IDs are left out.
// It must not run concurrently with pool maintenance.
func Capture(world *ecs.World) *WorldData {
	d := &WorldData{}

	world.Groups().Each(func(name string, ix *ecs.Indexes) {
		if ix.GroupID() == ecs.TemporaryGroup {
			return
		}
		next, recycled := ix.Snapshot()
		d.Groups = append(d.Groups, GroupData{
			Name:          name,
			GroupValue:    ix.GroupID().GroupValue(),
			NextFreeIndex: next,
			Recycled:      recycled,
		})
	})

	world.Registry().Each(func(name string, s ecs.Store) {
		cp, ok := s.(*ecs.ComponentPool)
		if !ok {
			return
		}
		pd := PoolData{Name: name, DataSize: cp.DataSize()}
		for id, data := range cp.Stored().All() {
			if !exported(id) {
				continue
			}
			rec := Record{ID: id, Data: make([]byte, len(*data))}
			copy(rec.Data, *data)
			pd.Records = append(pd.Records, rec)
		}
		d.Pools = append(d.Pools, pd)
	})

	world.Names().Each(func(id ecs.ID, name string) {
		if exported(id) {
			d.Names = append(d.Names, NameData{ID: id, Name: name})
		}
	})
	return d
}

// Apply loads d into world. Group state replaces the local allocator state of the
// translated group; groups missing locally are created. Records are staged with
// Insert and land at the next maintenance. Every named pool must already be
// registered with a matching data size.
func Apply(world *ecs.World, d *WorldData, tr *ecs.GroupTranslator) error {
	for _, g := range d.Groups {
		local := tr.Group(g.GroupValue)
		ix, ok := world.Groups().Group(local)
		if !ok {
			var err error
			ix, err = ecs.NewIndexes(local)
			if err != nil {
				return fmt.Errorf("group %s: %w", g.Name, err)
			}
			if err := world.Groups().Add(g.Name, ix); err != nil {
				return fmt.Errorf("group %s: %w", g.Name, err)
			}
		}
		if err := ix.Import(g.NextFreeIndex, g.Recycled); err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
	}

	for _, p := range d.Pools {
		cp, ok := world.Registry().ComponentPool(p.Name)
		if !ok {
			return fmt.Errorf("pool %s: %w", p.Name, ErrUnknownPool)
		}
		if cp.DataSize() != p.DataSize {
			return fmt.Errorf("pool %s: data size %d, local %d: %w", p.Name, p.DataSize, cp.DataSize(), ecs.ErrDataSize)
		}
		cp.ReserveInsertCapacity(len(p.Records))
		for _, rec := range p.Records {
			if err := cp.Insert(tr.Translate(rec.ID), rec.Data); err != nil {
				return fmt.Errorf("pool %s record %s: %w", p.Name, rec.ID, err)
			}
		}
	}

	for _, n := range d.Names {
		world.Names().Add(tr.Translate(n.ID), n.Name)
	}
	return nil
}
