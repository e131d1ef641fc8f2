// Package yamlimex reads and writes simulation snapshots as YAML.
package yamlimex

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/imex"
	"gopkg.in/yaml.v3"
)

const Extension = ".yaml"

// IDNode is the YAML form of an ID. GroupID is left out for the persistent group.
type IDNode struct {
	IndexID ecs.IndexID `yaml:"index_id"`
	GroupID *uint32     `yaml:"group_id,omitempty"`
}

func NewIDNode(id ecs.ID) IDNode {
	n := IDNode{IndexID: id.Index()}
	if id.Group() != ecs.PersistentGroup {
		g := id.GroupValue()
		n.GroupID = &g
	}
	return n
}

// ID rebuilds the ID in the writer's group numbering.
func (n IDNode) ID() ecs.ID {
	group := ecs.PersistentGroup
	if n.GroupID != nil {
		group = ecs.GroupFromValue(*n.GroupID)
	}
	return ecs.NewID(group, n.IndexID)
}

// IndexesNode is the YAML form of an allocator's state.
type IndexesNode struct {
	NextFreeIndex   ecs.IndexID   `yaml:"next_free_index"`
	RecycledIndices []ecs.IndexID `yaml:"recycled_indices,flow"`
}

type groupNode struct {
	Name    string      `yaml:"name"`
	GroupID uint32      `yaml:"group_id"`
	Indexes IndexesNode `yaml:"indexes"`
}

type recordNode struct {
	ID   IDNode `yaml:"id"`
	Data string `yaml:"data"`
}

type poolNode struct {
	Name     string       `yaml:"name"`
	DataSize int          `yaml:"data_size"`
	Records  []recordNode `yaml:"records"`
}

type nameNode struct {
	ID   IDNode `yaml:"id"`
	Name string `yaml:"name"`
}

type file struct {
	Groups      []groupNode `yaml:"groups"`
	Pools       []poolNode  `yaml:"pools"`
	EditorNames []nameNode  `yaml:"editor_names,omitempty"`
}

// ExportIndexes converts an allocator's state, recycled indexes in queue order.
func ExportIndexes(ix *ecs.Indexes) IndexesNode {
	next, recycled := ix.Snapshot()
	return IndexesNode{NextFreeIndex: next, RecycledIndices: recycled}
}

func ImportIndexes(n IndexesNode, ix *ecs.Indexes) error {
	return ix.Import(n.NextFreeIndex, n.RecycledIndices)
}

// encode converts world data to the YAML document model.
func encode(d *imex.WorldData) file {
	f := file{
		Groups: make([]groupNode, 0, len(d.Groups)),
		Pools:  make([]poolNode, 0, len(d.Pools)),
	}
	for _, g := range d.Groups {
		f.Groups = append(f.Groups, groupNode{
			Name:    g.Name,
			GroupID: g.GroupValue,
			Indexes: IndexesNode{NextFreeIndex: g.NextFreeIndex, RecycledIndices: g.Recycled},
		})
	}
	for _, p := range d.Pools {
		pn := poolNode{Name: p.Name, DataSize: p.DataSize, Records: make([]recordNode, 0, len(p.Records))}
		for _, r := range p.Records {
			pn.Records = append(pn.Records, recordNode{
				ID:   NewIDNode(r.ID),
				Data: base64.StdEncoding.EncodeToString(r.Data),
			})
		}
		f.Pools = append(f.Pools, pn)
	}
	for _, n := range d.Names {
		f.EditorNames = append(f.EditorNames, nameNode{ID: NewIDNode(n.ID), Name: n.Name})
	}
	return f
}

func decode(f *file) (*imex.WorldData, error) {
	d := &imex.WorldData{}
	for _, g := range f.Groups {
		d.Groups = append(d.Groups, imex.GroupData{
			Name:          g.Name,
			GroupValue:    g.GroupID,
			NextFreeIndex: g.Indexes.NextFreeIndex,
			Recycled:      g.Indexes.RecycledIndices,
		})
	}
	for _, p := range f.Pools {
		pd := imex.PoolData{Name: p.Name, DataSize: p.DataSize, Records: make([]imex.Record, 0, len(p.Records))}
		for _, r := range p.Records {
			data, err := base64.StdEncoding.DecodeString(r.Data)
			if err != nil {
				return nil, fmt.Errorf("pool %s record %d: %w", p.Name, r.ID.IndexID, err)
			}
			if len(data) != p.DataSize {
				return nil, fmt.Errorf("pool %s record %d: %w", p.Name, r.ID.IndexID, ecs.ErrDataSize)
			}
			pd.Records = append(pd.Records, imex.Record{ID: r.ID.ID(), Data: data})
		}
		d.Pools = append(d.Pools, pd)
	}
	for _, n := range f.EditorNames {
		d.Names = append(d.Names, imex.NameData{ID: n.ID.ID(), Name: n.Name})
	}
	return d, nil
}

// Format implements imex.Exporter and imex.Importer for YAML.
type Format struct{}

func (Format) Extension() string { return Extension }

func (Format) Export(w io.Writer, world *ecs.World) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(encode(imex.Capture(world))); err != nil {
		return fmt.Errorf("yamlimex: encode: %w", err)
	}
	return enc.Close()
}

func (Format) Import(r io.Reader, world *ecs.World, tr *ecs.GroupTranslator) error {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("yamlimex: decode: %w", err)
	}
	d, err := decode(&f)
	if err != nil {
		return fmt.Errorf("yamlimex: %w", err)
	}
	return imex.Apply(world, d, tr)
}
