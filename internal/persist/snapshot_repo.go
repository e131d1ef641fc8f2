package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/imex"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SnapshotRepo stores simulation snapshots: group allocator state, component pool
// records and editor names. Every save replaces what it covers.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes d in one transaction.
func (r *SnapshotRepo) Save(ctx context.Context, d *imex.WorldData) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := saveGroups(ctx, tx, d.Groups); err != nil {
		return err
	}
	for i := range d.Pools {
		if err := savePool(ctx, tx, &d.Pools[i]); err != nil {
			return err
		}
	}
	if err := saveNames(ctx, tx, d.Names); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	r.db.log.Debug("snapshot saved",
		zap.Int("groups", len(d.Groups)), zap.Int("pools", len(d.Pools)), zap.Int("names", len(d.Names)))
	return nil
}

// Load reads the whole stored snapshot. An empty store yields empty data.
func (r *SnapshotRepo) Load(ctx context.Context) (*imex.WorldData, error) {
	d := &imex.WorldData{}
	var err error
	if d.Groups, err = r.loadGroups(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM component_pools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	for _, name := range names {
		p, err := r.LoadPool(ctx, name)
		if err != nil {
			return nil, err
		}
		d.Pools = append(d.Pools, *p)
	}

	if d.Names, err = r.loadNames(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// SavePool replaces the stored records of one pool.
func (r *SnapshotRepo) SavePool(ctx context.Context, p *imex.PoolData) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save pool begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := savePool(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var ErrPoolNotStored = errors.New("persist: pool not stored")

func (r *SnapshotRepo) LoadPool(ctx context.Context, name string) (*imex.PoolData, error) {
	p := &imex.PoolData{Name: name}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT data_size FROM component_pools WHERE name = $1`, name,
	).Scan(&p.DataSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load pool %s: %w", name, ErrPoolNotStored)
	}
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", name, err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, data FROM component_records WHERE pool = $1 ORDER BY entity_id`, name)
	if err != nil {
		return nil, fmt.Errorf("load records %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record %s: %w", name, err)
		}
		p.Records = append(p.Records, imex.Record{ID: ecs.ID(id), Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load records %s: %w", name, err)
	}
	return p, nil
}

func saveGroups(ctx context.Context, tx pgx.Tx, groups []imex.GroupData) error {
	if _, err := tx.Exec(ctx, `DELETE FROM index_groups`); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	for _, g := range groups {
		recycled := make([]int64, len(g.Recycled))
		for i, index := range g.Recycled {
			recycled[i] = int64(index)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO index_groups (group_value, name, next_free_index, recycled)
			 VALUES ($1, $2, $3, $4)`,
			int32(g.GroupValue), g.Name, int64(g.NextFreeIndex), recycled,
		); err != nil {
			return fmt.Errorf("save group %s: %w", g.Name, err)
		}
	}
	return nil
}

func (r *SnapshotRepo) loadGroups(ctx context.Context) ([]imex.GroupData, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT group_value, name, next_free_index, recycled FROM index_groups ORDER BY group_value`)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()

	var groups []imex.GroupData
	for rows.Next() {
		var (
			value    int32
			name     string
			next     int64
			recycled []int64
		)
		if err := rows.Scan(&value, &name, &next, &recycled); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g := imex.GroupData{
			Name:          name,
			GroupValue:    uint32(value),
			NextFreeIndex: ecs.IndexID(next),
			Recycled:      make([]ecs.IndexID, len(recycled)),
		}
		for i, index := range recycled {
			g.Recycled[i] = ecs.IndexID(index)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func savePool(ctx context.Context, tx pgx.Tx, p *imex.PoolData) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO component_pools (name, data_size) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET data_size = EXCLUDED.data_size, saved_at = now()`,
		p.Name, p.DataSize,
	); err != nil {
		return fmt.Errorf("save pool %s: %w", p.Name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM component_records WHERE pool = $1`, p.Name); err != nil {
		return fmt.Errorf("clear records %s: %w", p.Name, err)
	}
	if len(p.Records) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"component_records"},
		[]string{"pool", "entity_id", "data"},
		pgx.CopyFromSlice(len(p.Records), func(i int) ([]any, error) {
			rec := p.Records[i]
			return []any{p.Name, int64(rec.ID), rec.Data}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy records %s: %w", p.Name, err)
	}
	return nil
}

func saveNames(ctx context.Context, tx pgx.Tx, names []imex.NameData) error {
	if _, err := tx.Exec(ctx, `DELETE FROM editor_names`); err != nil {
		return fmt.Errorf("clear editor names: %w", err)
	}
	for _, n := range names {
		if _, err := tx.Exec(ctx,
			`INSERT INTO editor_names (entity_id, name) VALUES ($1, $2)`,
			int64(n.ID), n.Name,
		); err != nil {
			return fmt.Errorf("save editor name %s: %w", n.Name, err)
		}
	}
	return nil
}

func (r *SnapshotRepo) loadNames(ctx context.Context) ([]imex.NameData, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT entity_id, name FROM editor_names ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("load editor names: %w", err)
	}
	defer rows.Close()

	var names []imex.NameData
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan editor name: %w", err)
		}
		names = append(names, imex.NameData{ID: ecs.ID(id), Name: name})
	}
	return names, rows.Err()
}
