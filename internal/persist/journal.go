package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/foesim/simcore/internal/imex"
	"github.com/jackc/pgx/v5"
)

const (
	JournalSave = "save"
	JournalLoad = "load"
)

// JournalEntry records one snapshot save or load.
type JournalEntry struct {
	Kind       string
	Source     string // simulation name
	Groups     int
	Pools      int
	Records    int
	Names      int
	RecordedAt time.Time
}

// NewJournalEntry summarizes d.
func NewJournalEntry(kind, source string, d *imex.WorldData) JournalEntry {
	e := JournalEntry{
		Kind:   kind,
		Source: source,
		Groups: len(d.Groups),
		Pools:  len(d.Pools),
		Names:  len(d.Names),
	}
	for _, p := range d.Pools {
		e.Records += len(p.Records)
	}
	return e
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write atomically appends a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshot_journal (kind, source, group_count, pool_count, record_count, name_count)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.Kind, e.Source, e.Groups, e.Pools, e.Records, e.Names,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recent returns up to limit entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT kind, source, group_count, pool_count, record_count, name_count, recorded_at
		 FROM snapshot_journal ORDER BY recorded_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (JournalEntry, error) {
		var e JournalEntry
		err := row.Scan(&e.Kind, &e.Source, &e.Groups, &e.Pools, &e.Records, &e.Names, &e.RecordedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal scan: %w", err)
	}
	return entries, nil
}

// Prune keeps only the newest keep entries.
func (r *JournalRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshot_journal WHERE id NOT IN
		 (SELECT id FROM snapshot_journal ORDER BY recorded_at DESC, id DESC LIMIT $1)`, keep)
	if err != nil {
		return fmt.Errorf("journal prune: %w", err)
	}
	return nil
}
