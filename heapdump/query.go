package heapdump

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown snapshot ids
var ErrNotFound = errors.New("heapdump: snapshot not found")

// Snapshots lists the recorded snapshots, oldest first
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		s.id, s.label, s.taken_at, s.gc_count, s.compactions, s.total_slots, s.live_slots, s.free_slots, s.mem_size,
		(SELECT COUNT(*) FROM objects o WHERE o.snapshot_id = s.id),
		(SELECT COUNT(*) FROM refs r WHERE r.snapshot_id = s.id)
		FROM snapshots s ORDER BY s.taken_at, s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("heapdump: listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Get returns one snapshot
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		s.id, s.label, s.taken_at, s.gc_count, s.compactions, s.total_slots, s.live_slots, s.free_slots, s.mem_size,
		(SELECT COUNT(*) FROM objects o WHERE o.snapshot_id = s.id),
		(SELECT COUNT(*) FROM refs r WHERE r.snapshot_id = s.id)
		FROM snapshots s WHERE s.id = ?`, id.String())
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r scanner) (Snapshot, error) {
	var (
		snap    Snapshot
		id      string
		takenAt int64
		memSize int64
	)
	err := r.Scan(&id, &snap.Label, &takenAt, &snap.Stat.Count, &snap.Stat.Compactions,
		&snap.Stat.TotalSlots, &snap.Stat.LiveSlots, &snap.Stat.FreeSlots, &memSize,
		&snap.Objects, &snap.Refs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("heapdump: reading snapshot: %w", err)
	}
	if snap.ID, err = uuid.Parse(id); err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: bad snapshot id %q: %w", id, err)
	}
	snap.TakenAt = time.Unix(0, takenAt).UTC()
	snap.Stat.MemSize = uint64(memSize)
	return snap, nil
}

// ClassCount is the number and size of objects of one type and class
type ClassCount struct {
	Type  string
	Class string
	Count int
	Bytes int64
}

// Classes groups a snapshot's objects by type and class, largest count
// first. Hidden objects have an empty class.
func (s *Store) Classes(ctx context.Context, id uuid.UUID) ([]ClassCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, class, COUNT(*), SUM(memsize)
		FROM objects WHERE snapshot_id = ?
		GROUP BY type, class ORDER BY COUNT(*) DESC, type, class`, id.String())
	if err != nil {
		return nil, fmt.Errorf("heapdump: grouping objects: %w", err)
	}
	defer rows.Close()

	var out []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.Type, &c.Class, &c.Count, &c.Bytes); err != nil {
			return nil, fmt.Errorf("heapdump: reading class count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Growth returns the change in object count per type and class from
// snapshot from to snapshot to, skipping unchanged groups
func (s *Store) Growth(ctx context.Context, from, to uuid.UUID) ([]ClassCount, error) {
	before, err := s.Classes(ctx, from)
	if err != nil {
		return nil, err
	}
	after, err := s.Classes(ctx, to)
	if err != nil {
		return nil, err
	}
	type key struct{ typ, class string }
	delta := map[key]*ClassCount{}
	var order []key
	add := func(cs []ClassCount, sign int) {
		for _, c := range cs {
			k := key{c.Type, c.Class}
			d, ok := delta[k]
			if !ok {
				d = &ClassCount{Type: c.Type, Class: c.Class}
				delta[k] = d
				order = append(order, k)
			}
			d.Count += sign * c.Count
			d.Bytes += int64(sign) * c.Bytes
		}
	}
	add(after, 1)
	add(before, -1)

	var out []ClassCount
	for _, k := range order {
		if d := delta[k]; d.Count != 0 || d.Bytes != 0 {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Referrers lists the objects of a snapshot referencing addr
func (s *Store) Referrers(ctx context.Context, id uuid.UUID, addr uint64) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT src FROM refs
		WHERE snapshot_id = ? AND dst = ? ORDER BY src`, id.String(), int64(addr))
	if err != nil {
		return nil, fmt.Errorf("heapdump: querying referrers: %w", err)
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var src int64
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("heapdump: reading referrer: %w", err)
		}
		out = append(out, uint64(src))
	}
	return out, rows.Err()
}

// Delete removes a snapshot and its objects
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("heapdump: begin: %w", err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM refs WHERE snapshot_id = ?`,
		`DELETE FROM objects WHERE snapshot_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id.String()); err != nil {
			return fmt.Errorf("heapdump: deleting: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("heapdump: deleting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
