// Package heapdump records snapshots of a crb heap in a SQL database.
//
// A snapshot lists every live object, hidden ones included, with its type,
// class and memory use, plus the references between objects. Any
// database/sql driver speaking SQLite works; the crbstat command uses
// github.com/mattn/go-sqlite3 and the tests modernc.org/sqlite.
package heapdump

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oruby/crb"
)

// Store is an open heap dump database
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Option configures Open
type Option func(*Store)

// WithLogger sets the logger; the default is crb.Logger()
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens the database and creates the tables when missing
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("heapdump: opening %s: %w", driver, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("heapdump: creating schema: %w", err)
	}
	s := &Store{db: db, log: crb.Logger()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "heapdump"))
	return s, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// Snapshot describes one recorded heap
type Snapshot struct {
	ID      uuid.UUID
	Label   string
	TakenAt time.Time
	Stat    crb.GCStat
	Objects int
	Refs    int
}

type object struct {
	addr    uint64
	typ     string
	class   string
	memsize int
	frozen  bool
	hidden  bool
	refs    []uint64
}

// collect walks the heap without allocating in the VM, so the walk sees
// one consistent heap
func collect(st *crb.State) []object {
	var objs []object
	st.EachObject(func(v crb.Value) bool {
		o := object{
			addr:    v.Raw(),
			typ:     crb.TypeName(st.Type(v)),
			class:   st.ClassName(v),
			memsize: st.Memsize(v),
			frozen:  st.IsFrozen(v),
			hidden:  st.IsHidden(v),
		}
		for _, r := range st.ReachableObjects(v) {
			o.refs = append(o.refs, r.Raw())
		}
		objs = append(objs, o)
		return true
	})
	return objs
}

// Take records the current heap of st under label. It must be called from
// a goroutine holding the VM lock; the database writes happen after the
// walk.
func (s *Store) Take(ctx context.Context, st *crb.State, label string) (Snapshot, error) {
	start := time.Now()
	objs := collect(st)
	snap := Snapshot{
		ID:      uuid.New(),
		Label:   label,
		TakenAt: start.UTC(),
		Stat:    st.GCStat(),
		Objects: len(objs),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: begin: %w", err)
	}
	defer tx.Rollback()

	id := snap.ID.String()
	_, err = tx.ExecContext(ctx, `INSERT INTO snapshots
		(id, label, taken_at, gc_count, compactions, total_slots, live_slots, free_slots, mem_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, label, snap.TakenAt.UnixNano(), snap.Stat.Count, snap.Stat.Compactions,
		snap.Stat.TotalSlots, snap.Stat.LiveSlots, snap.Stat.FreeSlots, int64(snap.Stat.MemSize))
	if err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: inserting snapshot: %w", err)
	}

	objStmt, err := tx.PrepareContext(ctx, `INSERT INTO objects
		(snapshot_id, addr, type, class, memsize, frozen, hidden) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: preparing objects: %w", err)
	}
	defer objStmt.Close()
	refStmt, err := tx.PrepareContext(ctx, `INSERT INTO refs (snapshot_id, src, dst) VALUES (?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: preparing refs: %w", err)
	}
	defer refStmt.Close()

	for _, o := range objs {
		if _, err := objStmt.ExecContext(ctx, id, int64(o.addr), o.typ, o.class, o.memsize, o.frozen, o.hidden); err != nil {
			return Snapshot{}, fmt.Errorf("heapdump: inserting object %#x: %w", o.addr, err)
		}
		for _, r := range o.refs {
			if _, err := refStmt.ExecContext(ctx, id, int64(o.addr), int64(r)); err != nil {
				return Snapshot{}, fmt.Errorf("heapdump: inserting ref %#x: %w", o.addr, err)
			}
			snap.Refs++
		}
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("heapdump: commit: %w", err)
	}

	s.log.Debug("snapshot taken",
		zap.String("id", id),
		zap.String("label", label),
		zap.Int("objects", snap.Objects),
		zap.Int("refs", snap.Refs),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}
