package heapdump

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	"github.com/oruby/crb"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "heap.db")
	s, err := Open(context.Background(), "sqlite", dsn, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newState(t *testing.T) *crb.State {
	t.Helper()
	st, err := crb.New(crb.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st
}

func find(cs []ClassCount, typ, class string) (ClassCount, bool) {
	i := slices.IndexFunc(cs, func(c ClassCount) bool { return c.Type == typ && c.Class == class })
	if i < 0 {
		return ClassCount{}, false
	}
	return cs[i], true
}

func TestTakeAndGrowth(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	st := newState(t)

	ary := st.AryNew()
	st.FullGC()
	before, err := s.Take(ctx, st, "before")
	if err != nil {
		t.Fatal(err)
	}
	if before.Objects == 0 || before.Label != "before" {
		t.Errorf("unexpected snapshot %+v", before)
	}

	for range 10 {
		if err := ary.PushString("payload"); err != nil {
			t.Fatal(err)
		}
	}
	st.FullGC()
	after, err := s.Take(ctx, st, "after")
	if err != nil {
		t.Fatal(err)
	}
	if after.Refs < 10 {
		t.Errorf("expected the array's 10 references, got %d", after.Refs)
	}

	growth, err := s.Growth(ctx, before.ID, after.ID)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := find(growth, "T_STRING", "String")
	if !ok || g.Count != 10 {
		t.Errorf("expected 10 new strings, got %+v", growth)
	}

	list, err := s.Snapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != before.ID || list[1].ID != after.ID {
		t.Fatalf("unexpected snapshot list %+v", list)
	}
	if list[1].Objects != after.Objects || list[1].Refs != after.Refs {
		t.Errorf("stored counts %d/%d, taken %d/%d", list[1].Objects, list[1].Refs, after.Objects, after.Refs)
	}
	if list[1].Stat.Count != after.Stat.Count || list[1].Stat.LiveSlots != after.Stat.LiveSlots {
		t.Errorf("stored stat %+v, taken %+v", list[1].Stat, after.Stat)
	}
}

func TestReferrers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	st := newState(t)

	str := st.StrNew("shared")
	a := st.AryNewFrom(str)
	b := st.AryNewFrom(str, str)

	snap, err := s.Take(ctx, st, "refs")
	if err != nil {
		t.Fatal(err)
	}
	refs, err := s.Referrers(ctx, snap.ID, str.Value().Raw())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []uint64{a.Value().Raw(), b.Value().Raw()} {
		if !slices.Contains(refs, want) {
			t.Errorf("referrers %x miss %x", refs, want)
		}
	}
	if len(refs) != 2 {
		t.Errorf("expected each referrer once, got %x", refs)
	}
}

func TestHiddenObjects(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	st := newState(t)

	st.WrapFunc(func(st *crb.State, self crb.Value, args []crb.Value) (crb.Value, error) {
		return crb.Nil, nil
	})
	snap, err := s.Take(ctx, st, "hidden")
	if err != nil {
		t.Fatal(err)
	}
	classes, err := s.Classes(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := find(classes, "T_DATA", ""); !ok || c.Count < 1 {
		t.Errorf("hidden wrapper missing from %+v", classes)
	}
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	st := newState(t)

	snap, err := s.Take(ctx, st, "gone")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "gone" || got.Objects != snap.Objects {
		t.Errorf("unexpected snapshot %+v", got)
	}

	if err := s.Delete(ctx, snap.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, snap.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	classes, err := s.Classes(ctx, snap.ID)
	if err != nil || len(classes) != 0 {
		t.Errorf("objects of a deleted snapshot remain: %v %v", classes, err)
	}
}
