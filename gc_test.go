package crb

import (
	"testing"
)

func TestFullGCFreesUnrooted(t *testing.T) {
	st := newState(t)

	kept := st.StrNew("kept")
	v := dropped(t, st, func() Value { return st.StrNew("Test").Value() })
	Expect(t, !st.IsDead(v), "value should be alive before collection")

	before := st.GCCount()
	st.FullGC()
	ExpectEql(t, st.GCCount(), before+1)

	Expect(t, st.IsDead(v), "unrooted value should be dead after collection")
	Expect(t, !st.IsDead(kept), "value rooted in the main frame should survive")
	ExpectEql(t, kept.String(), "kept")
}

func TestGCDisable(t *testing.T) {
	st := newState(t)

	st.FullGC()
	Expect(t, !st.GCDisable(), "GC should start enabled")
	v := dropped(t, st, func() Value { return st.AryNew().Value() })
	s := st.GCStat()
	Expect(t, s.LiveSlots > 0, "live slots expected, got %d", s.LiveSlots)
	Expect(t, st.GCEnable(), "GCEnable should report GC was disabled")
	st.FullGC()
	Expect(t, st.IsDead(v), "value should be collected once GC is enabled")
}

func TestLivenessCheckPanics(t *testing.T) {
	st := newState(t, WithDebugChecks(true, false))

	v := dropped(t, st, func() Value { return st.StrNew("gone").Value() })
	st.FullGC()

	ExpectPanic(t, func() { st.Type(v) }, "Type on a freed value should panic")
	ExpectPanic(t, func() { st.AsString(v) }, "AsString on a freed value should panic")
	ExpectPanic(t, func() { st.Funcall(v, "to_s") }, "Funcall on a freed value should panic")

	var s RString
	_, _ = st.Protect(func() (Value, error) {
		s = st.StrNew("view")
		return Nil, nil
	})
	st.FullGC()
	ExpectPanic(t, func() { _ = s.Len() }, "view of a freed value should panic")
}

func TestBoxRoots(t *testing.T) {
	st := newState(t)

	var b *Box
	_, err := st.Protect(func() (Value, error) {
		b = st.NewBox(st.StrNew("boxed"))
		return Nil, nil
	})
	ExpectNilError(t, err)

	st.FullGC()
	v := b.Get()
	Expect(t, !st.IsDead(v), "boxed value should survive")
	s, ok := st.AsString(v)
	Expect(t, ok, "boxed value should still be a String")
	ExpectEql(t, s.String(), "boxed")

	b.Release()
	Expect(t, b.Get().IsNil(), "released box should read nil")
	st.FullGC()
	Expect(t, st.IsDead(v), "released value should be collected")
	b.Release()
	ExpectPanic(t, func() { b.Set(st.Value(1)) }, "Set on a released box should panic")
}

func TestScopeDropsTemporaries(t *testing.T) {
	st := newState(t)

	st.FullGC()
	before := st.GCStat().LiveSlots
	var last Value
	for i := range 1000 {
		err := st.Scope(func() error {
			last = st.StrNew("temp").Value()
			return nil
		})
		ExpectNilError(t, err)
		if i == 0 {
			Expect(t, !st.IsDead(last), "value should be alive until collection")
		}
	}
	st.FullGC()
	ExpectEql(t, st.GCStat().LiveSlots, before)
	Expect(t, st.IsDead(last), "scoped value should be collected")

	err := st.Scope(func() error { return RangeError("out of range") })
	ExpectErrIs(t, err, ErrRange)
	err = st.Scope(func() error {
		_, err := st.Funcall(st.Value(1), "no_such_method")
		return err
	})
	ExpectErrIs(t, err, &Error{kind: KindException, class: "NoMethodError"})
}

func TestReleaseLocals(t *testing.T) {
	st := newState(t)

	st.FullGC()
	before := st.GCStat().LiveSlots
	kept := st.NewBox(st.StrNew("kept"))
	defer kept.Release()
	var temps []Value
	for range 100 {
		temps = append(temps, st.StrNew("temp").Value())
	}
	st.FullGC()
	Expect(t, !st.IsDead(temps[0]), "top-level values are rooted until released")

	st.ReleaseLocals()
	st.FullGC()
	for _, v := range temps {
		Expect(t, st.IsDead(v), "released top-level value should be collected")
	}
	ExpectEql(t, st.GCStat().LiveSlots, before+1)
	s, ok := st.AsString(kept.Get())
	Expect(t, ok && s.String() == "kept", "boxed value should survive ReleaseLocals")

	// Boot objects are not in the released frame
	a := st.AryNewFrom(st.Value(1), st.Value(2))
	n, err := a.Join("-")
	ExpectNilError(t, err)
	ExpectEql(t, n, "1-2")
}

func TestGCRegisterAddress(t *testing.T) {
	st := newState(t)

	var slot Value
	st.GCRegisterAddress(&slot)
	slot = dropped(t, st, func() Value { return st.StrNew("registered").Value() })
	st.FullGC()
	Expect(t, !st.IsDead(slot), "registered address should root its value")

	v := slot
	st.GCUnregisterAddress(&slot)
	st.FullGC()
	Expect(t, st.IsDead(v), "unregistered value should be collected")
}

type holder struct {
	pinned  Value
	movable Value
	words   [4]Value
	freed   *bool
}

func (h *holder) Mark(m Marker) {
	m.Mark(h.pinned)
	m.MarkMovable(h.movable)
	m.MarkLocations(h.words[:])
}

func (h *holder) Compact(c Compactor) {
	h.movable = c.Location(h.movable)
}

func (h *holder) Memsize() int { return 64 }

func (h *holder) Free() {
	if h.freed != nil {
		*h.freed = true
	}
}

var holderType = NewDataType[holder]("test/holder")

func TestTypedDataMark(t *testing.T) {
	st := newState(t)

	h := &holder{}
	w := WrapData(st, holderType, h)
	_, err := st.Protect(func() (Value, error) {
		h.pinned = st.StrNew("pinned").Value()
		h.movable = st.StrNew("movable").Value()
		h.words[1] = st.StrNew("conservative").Value()
		h.words[2] = st.Value(12345)
		return Nil, nil
	})
	ExpectNilError(t, err)

	st.FullGC()
	for _, v := range []Value{h.pinned, h.movable, h.words[1]} {
		Expect(t, !st.IsDead(v), "value held by the payload should survive")
	}
	ExpectEql(t, st.Memsize(w), 64)
	ExpectEql(t, len(st.ReachableObjects(w)) >= 3, true)

	got, err := GetData(st, w, holderType)
	ExpectNilError(t, err)
	Expect(t, got == h, "GetData should return the wrapped pointer")
}

func TestTypedDataCompact(t *testing.T) {
	st := newState(t)

	h := &holder{}
	WrapData(st, holderType, h)
	_, err := st.Protect(func() (Value, error) {
		for range 200 {
			st.StrNew("garbage")
		}
		h.pinned = st.StrNew("pinned").Value()
		h.movable = st.StrNew("movable").Value()
		return Nil, nil
	})
	ExpectNilError(t, err)

	before := h.movable
	pinned := h.pinned
	st.GCCompact()
	stat := st.GCStat()
	ExpectEql(t, stat.Compactions, 1)

	Expect(t, h.pinned.Is(pinned), "pinned value must not move")
	s, ok := st.AsString(h.movable)
	Expect(t, ok, "movable value should still be a String at its current address")
	ExpectEql(t, s.String(), "movable")
	if !h.movable.Is(before) {
		Expect(t, st.IsDead(before), "old address of a moved value should be a forwarding slot")
		ExpectEql(t, st.GCLocation(before), h.movable)
	}
}

func TestZombieFree(t *testing.T) {
	st := newState(t)

	freed := false
	v := dropped(t, st, func() Value {
		return WrapData(st, holderType, &holder{freed: &freed}).Value()
	})
	st.FullGC()
	Expect(t, st.IsDead(v), "collected payload should leave a zombie")
	Expect(t, !freed, "deferred free should not run during the sweep")
	ExpectEql(t, st.GCStat().ZombieSlots, 1)

	st.FullGC()
	Expect(t, freed, "zombie should be finalized by the next collection")
}

type immediate struct{ freed *bool }

func (i *immediate) Free() { *i.freed = true }

var immediateType = NewDataType[immediate]("test/immediate").FreeImmediately()

func TestFreeImmediately(t *testing.T) {
	st := newState(t)

	freed := false
	dropped(t, st, func() Value {
		return WrapData(st, immediateType, &immediate{freed: &freed}).Value()
	})
	st.FullGC()
	Expect(t, freed, "FreeImmediately payload should be freed during the sweep")
	ExpectEql(t, st.GCStat().ZombieSlots, 0)
}

func TestHiddenObjectsSkipEnumeration(t *testing.T) {
	st := newState(t)

	h := WrapHidden(st, holderType, &holder{})
	Expect(t, h.IsHidden(), "wrapped object should be hidden")
	_, hasClass := h.Class()
	Expect(t, !hasClass, "hidden object should have no class")

	seen := func() bool {
		found := false
		st.ObjspaceEachObjects(func(v Value) bool {
			if v.Is(h) {
				found = true
				return false
			}
			return true
		})
		return found
	}
	Expect(t, !seen(), "enumeration should skip hidden objects")

	_, err := h.Funcall("inspect")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "NoMethodError"})

	_, err = GetData(st, st.Value(1), holderType)
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "wrong argument type Integer (expected test/holder) (TypeError)")

	st.Reveal(h, st.ObjectClass())
	Expect(t, !h.IsHidden(), "revealed object should have a class")
	Expect(t, seen(), "enumeration should see the revealed object")

	st.Reveal(h, st.ArrayClass())
	ExpectEql(t, st.ClassName(h), "Object")
	Expect(t, !h.IsHidden(), "revealing again must not change or drop the class")

	st.FullGC()
	Expect(t, !st.IsDead(h), "hidden object rooted in the main frame should survive")
}

func TestDataTypeInherit(t *testing.T) {
	st := newState(t)

	base := NewDataType[holder]("test/base")
	child := NewDataType[holder]("test/child").Inherit(base)
	c, err := child.DefineClass(st, "Child", st.ObjectClass())
	ExpectNilError(t, err)

	w := WrapData(st, child, &holder{})
	ExpectEql(t, st.ClassName(w), "Child")
	_, ok := AsTypedData(st, w, base)
	Expect(t, ok, "child payload should pass the parent type check")
	_, ok = AsTypedData(st, WrapData(st, base, &holder{}), child)
	Expect(t, !ok, "parent payload should fail the child type check")

	bound, ok := child.Class(st)
	Expect(t, ok && bound.Value().Is(c), "bound class should be Child")
}
