package crb

import (
	"unsafe"

	"github.com/oruby/crb/internal/rb"
)

// FullGC runs a full mark and sweep
func (st *State) FullGC() {
	st.checkThread()
	st.vm.GCStart(false)
}

// GCCompact runs a full collection followed by compaction. Objects that
// are only marked movable may change address; their owners see the new
// address through Compactor.Location.
func (st *State) GCCompact() {
	st.checkThread()
	st.vm.GCStart(true)
}

// GCEnable enables GC and reports whether it was disabled before
func (st *State) GCEnable() bool { return st.vm.GCEnable() }

// GCDisable disables GC and reports whether it was disabled before
func (st *State) GCDisable() bool { return st.vm.GCDisable() }

// GCStress turns stress mode on or off: every allocation collects
func (st *State) GCStress(on bool) { st.vm.GCStress(on) }

// GCAutoCompact makes threshold collections compact
func (st *State) GCAutoCompact(on bool) { st.vm.GCSetAutoCompact(on) }

// GCCount returns the number of collections so far
func (st *State) GCCount() int { return st.vm.GCCount() }

// GCStat holds collector counters
type GCStat struct {
	Count          int
	Compactions    int
	Pages          int
	TotalSlots     int
	LiveSlots      int
	FreeSlots      int
	MovedSlots     int
	ZombieSlots    int
	TotalAllocated uint64
	TotalFreed     uint64
	TotalMoved     uint64
	LastMoved      int
	MemSize        uint64
}

// GCStat returns a snapshot of the collector counters
func (st *State) GCStat() GCStat {
	s := st.vm.GCStat()
	return GCStat{
		Count:          s.Count,
		Compactions:    s.Compactions,
		Pages:          s.Pages,
		TotalSlots:     s.TotalSlots,
		LiveSlots:      s.LiveSlots,
		FreeSlots:      s.FreeSlots,
		MovedSlots:     s.MovedSlots,
		ZombieSlots:    s.ZombieSlots,
		TotalAllocated: s.TotalAllocated,
		TotalFreed:     s.TotalFreed,
		TotalMoved:     s.TotalMoved,
		LastMoved:      s.LastMoved,
		MemSize:        s.MemSize,
	}
}

// ObjspaceEachObjects walks every object visible to Ruby code. Hidden
// objects are skipped. The walk stops when fn returns false.
func (st *State) ObjspaceEachObjects(fn func(v Value) bool) {
	st.checkThread()
	st.vm.ObjspaceEachObject(func(w rb.VALUE) bool { return fn(Value{w}) })
}

// EachObject walks every live object, hidden ones included
func (st *State) EachObject(fn func(v Value) bool) {
	st.checkThread()
	st.vm.EachObject(func(w rb.VALUE) bool { return fn(Value{w}) })
}

// ReachableObjects lists the objects v references directly
func (st *State) ReachableObjects(v RValue) []Value {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return nil
	}
	st.checkLiveness(w)
	var out []Value
	st.vm.ReachableObjectsFrom(w, func(c rb.VALUE) { out = append(out, Value{c}) })
	return out
}

// Memsize returns the bytes v owns outside its slot
func (st *State) Memsize(v RValue) int {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return 0
	}
	st.checkLiveness(w)
	return st.vm.Memsize(w)
}

// Scope runs fn in a nested root frame. What fn creates is rooted while
// it runs and collectable once it returns, unless something else holds it.
// A Ruby exception raised by fn's calls comes back as an *Error.
func (st *State) Scope(fn func() error) error {
	_, err := st.Protect(func() (Value, error) { return Nil, fn() })
	return err
}

// ReleaseLocals drops the roots of the current frame. At the top level of
// the main thread that frame lasts as long as the state, so long-running
// loops there call it to let their temporaries go. Views of values created
// in the frame are stale afterwards unless a Box, a registered address or
// a marked object holds them.
func (st *State) ReleaseLocals() {
	st.checkThread()
	st.vm.ReleaseLocals()
}

// GCRegisterAddress makes the value stored at p a root until
// GCUnregisterAddress. The value is pinned.
func (st *State) GCRegisterAddress(p *Value) {
	st.vm.GCRegisterAddress(&p.v)
}

// GCUnregisterAddress undoes GCRegisterAddress
func (st *State) GCUnregisterAddress(p *Value) {
	st.vm.GCUnregisterAddress(&p.v)
}

// GCRegisterMarkObject keeps v alive for the life of the state
func (st *State) GCRegisterMarkObject(v RValue) {
	st.vm.GCRegisterMarkObject(v.Value().v)
}

// GCLocation returns the current address of v after a compaction
func (st *State) GCLocation(v Value) Value { return Value{st.vm.GCLocation(v.v)} }

// Box holds one value as a root from Go memory. A Box outlives the frame
// that made it, so it is the way to keep a value across Protect calls or
// in a Go struct. Release it when done.
type Box struct {
	st *State
	p  *Value
}

// NewBox roots v
func (st *State) NewBox(v RValue) *Box {
	b := &Box{st: st, p: &Value{v.Value().v}}
	st.GCRegisterAddress(b.p)
	return b
}

// Get returns the boxed value, nil once released
func (b *Box) Get() Value {
	if b.p == nil {
		return Nil
	}
	return *b.p
}

// Set replaces the boxed value. It panics on a released Box, which no
// longer roots anything.
func (b *Box) Set(v RValue) {
	if b.p == nil {
		panic("crb: Set on a released Box")
	}
	b.p.v = v.Value().v
}

// Release unroots the value. Get reads nil afterwards and Set panics.
func (b *Box) Release() {
	if b.p == nil {
		return
	}
	b.st.GCUnregisterAddress(b.p)
	b.p = nil
}

// Marker reports references held in Go memory to the collector. It is only
// valid inside a mark callback.
type Marker struct{ vm *rb.VM }

// Mark marks v and pins it
func (m Marker) Mark(v RValue) { m.vm.GCMark(v.Value().v) }

// MarkMovable marks v and lets compaction move it. The owner must pick up
// the new address in its compact callback.
func (m Marker) MarkMovable(v RValue) { m.vm.GCMarkMovable(v.Value().v) }

// MarkSlice marks every element of vs and pins them
func (m Marker) MarkSlice(vs []Value) {
	for _, v := range vs {
		m.vm.GCMark(v.v)
	}
}

// MarkLocations treats every word of vs as a possible reference. Words
// that are not live heap addresses are ignored, so arbitrary data can be
// scanned. A word that happens to equal a live address keeps that object
// alive: this can retain too much, never too little.
func (m Marker) MarkLocations(vs []Value) {
	for _, v := range vs {
		m.vm.GCMarkMaybe(v.v)
	}
}

// MarkWords is MarkLocations over raw memory, such as a struct that may
// hold Values at unknown offsets. p must point at n words.
func (m Marker) MarkWords(p unsafe.Pointer, n int) {
	m.MarkLocations(unsafe.Slice((*Value)(p), n))
}

// Compactor gives compact callbacks the new address of moved objects
type Compactor struct{ vm *rb.VM }

// Location returns where v lives now
func (c Compactor) Location(v Value) Value { return Value{c.vm.GCLocation(v.v)} }
