package crb

import (
	"unsafe"

	"github.com/oruby/crb/internal/rb"
)

// RArray is a Ruby Array. Arrays made by Dup, Subseq and Plus share
// storage with their source until one side is written; the write gives the
// written array a private copy.
type RArray struct{ RObject }

// AsArray certifies v as an Array
func (st *State) AsArray(v RValue) (RArray, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RArray{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TArray {
		return RArray{}, false
	}
	return RArray{RObject{w, st}}, true
}

func (st *State) array(w rb.VALUE) RArray { return RArray{RObject{w, st}} }

// AryNew returns an empty Array
func (st *State) AryNew() RArray {
	st.checkThread()
	return st.array(st.vm.AryNew())
}

// AryNewCapa returns an empty Array with room for capa elements
func (st *State) AryNewCapa(capa int) (RArray, error) {
	v, err := st.protect(func() rb.VALUE { return st.vm.AryNewCapa(capa) })
	if err != nil {
		return RArray{}, err
	}
	return st.array(v.v), nil
}

// AryNewFrom returns an Array holding vs
func (st *State) AryNewFrom(vs ...RValue) RArray {
	st.checkThread()
	ws := make([]rb.VALUE, len(vs))
	for i, v := range vs {
		ws[i] = v.Value().v
	}
	return st.array(st.vm.AryNewFromValues(ws))
}

// Len returns the number of elements
func (a RArray) Len() int { return a.st.vm.AryLen(a.raw()) }

// IsShared reports whether a currently views shared storage
func (a RArray) IsShared() bool { return a.st.vm.AryShared(a.raw()) }

// SharedWith reports whether a and o view the same elements of the same
// shared storage. Any write to either side ends the sharing.
func (a RArray) SharedWith(o RArray) bool {
	return a.st.vm.ArySharedWith(a.raw(), o.raw())
}

// Entry returns the element at i, counting from the end when negative, or
// nil when out of range
func (a RArray) Entry(i int) Value { return Value{a.st.vm.AryEntry(a.raw(), i)} }

// Store sets the element at i, padding with nil past the end
func (a RArray) Store(i int, v RValue) error {
	w, x := a.raw(), v.Value().v
	return a.st.call(func() { a.st.vm.AryStore(w, i, x) })
}

// Push appends v, converting it with Value
func (a RArray) Push(v any) error {
	w := a.raw()
	x, err := a.st.TryValue(v)
	if err != nil {
		return err
	}
	return a.st.call(func() { a.st.vm.AryPush(w, x.v) })
}

// Cat appends vs
func (a RArray) Cat(vs ...Value) error {
	w := a.raw()
	ws := *(*[]rb.VALUE)(unsafe.Pointer(&vs))
	return a.st.call(func() { a.st.vm.AryCat(w, ws) })
}

// Pop removes the last element; nil for an empty Array
func (a RArray) Pop() (Value, error) {
	w := a.raw()
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryPop(w) })
}

// Shift removes the first element; nil for an empty Array
func (a RArray) Shift() (Value, error) {
	w := a.raw()
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryShift(w) })
}

// Unshift prepends v
func (a RArray) Unshift(v RValue) error {
	w, x := a.raw(), v.Value().v
	return a.st.call(func() { a.st.vm.AryUnshift(w, x) })
}

// Delete removes every element == v and returns the last removed, or nil
func (a RArray) Delete(v RValue) (Value, error) {
	w, x := a.raw(), v.Value().v
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryDelete(w, x) })
}

// DeleteAt removes the element at i and returns it, or nil
func (a RArray) DeleteAt(i int) (Value, error) {
	w := a.raw()
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryDeleteAt(w, i) })
}

// Clear removes every element
func (a RArray) Clear() error {
	w := a.raw()
	return a.st.call(func() { a.st.vm.AryClear(w) })
}

// Resize truncates or nil-pads to n elements
func (a RArray) Resize(n int) error {
	w := a.raw()
	return a.st.call(func() { a.st.vm.AryResize(w, n) })
}

// Reverse reverses in place
func (a RArray) Reverse() error {
	w := a.raw()
	return a.st.call(func() { a.st.vm.AryReverse(w) })
}

// Rotate rotates in place so the element at n comes first
func (a RArray) Rotate(n int) error {
	w := a.raw()
	return a.st.call(func() { a.st.vm.AryRotate(w, n) })
}

// Sort sorts in place with <=>
func (a RArray) Sort() error {
	w := a.raw()
	return a.st.call(func() { a.st.vm.ArySortBang(w) })
}

// Replace makes a hold the elements of o, sharing o's storage
func (a RArray) Replace(o RArray) error {
	w, x := a.raw(), o.raw()
	return a.st.call(func() { a.st.vm.AryReplace(w, x) })
}

// Concat appends the elements of o
func (a RArray) Concat(o RArray) error {
	w, x := a.raw(), o.raw()
	return a.st.call(func() { a.st.vm.AryConcat(w, x) })
}

// Dup returns a copy sharing a's storage
func (a RArray) Dup() RArray {
	return a.st.array(a.st.vm.AryDup(a.raw()))
}

// Subseq returns n elements from beg sharing a's storage. It is false when
// beg is out of range.
func (a RArray) Subseq(beg, n int) (RArray, bool) {
	r := a.st.vm.ArySubseq(a.raw(), beg, n)
	if r == rb.Qnil {
		return RArray{}, false
	}
	return a.st.array(r), true
}

// Plus returns a new Array of a's elements followed by o's. When either
// side is empty the result shares the other's storage.
func (a RArray) Plus(o RArray) RArray {
	return a.st.array(a.st.vm.AryPlus(a.raw(), o.raw()))
}

// Includes reports whether an element == v
func (a RArray) Includes(v RValue) (bool, error) {
	w, x := a.raw(), v.Value().v
	var ok bool
	err := a.st.call(func() { ok = a.st.vm.AryIncludes(w, x) })
	return ok, err
}

// Join converts the elements with to_s and joins them with sep
func (a RArray) Join(sep string) (string, error) {
	w := a.raw()
	var s string
	err := a.st.call(func() { s = a.st.vm.StrString(a.st.vm.AryJoin(w, sep)) })
	return s, err
}

// Assoc returns the first Array element whose first element == key, or nil
func (a RArray) Assoc(key RValue) (Value, error) {
	w, k := a.raw(), key.Value().v
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryAssoc(w, k) })
}

// Rassoc returns the first Array element whose second element == v, or nil
func (a RArray) Rassoc(v RValue) (Value, error) {
	w, x := a.raw(), v.Value().v
	return a.st.protect(func() rb.VALUE { return a.st.vm.AryRassoc(w, x) })
}

// Cmp compares elementwise with <=>. ok is false when an element pair is
// not comparable.
func (a RArray) Cmp(o RArray) (cmp int, ok bool, err error) {
	w, x := a.raw(), o.raw()
	r, err := a.st.protect(func() rb.VALUE { return a.st.vm.AryCmp(w, x) })
	if err != nil || !r.IsFixnum() {
		return 0, false, err
	}
	n := rb.Fix2Long(r.v)
	switch {
	case n < 0:
		return -1, true, nil
	case n > 0:
		return 1, true, nil
	}
	return 0, true, nil
}

// Equal is Array#==
func (a RArray) Equal(o RValue) (bool, error) {
	w, x := a.raw(), o.Value().v
	var eq bool
	err := a.st.call(func() { eq = a.st.vm.AryEqual(w, x) })
	return eq, err
}

// View calls fn with the elements in place. While fn runs any allocation,
// array write, collection, method call or thread switch panics, so the
// slice cannot be invalidated under fn. fn must not keep the slice.
func (a RArray) View(fn func(elems []Value)) {
	w := a.raw()
	a.st.vm.BeginView()
	defer a.st.vm.EndView()
	fn(asValues(a.st.vm.AryPtr(w)))
}

// UnsafeSlice returns the elements in place without copying.
//
// The slice aliases storage the VM owns. It is valid only until the next
// call that may allocate, write an array, collect, compact or switch
// threads, and nothing checks this. Prefer View or ToSlice.
func (a RArray) UnsafeSlice() []Value {
	return asValues(a.st.vm.AryPtr(a.raw()))
}

func asValues(ws []rb.VALUE) []Value {
	if len(ws) == 0 {
		return nil
	}
	return unsafe.Slice((*Value)(unsafe.Pointer(unsafe.SliceData(ws))), len(ws))
}
