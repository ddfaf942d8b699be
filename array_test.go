package crb

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestArrayDupSharesUntilWrite(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []int{1, 2, 3, 4})
	d := a.Dup()
	Expect(t, a.SharedWith(d), "dup should share storage")
	Expect(t, d.IsShared(), "dup should be shared")

	ExpectNilError(t, d.Push(5))
	Expect(t, !a.SharedWith(d), "write should end sharing")
	ExpectEql(t, a.Len(), 4)
	ExpectEql(t, d.Len(), 5)

	xs, err := ToSlice[int](a)
	ExpectNilError(t, err)
	ExpectEql(t, xs, []int{1, 2, 3, 4})

	ExpectNilError(t, a.Store(0, st.Value(10)))
	ys, err := ToSlice[int](d)
	ExpectNilError(t, err)
	ExpectEql(t, ys, []int{1, 2, 3, 4, 5})
}

func TestArraySubseq(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []string{"a", "b", "c", "d"})
	s, ok := a.Subseq(1, 2)
	Expect(t, ok, "subseq in range")
	got, err := ToSlice[string](s)
	ExpectNilError(t, err)
	ExpectEql(t, got, []string{"b", "c"})

	ExpectNilError(t, a.Store(1, st.Value("B")))
	got, err = ToSlice[string](s)
	ExpectNilError(t, err)
	ExpectEql(t, got, []string{"b", "c"})

	_, ok = a.Subseq(10, 1)
	Expect(t, !ok, "subseq past the end should fail")
}

func TestArrayFromSeqBatches(t *testing.T) {
	st := newState(t, WithGCStress())

	const n = 300
	a := ArrayFromSeq(st, func(yield func(string) bool) {
		for i := range n {
			if !yield(fmt.Sprintf("item-%d", i)) {
				return
			}
		}
	})
	ExpectEql(t, a.Len(), n)
	for i, e := range a.All() {
		s, ok := st.AsString(e)
		if !ok {
			t.Fatalf("element %d is not a String", i)
		}
		ExpectEql(t, s.String(), fmt.Sprintf("item-%d", i))
	}
}

func TestArrayTryFromSeqStops(t *testing.T) {
	st := newState(t)

	boom := errors.New("source failed")
	calls := 0
	_, err := ArrayTryFromSeq(st, func(yield func(int, error) bool) {
		for i := range 1000 {
			calls++
			if i == 200 {
				yield(0, boom)
				return
			}
			if !yield(i, nil) {
				return
			}
		}
	})
	Expect(t, errors.Is(err, boom), "expected source error, got %v", err)
	ExpectEql(t, calls, 201)

	_, err = ArrayTryFromSeq(st, func(yield func(any, error) bool) {
		yield(1, nil)
		yield(make(chan int), nil)
	})
	ExpectErrIs(t, err, ErrConversion)
}

func TestArrayFrozen(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []int{1})
	a.Freeze()
	Expect(t, a.IsFrozen(), "array should be frozen")

	err := a.Push(2)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "FrozenError"})
	ExpectErrIs(t, a.Store(0, Nil), ErrException)
	ExpectErrIs(t, a.Clear(), ErrException)
	ExpectEql(t, a.Len(), 1)
}

func TestArrayViewForbidsAllocation(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []int{3, 1, 2})
	var seen []Value
	a.View(func(elems []Value) {
		seen = slices.Clone(elems)
	})
	ExpectEql(t, len(seen), 3)

	ExpectPanic(t, func() {
		a.View(func([]Value) { st.StrNew("allocates") })
	}, "allocating inside View should panic")

	ExpectPanic(t, func() {
		a.View(func([]Value) { st.FullGC() })
	}, "collecting inside View should panic")

	ExpectNilError(t, a.Sort())
	xs, err := ToSlice[int](a)
	ExpectNilError(t, err)
	ExpectEql(t, xs, []int{1, 2, 3})
}

func TestArrayToFixed(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []float64{1, 2.5})
	var two [2]float64
	ExpectNilError(t, ToFixed(a, two[:]))
	ExpectEql(t, two, [2]float64{1, 2.5})

	var three [3]float64
	ExpectErr(t, ToFixed(a, three[:]), "length mismatch should fail")
}

func TestArrayOps(t *testing.T) {
	st := newState(t)

	a := ArrayFromSlice(st, []int{1, 2, 3})
	b := ArrayFromSlice(st, []int{4})
	p := a.Plus(b)
	ExpectEql(t, p.Len(), 4)

	ok, err := p.Includes(st.Value(4))
	ExpectNilError(t, err)
	Expect(t, ok, "plus should include 4")

	s, err := p.Join("-")
	ExpectNilError(t, err)
	ExpectEql(t, s, "1-2-3-4")

	cmp, ok, err := a.Cmp(p)
	ExpectNilError(t, err)
	Expect(t, ok && cmp == -1, "[1,2,3] <=> [1,2,3,4] should be -1, got %d %v", cmp, ok)

	v, err := p.Pop()
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "4")

	ExpectNilError(t, p.Rotate(1))
	xs, err := ToSlice[int](p)
	ExpectNilError(t, err)
	ExpectEql(t, xs, []int{2, 3, 1})

	ExpectEql(t, p.Entry(-1).String(), "1")
	Expect(t, p.Entry(99).IsNil(), "out of range entry should be nil")
}
