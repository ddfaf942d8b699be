package crb

import (
	"testing"
)

func TestWrapFuncKeepsCaptures(t *testing.T) {
	st := newState(t)

	var p RProc
	_, err := st.Protect(func() (Value, error) {
		prefix := st.StrNew("hello, ")
		p = st.WrapFunc(func(st *State, self Value, args []Value) (Value, error) {
			s := st.StrNew(prefix.String())
			if err := s.Cat(args[0].String()); err != nil {
				return Nil, err
			}
			return s.Value(), nil
		}, prefix)
		return p.Value(), nil
	})
	ExpectNilError(t, err)

	Expect(t, p.IsHidden(), "wrapped function should be hidden")
	st.FullGC()
	caps := p.Captures()
	ExpectEql(t, len(caps), 1)
	Expect(t, !st.IsDead(caps[0]), "captured value should survive collection")

	v, err := p.Call(42)
	ExpectNilError(t, err)
	s, ok := st.AsString(v)
	Expect(t, ok, "call should return a String")
	ExpectEql(t, s.String(), "hello, 42")

	q, ok := st.AsProc(p)
	Expect(t, ok, "AsProc should accept a hidden wrapper")
	Expect(t, q.Value().Is(p), "AsProc should return the same object")
	_, ok = st.AsProc(st.Value(1))
	Expect(t, !ok, "AsProc should reject other values")
}

func TestProcNewIsVisible(t *testing.T) {
	st := newState(t)

	p := st.ProcNew(func(st *State, self Value, args []Value) (Value, error) {
		return st.Value(len(args)), nil
	})
	Expect(t, !p.IsHidden(), "ProcNew should reveal the wrapper")
	ExpectEql(t, st.ClassName(p), "Proc")

	v, err := p.Call(1, 2, 3)
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "3")

	failing := st.WrapFunc(func(st *State, self Value, args []Value) (Value, error) {
		return Nil, RangeError("out of range")
	})
	_, err = failing.Call()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "RangeError"})
}

func TestTypedArray(t *testing.T) {
	st := newState(t)

	ta, err := TypedArrayFrom(st, []int{1, 2, 3})
	ExpectNilError(t, err)
	Expect(t, ta.IsHidden(), "typed array should start hidden")
	ExpectNilError(t, ta.Push(4))
	ExpectEql(t, ta.Len(), 4)

	n, err := ta.Get(-1)
	ExpectNilError(t, err)
	ExpectEql(t, n, 4)
	_, err = ta.Get(4)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "IndexError"})

	last, ok, err := ta.Pop()
	ExpectNilError(t, err)
	Expect(t, ok && last == 4, "pop should return 4, got %d %v", last, ok)

	xs, err := ta.ToSlice()
	ExpectNilError(t, err)
	ExpectEql(t, xs, []int{1, 2, 3})

	a := ta.ToRArray()
	Expect(t, !a.IsHidden(), "ToRArray should reveal")
	ExpectEql(t, st.ClassName(a), "Array")

	empty := NewTypedArray[string](st)
	_, ok, err = empty.Pop()
	ExpectNilError(t, err)
	Expect(t, !ok, "pop on empty should report false")
}

func TestTypecheck(t *testing.T) {
	st := newState(t)

	mixed := st.Value([]any{1, "two"})
	a, _ := st.AsArray(mixed)
	_, err := Typecheck[int](a)
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "element 1: no implicit conversion of String into Integer (TypeError)")

	ints, _ := st.AsArray(st.Value([]int{5, 6}))
	ta, err := Typecheck[int](ints)
	ExpectNilError(t, err)
	Expect(t, ta.IsHidden(), "typechecked array should be hidden")
	Expect(t, !ints.IsHidden(), "source array stays visible")
	ExpectNilError(t, ta.Push(7))
	ExpectEql(t, ints.Len(), 2)
}
