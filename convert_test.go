package crb

import (
	"errors"
	"math/big"
	"testing"
)

type point struct{ X, Y int }

func (p point) RubyValue(st *State) (Value, error) {
	return st.TryValue([]int{p.X, p.Y})
}

func (p *point) ScanValue(st *State, v Value) error {
	var xy [2]int
	if err := st.Scan(v, &xy); err != nil {
		return err
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

func TestTryValueScalars(t *testing.T) {
	st := newState(t)

	ExpectEql(t, st.Value(nil), Nil)
	ExpectEql(t, st.Value(true), True)
	ExpectEql(t, st.Value(false), False)
	Expect(t, st.Value(7).IsFixnum(), "int should become a fixnum")
	Expect(t, st.Value(1.25).IsFlonum(), "float64 should become a flonum")

	s, ok := st.AsString(st.Value("héllo"))
	Expect(t, ok, "string should become a String")
	ExpectEql(t, s.String(), "héllo")

	b, ok := st.AsString(st.Value([]byte{0, 1, 2}))
	Expect(t, ok, "[]byte should become a String")
	ExpectEql(t, b.Bytes(), []byte{0, 1, 2})

	x := new(big.Int).Lsh(big.NewInt(3), 100)
	i, ok := st.AsBignum(st.Value(x))
	Expect(t, ok, "*big.Int out of fixnum range should become a bignum")
	ExpectEql(t, i.Big(), x)
	Expect(t, st.Value(big.NewInt(5)).IsFixnum(), "small *big.Int should be canonical")

	_, err := st.TryValue(make(chan int))
	ExpectErrIs(t, err, ErrConversion)
	ExpectPanic(t, func() { st.Value(struct{}{}) }, "Value should panic for unsupported types")
}

func TestTryValueCollections(t *testing.T) {
	st := newState(t)

	v := st.Value([]any{1, "two", []int{3}, nil})
	a, ok := st.AsArray(v)
	Expect(t, ok, "slice should become an Array")
	ExpectEql(t, a.Len(), 4)
	s, err := st.Inspect(a)
	ExpectNilError(t, err)
	ExpectEql(t, s, `[1, "two", [3], nil]`)

	pv := st.Value(point{3, 4})
	var p point
	ExpectNilError(t, st.Scan(pv, &p))
	ExpectEql(t, p, point{3, 4})

	n := 9
	Expect(t, st.Value(&n).IsFixnum(), "pointers should be followed")
	var np *int
	ExpectEql(t, st.Value(np), Nil)
}

func TestTryValueError(t *testing.T) {
	st := newState(t)

	exc := st.Value(errors.New("plain go error"))
	ExpectEql(t, st.ClassName(exc), "RuntimeError")

	exc = st.Value(ArgumentError("bad %d", 1))
	ExpectEql(t, st.ClassName(exc), "ArgumentError")
	msg, err := st.Funcall(exc, "message")
	ExpectNilError(t, err)
	ms, ok := st.AsString(msg)
	Expect(t, ok, "message should be a String")
	ExpectEql(t, ms.String(), "bad 1")
}

func TestScanIntegers(t *testing.T) {
	st := newState(t)

	n, err := TryConvert[int64](st, st.Value(12))
	ExpectNilError(t, err)
	ExpectEql(t, n, int64(12))

	n, err = TryConvert[int64](st, st.Value(3.9))
	ExpectNilError(t, err)
	ExpectEql(t, n, int64(3))

	_, err = TryConvert[int8](st, st.Value(300))
	ExpectErrIs(t, err, ErrRange)

	_, err = TryConvert[uint32](st, st.Value(-1))
	ExpectErrIs(t, err, ErrRange)

	_, err = TryConvert[int](st, st.Value("12"))
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "no implicit conversion of String into Integer (TypeError)")

	_, err = TryConvert[int](st, Nil)
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "no implicit conversion from nil to integer (TypeError)")
}

func TestTryIntegerRejectsFloat(t *testing.T) {
	st := newState(t)

	_, err := TryConvert[Integer](st, st.Value(1.5))
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "no implicit conversion of Float into Integer (TypeError)")
}

func TestTryIntegerToInt(t *testing.T) {
	st := newState(t)

	c, err := st.DefineClass("Meters", st.ObjectClass())
	ExpectNilError(t, err)
	c.DefineMethod("to_int", func(st *State, self Value, args []Value) (Value, error) {
		return st.Value(100), nil
	}, 0)
	m, err := c.New()
	ExpectNilError(t, err)

	i, err := st.TryInteger(m)
	ExpectNilError(t, err)
	ExpectEql(t, i.String(), "100")

	bad, err := st.DefineClass("Broken", st.ObjectClass())
	ExpectNilError(t, err)
	bad.DefineMethod("to_int", func(st *State, self Value, args []Value) (Value, error) {
		return Nil, RuntimeError("to_int exploded")
	}, 0)
	b, err := bad.New()
	ExpectNilError(t, err)

	_, err = TryConvert[int](st, b)
	ExpectErrIs(t, err, ErrException)
	var e *Error
	Expect(t, errors.As(err, &e), "expected *Error, got %T", err)
	ExpectEql(t, e.ClassName(), "RuntimeError")
	ExpectEql(t, e.Message(), "to_int exploded")
	_, ok := e.Exception()
	Expect(t, ok, "caught exception should carry the exception object")

	liar, err := st.DefineClass("Liar", st.ObjectClass())
	ExpectNilError(t, err)
	liar.DefineMethod("to_int", func(st *State, self Value, args []Value) (Value, error) {
		return st.Value("nope"), nil
	}, 0)
	l, err := liar.New()
	ExpectNilError(t, err)
	_, err = st.TryInteger(l)
	ExpectErrIs(t, err, ErrConversion)
	ExpectEql(t, err.Error(), "can't convert Liar to Integer (Liar#to_int gives String) (TypeError)")
}

func TestScanOther(t *testing.T) {
	st := newState(t)

	var f float64
	ExpectNilError(t, st.Scan(st.Value(2), &f))
	ExpectEql(t, f, 2.0)

	var s string
	ExpectNilError(t, st.Scan(st.Intern("name"), &s))
	ExpectEql(t, s, "name")

	var truthy bool
	ExpectNilError(t, st.Scan(st.Value(0), &truthy))
	Expect(t, truthy, "0 is truthy in Ruby")

	var xs []int
	ExpectNilError(t, st.Scan(st.Value([]int{1, 2, 3}), &xs))
	ExpectEql(t, xs, []int{1, 2, 3})

	var pair [2]string
	err := st.Scan(st.Value([]string{"a"}), &pair)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ArgumentError"})

	var x *big.Int
	ExpectNilError(t, st.Scan(st.Value(int64(FixnumMax)+1), &x))
	ExpectEql(t, x.String(), "4611686018427387904")

	var any1 any
	ExpectNilError(t, st.Scan(st.Value("s"), &any1))
	_, isValue := any1.(Value)
	Expect(t, isValue, "*any should receive a Value, got %#v", any1)

	err = st.Scan(st.Value(1), 5)
	ExpectErr(t, err, "non-pointer destination should fail")
}
