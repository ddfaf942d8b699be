package crb

import (
	"testing"
)

func TestValueDiscrimination(t *testing.T) {
	st := newState(t)

	cases := []struct {
		name string
		v    Value
		typ  int
		imm  bool
	}{
		{"nil", Nil, TNil, true},
		{"true", True, TTrue, true},
		{"false", False, TFalse, true},
		{"fixnum", st.Value(-3), TFixnum, true},
		{"flonum", st.Value(0.5), TFloat, true},
		{"symbol", st.Intern("sym").Value(), TSymbol, true},
		{"string", st.Value("s"), TString, false},
		{"array", st.Value([]int{}), TArray, false},
		{"bignum", st.IntegerFromInt64(FixnumMax + 1).Value(), TBignum, false},
		{"heap float", st.Value(1e300), TFloat, false},
	}
	for _, c := range cases {
		ExpectEql(t, st.Type(c.v), c.typ)
		Expect(t, c.v.IsHeap() != c.imm, "%s: heap/immediate mismatch", c.name)
	}

	Expect(t, Value{}.IsNull(), "zero Value is null")
	Expect(t, Value{}.IsSpecialConst() && !Value{}.IsImmediate(), "null is special but not immediate")
	Expect(t, !Nil.IsTrue() && !False.IsTrue() && st.Value(0).IsTrue(), "Ruby truthiness")
	Expect(t, Undef.IsUndef(), "undef")
	ExpectEql(t, Nil.String(), "nil")
	ExpectEql(t, st.Value(12).String(), "12")
	ExpectEql(t, TypeName(TArray), "T_ARRAY")
}

func TestViews(t *testing.T) {
	st := newState(t)

	_, ok := st.AsArray(st.Value("s"))
	Expect(t, !ok, "String is not an Array")
	_, ok = st.AsInteger(st.Value(1.0))
	Expect(t, !ok, "Float is not an Integer")
	_, ok = st.AsFixnum(st.IntegerFromInt64(FixnumMax + 1))
	Expect(t, !ok, "bignum is not a fixnum")
	_, ok = st.AsFloat(st.Value(1))
	Expect(t, !ok, "Integer is not a Float")
	_, ok = st.AsClass(st.Value(1))
	Expect(t, !ok, "Integer is not a class")
	c, ok := st.AsClass(st.ArrayClass())
	Expect(t, ok && c.Name() == "Array", "Array class view")
	_, ok = st.AsObject(st.Value("s"))
	Expect(t, !ok, "String is not a plain object")
	_, ok = st.AsThread(st.Value(1))
	Expect(t, !ok, "Integer is not a Thread")
	th, ok := st.AsThread(st.ThreadMain())
	Expect(t, ok && th.IsMain(), "main thread view")
}

func TestObjectBasics(t *testing.T) {
	st := newState(t)

	c, err := st.DefineClass("Point", RClass{})
	ExpectNilError(t, err)
	v := c.NewInstance()
	o, ok := st.AsObject(v)
	Expect(t, ok, "instance should be a plain object")
	ExpectEql(t, o.Classname(), "Point")
	Expect(t, o.IsInstanceOf(c) && o.IsKindOf(st.ObjectClass()), "class relations")

	ExpectNilError(t, o.IvarSet("@x", st.Value(1)))
	ExpectNilError(t, o.IvarSet("@y", st.Value(2)))
	ExpectEql(t, o.IvarNames(), []string{"@x", "@y"})
	ExpectEql(t, o.IvarGet("@x").String(), "1")
	Expect(t, !o.IvarDefined("@z"), "@z is unset")

	o.Freeze()
	ExpectErrIs(t, o.IvarSet("@x", Nil), &Error{kind: KindException, class: "FrozenError"})
	Expect(t, st.IsFrozen(st.Value(5)), "immediates are frozen")

	eq, err := st.Equal(st.Value("same"), st.Value("same"))
	ExpectNilError(t, err)
	Expect(t, eq, "equal strings should compare equal")

	Expect(t, st.RespondTo(v, "inspect"), "objects respond to inspect")
	ExpectPanic(t, func() { o.Call("no_such_method") }, "Call should panic on error")
	Expect(t, o.Data() == nil, "plain objects carry no payload")

	_, ok = st.Heap(st.Value(7))
	Expect(t, !ok, "immediates have no heap view")
}
