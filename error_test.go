package crb

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	ExpectEql(t, TypeError("no implicit conversion of %s into %s", "String", "Integer").Error(),
		"no implicit conversion of String into Integer (TypeError)")
	ExpectEql(t, NewError("KeyError", "key not found").Error(), "key not found (KeyError)")
	ExpectEql(t, ErrRange.Error(), "range error")
	ExpectEql(t, (&Error{kind: KindJump, tag: 8}).Error(), "thread killed")
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", RangeError("too big"))
	ExpectErrIs(t, err, ErrRange)
	Expect(t, !errors.Is(err, ErrConversion), "range error is not a conversion error")
	ExpectErrIs(t, err, &Error{kind: KindRange, class: "RangeError"})
	Expect(t, !errors.Is(err, &Error{kind: KindRange, class: "FloatDomainError"}), "class should be compared")

	Expect(t, errors.Is(TypeError("x"), ErrConversion), "TypeError is a conversion error")
	Expect(t, errors.Is(ArgumentError("x"), ErrException), "ArgumentError is an exception")
}

func TestProtectCatchesRaise(t *testing.T) {
	st := newState(t)

	c, err := st.DefineClass("Raiser", RClass{})
	ExpectNilError(t, err)
	c.DefineMethod("go", func(st *State, self Value, args []Value) (Value, error) {
		return Nil, NewError("KeyError", "missing %s", "k")
	}, 0)
	c.DefineMethod("custom", func(st *State, self Value, args []Value) (Value, error) {
		return Nil, NewError("not a class", "odd")
	}, 0)
	c.DefineMethod("stacked", func(st *State, self Value, args []Value) (Value, error) {
		_, err := st.Funcall(self, "go")
		return Nil, err
	}, 0)
	obj := c.NewInstance()

	_, err = st.Funcall(obj, "go")
	var e *Error
	Expect(t, errors.As(err, &e), "expected *Error, got %T", err)
	ExpectEql(t, e.ClassName(), "KeyError")
	ExpectEql(t, e.Message(), "missing k")
	ExpectEql(t, e.Kind(), KindException)

	_, err = st.Funcall(obj, "custom")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "StandardError"})

	_, err = st.Funcall(obj, "stacked")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "KeyError"})

	v, err := st.Protect(func() (Value, error) {
		return st.Funcall(obj, "go")
	})
	Expect(t, v.IsNil(), "failed Protect returns nil")
	ExpectErrIs(t, err, ErrException)

	_, err = st.Protect(func() (Value, error) { return Nil, errors.New("go side") })
	ExpectEql(t, err.Error(), "go side")
}

func TestExcNew(t *testing.T) {
	st := newState(t)

	exc, err := st.ExcNew("ArgumentError", "bad")
	ExpectNilError(t, err)
	ExpectEql(t, st.ClassName(exc), "ArgumentError")
	msg, err := st.Funcall(exc, "message")
	ExpectNilError(t, err)
	s, _ := st.AsString(msg)
	ExpectEql(t, s.String(), "bad")
}
