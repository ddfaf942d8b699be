package crb

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Expect raises an error if condition is not met
func Expect(t *testing.T, condition bool, eformat string, args ...interface{}) {
	t.Helper()
	if !condition {
		t.Errorf(eformat, args...)
	}
}

// ExpectEql expects both arguments to be equal. It uses reflect.DeepEqual.
func ExpectEql(t *testing.T, v1, v2 interface{}) {
	t.Helper()
	Expect(t, reflect.DeepEqual(v1, v2), "Expected '%v' to equal '%v'", v1, v2)
}

// ExpectNil fails if there is an error
func ExpectNil(t *testing.T, i error, eformat string, args ...interface{}) {
	t.Helper()
	Expect(t, i == nil, eformat, args...)
}

// ExpectNilError fails if there is an error, printing it
func ExpectNilError(t *testing.T, i error) {
	t.Helper()
	Expect(t, i == nil, "Error: %v", i)
}

// ExpectErr fails if there is no error
func ExpectErr(t *testing.T, i error, eformat string, args ...interface{}) {
	t.Helper()
	Expect(t, i != nil, eformat, args...)
}

// ExpectErrIs fails unless errors.Is(err, target)
func ExpectErrIs(t *testing.T, err, target error) {
	t.Helper()
	Expect(t, errors.Is(err, target), "Expected error %v to match %v", err, target)
}

// ExpectPanic fails unless fn panics
func ExpectPanic(t *testing.T, fn func(), eformat string, args ...interface{}) {
	t.Helper()
	defer func() {
		t.Helper()
		Expect(t, recover() != nil, eformat, args...)
	}()
	fn()
}

// newState boots a state logging to the test and closes it at cleanup.
// Tests using it must not call t.Parallel: the state belongs to the test
// goroutine.
func newState(t *testing.T, opts ...Option) *State {
	t.Helper()
	l := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	st, err := New(append([]Option{WithLogger(l)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st
}

// dropped allocates with fn inside a protect boundary and returns the
// value unrooted
func dropped(t *testing.T, st *State, fn func() Value) Value {
	t.Helper()
	var v Value
	_, err := st.Protect(func() (Value, error) {
		v = fn()
		return Nil, nil
	})
	ExpectNilError(t, err)
	return v
}
