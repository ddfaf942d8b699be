package crb

import (
	"errors"
	"testing"
)

func init() {
	Gem("test/greeter", func(st *State) error {
		c, err := st.DefineClass("Greeter", RClass{})
		if err != nil {
			return err
		}
		c.DefineMethodFunc("greet", func(name string) string { return "hi " + name })
		return nil
	})
	Gem("test/broken", func(st *State) error {
		return errors.New("broken gem")
	})
}

func TestRequire(t *testing.T) {
	st := newState(t)

	Expect(t, GemExists("test/greeter"), "gem should be registered")
	Expect(t, GemExists("print"), "print gem should be registered")

	loaded, err := st.Require("test/greeter")
	ExpectNilError(t, err)
	Expect(t, loaded, "first require should load")
	Expect(t, st.FeatureExists("test/greeter"), "feature should be recorded")

	loaded, err = st.Require("test/greeter")
	ExpectNilError(t, err)
	Expect(t, !loaded, "second require should be a no-op")

	c, ok := st.ClassGet("Greeter")
	Expect(t, ok, "gem should define Greeter")
	v, err := st.Funcall(c.NewInstance(), "greet", "bob")
	ExpectNilError(t, err)
	s, _ := st.AsString(v)
	ExpectEql(t, s.String(), "hi bob")

	_, err = st.Require("test/missing")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "LoadError"})

	_, err = st.Require("test/broken")
	ExpectErr(t, err, "failing gem should fail require")
	Expect(t, !st.FeatureExists("test/broken"), "failed gem is not recorded")
}

func TestGemDuplicatePanics(t *testing.T) {
	ExpectPanic(t, func() { Gem("print", nil) }, "duplicate registration should panic")
	ExpectPanic(t, func() { Gem("", nil) }, "empty name should panic")
}
