package crb

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStringAndSymbol(t *testing.T) {
	st := newState(t)

	s := st.StrNew("abc")
	ExpectEql(t, s.Len(), 3)
	ExpectNilError(t, s.Cat("def"))
	ExpectEql(t, s.String(), "abcdef")

	sym := s.Intern()
	ExpectEql(t, sym.Name(), "abcdef")
	ExpectEql(t, sym.String(), ":abcdef")
	Expect(t, sym.Value().IsStaticSymbol(), "symbols are immediates")
	Expect(t, sym.Value().Is(st.Intern("abcdef")), "interning is stable")

	_, ok := st.AsSymbol(s)
	Expect(t, !ok, "a String is not a Symbol")

	s.Freeze()
	ExpectErrIs(t, s.Cat("x"), &Error{kind: KindException, class: "FrozenError"})
	ExpectEql(t, s.String(), "abcdef")
}

func TestFile(t *testing.T) {
	st := newState(t)

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := st.FileOpen(path, os.O_CREATE|os.O_WRONLY, 0o644)
	ExpectNilError(t, err)
	ExpectEql(t, f.Path(), path)
	ExpectEql(t, st.ClassName(f), "File")

	_, err = f.File().WriteString("data")
	ExpectNilError(t, err)
	ExpectNilError(t, f.Close())
	Expect(t, f.IsClosed(), "file should be closed")
	Expect(t, f.File() == nil, "closed file has no *os.File")

	b, err := os.ReadFile(path)
	ExpectNilError(t, err)
	ExpectEql(t, string(b), "data")

	_, err = st.FileOpen(filepath.Join(t.TempDir(), "missing", "x"), os.O_RDONLY, 0)
	ExpectErrIs(t, err, ErrException)

	r, err := os.Open(path)
	ExpectNilError(t, err)
	v := st.Value(r)
	rf, ok := st.AsFile(v)
	Expect(t, ok, "*os.File should become a File")
	Expect(t, rf.File() == r, "File should wrap the same *os.File")
	var back *os.File
	ExpectNilError(t, st.Scan(v, &back))
	Expect(t, back == r, "Scan should return the wrapped file")
	ExpectNilError(t, rf.Close())
}

func TestFileClosedOnCollect(t *testing.T) {
	st := newState(t)

	path := filepath.Join(t.TempDir(), "gc.txt")
	r, err := os.Create(path)
	ExpectNilError(t, err)
	dropped(t, st, func() Value { return st.FileFrom(r).Value() })
	st.FullGC()
	_, err = r.WriteString("late")
	ExpectErr(t, err, "collected File should close its *os.File")
}
