package crb

import (
	"bytes"
	"errors"
	"testing"
)

type counter struct {
	Name string
	n    int
}

func newCounter(name string, start int) (*counter, error) {
	if start < 0 {
		return nil, ArgumentError("negative start %d", start)
	}
	return &counter{Name: name, n: start}, nil
}

func (c *counter) Incr(by int) int { c.n += by; return c.n }

func (c *counter) IsZero() bool { return c.n == 0 }

func (c *counter) ResetBang() { c.n = 0 }

func (c *counter) Sum(xs ...int) int {
	for _, x := range xs {
		c.n += x
	}
	return c.n
}

func (c *counter) Fail() error { return errors.New("counter failed") }

func TestDefineGoClass(t *testing.T) {
	st := newState(t)

	c, dt, err := DefineGoClass[counter](st, "Counter", newCounter)
	ExpectNilError(t, err)
	ExpectEql(t, c.Name(), "Counter")
	for _, m := range []string{"incr", "is_zero", "zero?", "reset_bang", "reset!", "sum", "name", "name="} {
		Expect(t, c.MethodDefined(m), "Counter should define %s", m)
	}
	Expect(t, !c.MethodDefined("n"), "unexported fields get no accessor")

	obj := c.NewInstance("hits", 2)
	v, err := st.Funcall(obj, "incr", 3)
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "5")

	v, err = st.Funcall(obj, "zero?")
	ExpectNilError(t, err)
	ExpectEql(t, v, False)

	_, err = st.Funcall(obj, "reset!")
	ExpectNilError(t, err)
	v, err = st.Funcall(obj, "zero?")
	ExpectNilError(t, err)
	ExpectEql(t, v, True)

	v, err = st.Funcall(obj, "sum", 1, 2, 3)
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "6")

	_, err = st.Funcall(obj, "name=", "misses")
	ExpectNilError(t, err)
	p, err := GetData(st, obj, dt)
	ExpectNilError(t, err)
	ExpectEql(t, p.Name, "misses")
	ExpectEql(t, p.n, 6)

	_, err = st.Funcall(obj, "fail")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "RuntimeError"})

	_, err = st.Funcall(obj, "incr", "three")
	ExpectErrIs(t, err, &Error{kind: KindException, class: "TypeError"})

	_, err = c.New("x", -1)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ArgumentError"})
}

func TestDefineGoClassBadConstructor(t *testing.T) {
	st := newState(t)

	_, _, err := DefineGoClass[counter](st, "BadCounter", func() int { return 0 })
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ArgumentError"})
}

func TestDefineMethodFunc(t *testing.T) {
	st := newState(t)

	c, err := st.DefineClass("Calc", RClass{})
	ExpectNilError(t, err)
	c.DefineMethodFunc("add", func(a, b int) int { return a + b })
	c.DefineMethodFunc("join", func(sep string, parts ...string) string {
		var buf bytes.Buffer
		for i, p := range parts {
			if i > 0 {
				buf.WriteString(sep)
			}
			buf.WriteString(p)
		}
		return buf.String()
	})

	obj := c.NewInstance()
	v, err := st.Funcall(obj, "add", 2, 3)
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "5")

	v, err = st.Funcall(obj, "join", "-", "a", "b")
	ExpectNilError(t, err)
	s, _ := st.AsString(v)
	ExpectEql(t, s.String(), "a-b")

	_, err = st.Funcall(obj, "add", 1)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ArgumentError"})
	Expect(t, c.Errorf("calc failed").ClassName() == "Calc", "Errorf should name the class")
}

func TestArgs(t *testing.T) {
	st := newState(t)

	args := Args{st.Value(1), Nil, st.Value("x")}
	ExpectEql(t, args.Len(), 3)
	ExpectEql(t, args.Item(-1), args[2])
	Expect(t, args.Item(5).IsNil(), "missing item should be nil")
	ExpectEql(t, args.ItemDef(1, st.Value(9)).String(), "9")

	var n int
	var s string
	var opt float64 = 7
	ExpectNilError(t, args[:1].Scan(st, 1, &n, &opt))
	ExpectEql(t, n, 1)
	ExpectEql(t, opt, 7.0)

	err := args.Scan(st, 1, &n, &s)
	ExpectErr(t, err, "too many arguments should fail")
	ExpectEql(t, err.Error(), "wrong number of arguments (given 3, expected 1..2) (ArgumentError)")
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Incr":      "incr",
		"IsZero":    "is_zero",
		"HTTPProxy": "http_proxy",
		"ToJSON":    "to_json",
		"ResetBang": "reset_bang",
	} {
		ExpectEql(t, SnakeCase(in), want)
	}
	ExpectEql(t, CamelCase("reset_bang"), "ResetBang")
	ExpectEql(t, CamelCase("http_proxy"), "HttpProxy")
}

func TestPrintMethods(t *testing.T) {
	st := newState(t)

	var buf bytes.Buffer
	st.DefinePrintMethods(&buf)
	self := st.StrNew("self")

	_, err := st.Funcall(self, "puts", 1, "two\n")
	ExpectNilError(t, err)
	_, err = st.Funcall(self, "print", "a", "b")
	ExpectNilError(t, err)
	v, err := st.Funcall(self, "p", "q")
	ExpectNilError(t, err)
	s, _ := st.AsString(v)
	ExpectEql(t, s.String(), "q")

	ExpectEql(t, buf.String(), "1\ntwo\nab\"q\"\n")
}
