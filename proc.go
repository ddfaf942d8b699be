package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// closure is the payload of a Go function wrapped as a Ruby object. The
// values the Go function captured are listed in captures so mark can
// report them: the collector cannot see into Go closures.
type closure struct {
	st       *State
	fn       Func
	captures []Value
}

func (c *closure) Mark(m Marker) { m.MarkSlice(c.captures) }

func (c *closure) Memsize() int { return len(c.captures) * 8 }

// Call implements rb.Callable
func (c *closure) Call(vm *rb.VM, self rb.VALUE, args []rb.VALUE) rb.VALUE {
	return c.st.methodFunc(c.fn)(vm, self, args)
}

var closureType = NewDataType[closure]("crb/closure").FreeImmediately()

// RProc is a Go function wrapped as a Ruby object
type RProc struct{ RObject }

// WrapFunc wraps fn in a hidden object. Every Ruby value fn uses from its
// enclosing scope must be passed in captures; they stay alive as long as
// the wrapper does. Reveal turns the wrapper into a Proc.
func (st *State) WrapFunc(fn Func, captures ...RValue) RProc {
	c := &closure{st: st, fn: fn, captures: make([]Value, len(captures))}
	for i, v := range captures {
		c.captures[i] = v.Value()
	}
	return RProc{WrapHidden(st, closureType, c).RObject}
}

// ProcNew wraps fn as a Proc, see WrapFunc
func (st *State) ProcNew(fn Func, captures ...RValue) RProc {
	return st.WrapFunc(fn, captures...).Reveal()
}

// AsProc certifies v as a wrapped Go function, hidden or not
func (st *State) AsProc(v RValue) (RProc, bool) {
	t, ok := AsTypedData(st, v, closureType)
	if !ok {
		return RProc{}, false
	}
	return RProc{t.RObject}, true
}

// Reveal makes the wrapper a Proc visible to Ruby code
func (p RProc) Reveal() RProc {
	p.st.Reveal(p, p.st.ProcClass())
	return p
}

// Captures returns the values the wrapper keeps alive
func (p RProc) Captures() []Value {
	c := p.st.vm.DataGet(p.raw()).(*closure)
	return append([]Value(nil), c.captures...)
}

// Call calls the function with self nil. It works on hidden wrappers too.
func (p RProc) Call(args ...any) (Value, error) {
	w := p.raw()
	argv, err := p.st.values(args)
	if err != nil {
		return Nil, err
	}
	c := p.st.vm.DataGet(w).(*closure)
	return p.st.protect(func() rb.VALUE { return c.Call(p.st.vm, rb.Qnil, argv) })
}
