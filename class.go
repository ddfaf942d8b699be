package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// Func is a native method. A returned error is raised in Ruby; a zero
// Value return means nil.
type Func func(st *State, self Value, args []Value) (Value, error)

// RClass is a class or module
type RClass struct{ RObject }

func (c RClass) String() string { return c.Name() }

// Name returns the class name
func (c RClass) Name() string { return c.st.vm.ClassName(c.raw()) }

// Super returns the superclass, false for BasicObject and modules
func (c RClass) Super() (RClass, bool) {
	s := c.st.vm.ClassSuper(c.raw())
	if s == rb.Qnil {
		return RClass{}, false
	}
	return RClass{RObject{s, c.st}}, true
}

// IsModule reports whether c is a module
func (c RClass) IsModule() bool { return c.st.vm.BuiltinType(c.raw()) == rb.TModule }

// Inherits reports whether c is sup or inherits from it
func (c RClass) Inherits(sup RClass) bool {
	return c.st.vm.ClassInherited(c.raw(), sup.raw())
}

// DefineMethod adds a native method. arity -1 accepts any argument count.
func (c RClass) DefineMethod(name string, fn Func, arity int) {
	c.st.checkThread()
	c.st.vm.DefineMethod(c.raw(), name, c.st.methodFunc(fn), arity)
}

// UndefMethod removes a method defined directly on c
func (c RClass) UndefMethod(name string) {
	c.st.vm.UndefMethod(c.raw(), name)
}

// Include adds module m to the method lookup of c
func (c RClass) Include(m RClass) {
	c.st.vm.IncludeModule(c.raw(), m.raw())
}

// New allocates an instance and calls initialize
func (c RClass) New(args ...any) (Value, error) {
	return c.st.ObjNew(c, args...)
}

// AsClass certifies v as a class or module
func (st *State) AsClass(v RValue) (RClass, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RClass{}, false
	}
	st.checkLiveness(w)
	switch st.vm.BuiltinType(w) {
	case rb.TClass, rb.TModule:
		return RClass{RObject{w, st}}, true
	}
	return RClass{}, false
}

// ClassGet returns a top level class or module by name
func (st *State) ClassGet(name string) (RClass, bool) {
	c := st.vm.ClassGet(name)
	if c == rb.Qnil {
		return RClass{}, false
	}
	return RClass{RObject{c, st}}, true
}

// DefineClass defines a top level class, or returns it when it exists
// with the same superclass. A zero super means Object.
func (st *State) DefineClass(name string, super RClass) (RClass, error) {
	s := super.v
	v, err := st.protect(func() rb.VALUE { return st.vm.DefineClass(name, s) })
	if err != nil {
		return RClass{}, err
	}
	return RClass{RObject{v.v, st}}, nil
}

// DefineModule defines a top level module
func (st *State) DefineModule(name string) (RClass, error) {
	v, err := st.protect(func() rb.VALUE { return st.vm.DefineModule(name) })
	if err != nil {
		return RClass{}, err
	}
	return RClass{RObject{v.v, st}}, nil
}

// ObjNew allocates an instance of c and calls initialize with args
func (st *State) ObjNew(c RClass, args ...any) (Value, error) {
	k := c.raw()
	argv, err := st.values(args)
	if err != nil {
		return Nil, err
	}
	return st.protect(func() rb.VALUE { return st.vm.ClassNewInstance(k, argv...) })
}

func (st *State) methodFunc(fn Func) rb.MethodFunc {
	return func(vm *rb.VM, self rb.VALUE, args []rb.VALUE) rb.VALUE {
		argv := make([]Value, len(args))
		for i, a := range args {
			argv[i] = Value{a}
		}
		r, err := fn(st, Value{self}, argv)
		if err != nil {
			st.raise(err)
		}
		if r.IsNull() {
			return rb.Qnil
		}
		return r.v
	}
}

// Core classes

func (st *State) class(c rb.VALUE) RClass { return RClass{RObject{c, st}} }

// ObjectClass returns Object
func (st *State) ObjectClass() RClass { return st.class(st.vm.CObject()) }

// ArrayClass returns Array
func (st *State) ArrayClass() RClass { return st.class(st.vm.CArray()) }

// IntegerClass returns Integer
func (st *State) IntegerClass() RClass { return st.class(st.vm.CInteger()) }

// FloatClass returns Float
func (st *State) FloatClass() RClass { return st.class(st.vm.CFloat()) }

// StringClass returns String
func (st *State) StringClass() RClass { return st.class(st.vm.CString()) }

// ProcClass returns Proc
func (st *State) ProcClass() RClass { return st.class(st.vm.CProc()) }

// ThreadClass returns Thread
func (st *State) ThreadClass() RClass { return st.class(st.vm.CThread()) }

// FileClass returns File
func (st *State) FileClass() RClass { return st.class(st.vm.CFile()) }

// ExceptionClass returns Exception
func (st *State) ExceptionClass() RClass { return st.class(st.vm.EException()) }

// StandardErrorClass returns StandardError
func (st *State) StandardErrorClass() RClass { return st.class(st.vm.EStandardError()) }

// TypeErrorClass returns TypeError
func (st *State) TypeErrorClass() RClass { return st.class(st.vm.ETypeError()) }

// RangeErrorClass returns RangeError
func (st *State) RangeErrorClass() RClass { return st.class(st.vm.ERangeError()) }

// FrozenErrorClass returns FrozenError
func (st *State) FrozenErrorClass() RClass { return st.class(st.vm.EFrozenError()) }
