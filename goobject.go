package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// Classname returns the class name, "" for hidden objects
func (o RObject) Classname() string { return o.st.vm.ObjClassname(o.raw()) }

// IsKindOf reports whether o is an instance of c or a subclass
func (o RObject) IsKindOf(c RClass) bool { return o.st.vm.ObjIsKindOf(o.raw(), c.raw()) }

// IsInstanceOf reports whether the class of o is exactly c
func (o RObject) IsInstanceOf(c RClass) bool { return o.st.vm.ObjIsInstanceOf(o.raw(), c.raw()) }

// ID returns the object's address, stable until compaction moves it
func (o RObject) ID() uint64 { return uint64(o.raw()) }

// Call is Funcall that panics on error
func (o RObject) Call(name string, args ...any) Value {
	v, err := o.Funcall(name, args...)
	if err != nil {
		panic(err)
	}
	return v
}

// Data returns the Go payload of a data object, nil for other objects
func (o RObject) Data() any {
	w := o.raw()
	if o.st.vm.BuiltinType(w) != rb.TData {
		return nil
	}
	return o.st.vm.DataGet(w)
}

// String calls to_s, falling back to the class name on error
func (o RObject) String() string {
	s, err := o.st.ToS(o)
	if err != nil {
		return "#<" + o.Classname() + ">"
	}
	return s
}

// Int converts the object with to_int
func (o RObject) Int() (int, error) {
	var n int
	err := o.st.Scan(o, &n)
	return n, err
}

// Float64 converts a numeric object
func (o RObject) Float64() (float64, error) {
	var f float64
	err := o.st.Scan(o, &f)
	return f, err
}
