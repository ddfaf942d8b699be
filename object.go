package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// RObject is a heap value. It is the base of every heap view: the view was
// certified when it was made and is not re-checked afterwards, except by
// the debug liveness check.
type RObject struct {
	v  rb.VALUE
	st *State
}

// Value implements RValue
func (o RObject) Value() Value { return Value{o.v} }

// State returns the owning state
func (o RObject) State() *State { return o.st }

// raw returns the value word after the debug liveness check
func (o RObject) raw() rb.VALUE {
	o.st.checkLiveness(o.v)
	return o.v
}

// Type returns the type code
func (o RObject) Type() int { return o.st.vm.BuiltinType(o.raw()) }

// Flags returns the raw flag word
func (o RObject) Flags() uint64 { return o.st.vm.Flags(o.raw()) }

// IsFrozen reports whether the object rejects mutation
func (o RObject) IsFrozen() bool { return o.st.vm.ObjFrozen(o.raw()) }

// Freeze freezes the object
func (o RObject) Freeze() { o.st.vm.ObjFreeze(o.raw()) }

// IsHidden reports whether the object has no class
func (o RObject) IsHidden() bool { return o.st.vm.ObjHidden(o.raw()) }

// Class returns the class; hidden objects have none
func (o RObject) Class() (RClass, bool) { return o.st.ClassOf(o) }

// Inspect calls inspect
func (o RObject) Inspect() (string, error) { return o.st.Inspect(o) }

// IvarGet reads an instance variable; name includes the @
func (o RObject) IvarGet(name string) Value {
	w := o.raw()
	return Value{o.st.vm.IvarGet(w, o.st.vm.Intern(name))}
}

// IvarDefined reports whether an instance variable is set
func (o RObject) IvarDefined(name string) bool {
	w := o.raw()
	return o.st.vm.IvarDefined(w, o.st.vm.Intern(name))
}

// IvarSet writes an instance variable. Frozen objects refuse.
func (o RObject) IvarSet(name string, v RValue) error {
	w, val := o.raw(), v.Value().v
	return o.st.call(func() {
		o.st.vm.IvarSet(w, o.st.vm.Intern(name), val)
	})
}

// IvarNames lists instance variable names in definition order
func (o RObject) IvarNames() []string {
	ids := o.st.vm.IvarNames(o.raw())
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = o.st.vm.IDName(id)
	}
	return names
}

// Funcall calls a method on the object
func (o RObject) Funcall(name string, args ...any) (Value, error) {
	return o.st.Funcall(o, name, args...)
}

// RespondTo reports whether the object has method name
func (o RObject) RespondTo(name string) bool {
	return o.st.RespondTo(o, name)
}

// AsObject certifies v as a plain T_OBJECT
func (st *State) AsObject(v RValue) (RObject, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RObject{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TObject {
		return RObject{}, false
	}
	return RObject{w, st}, true
}

// Heap certifies v as any heap object
func (st *State) Heap(v RValue) (RObject, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RObject{}, false
	}
	st.checkLiveness(w)
	return RObject{w, st}, true
}

// Funcall calls method name on recv. Arguments go through Value.
func (st *State) Funcall(recv RValue, name string, args ...any) (Value, error) {
	r := recv.Value().v
	st.checkLiveness(r)
	argv, err := st.values(args)
	if err != nil {
		return Nil, err
	}
	return st.protect(func() rb.VALUE {
		return st.vm.Funcall(r, st.vm.Intern(name), argv...)
	})
}

// RespondTo reports whether v has a method name
func (st *State) RespondTo(v RValue, name string) bool {
	w := v.Value().v
	st.checkLiveness(w)
	return st.vm.RespondTo(w, st.vm.Intern(name))
}

// Inspect calls inspect on v
func (st *State) Inspect(v RValue) (string, error) {
	w := v.Value().v
	st.checkLiveness(w)
	var s string
	err := st.call(func() { s = st.vm.Inspect(w) })
	return s, err
}

// ToS calls to_s on v
func (st *State) ToS(v RValue) (string, error) {
	w := v.Value().v
	st.checkLiveness(w)
	var s string
	err := st.call(func() { s = st.vm.ObjAsString(w) })
	return s, err
}

// Equal is Ruby ==
func (st *State) Equal(a, b RValue) (bool, error) {
	x, y := a.Value().v, b.Value().v
	st.checkLiveness(x)
	st.checkLiveness(y)
	var eq bool
	err := st.call(func() { eq = st.vm.Equal(x, y) })
	return eq, err
}

// Freeze freezes v; immediates are frozen already
func (st *State) Freeze(v RValue) Value {
	w := v.Value().v
	st.checkLiveness(w)
	return Value{st.vm.ObjFreeze(w)}
}

func (st *State) values(args []any) ([]rb.VALUE, error) {
	if len(args) == 0 {
		return nil, nil
	}
	argv := make([]rb.VALUE, len(args))
	for i, a := range args {
		v, err := st.TryValue(a)
		if err != nil {
			return nil, err
		}
		argv[i] = v.v
	}
	return argv, nil
}
