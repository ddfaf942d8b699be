package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// DataMarker is implemented by payloads holding Ruby values. Mark must
// report every one of them on every call.
type DataMarker interface {
	Mark(m Marker)
}

// DataCompactor is implemented by payloads that mark values movable and
// need to pick up their new addresses after compaction
type DataCompactor interface {
	Compact(c Compactor)
}

// DataSizer is implemented by payloads reporting their memory use
type DataSizer interface {
	Memsize() int
}

// DataFreer is implemented by payloads with cleanup to run when the
// object is collected
type DataFreer interface {
	Free()
}

// DataType describes Go payloads of type T wrapped in Ruby objects. The
// hooks come from the methods *T implements: DataMarker, DataCompactor,
// DataSizer and DataFreer.
type DataType[T any] struct {
	rt *rb.DataType
}

type dataTyper interface {
	descriptor() *rb.DataType
}

// NewDataType returns the descriptor for payloads of type T
func NewDataType[T any](name string) *DataType[T] {
	rt := &rb.DataType{Name: name}
	var p any = (*T)(nil)
	if _, ok := p.(DataMarker); ok {
		rt.Mark = func(vm *rb.VM, data any) { data.(DataMarker).Mark(Marker{vm}) }
	}
	if _, ok := p.(DataCompactor); ok {
		rt.Compact = func(vm *rb.VM, data any) { data.(DataCompactor).Compact(Compactor{vm}) }
	}
	if _, ok := p.(DataSizer); ok {
		rt.Size = func(data any) int { return data.(DataSizer).Memsize() }
	}
	if _, ok := p.(DataFreer); ok {
		rt.Free = func(data any) { data.(DataFreer).Free() }
	}
	return &DataType[T]{rt: rt}
}

// FreeImmediately runs Free while sweeping instead of after the
// collection
func (d *DataType[T]) FreeImmediately() *DataType[T] {
	d.rt.FreeImmediately = true
	return d
}

// Inherit makes objects of d pass type checks for parent
func (d *DataType[T]) Inherit(parent dataTyper) *DataType[T] {
	d.rt.Parent = parent.descriptor()
	return d
}

// Name returns the type name
func (d *DataType[T]) Name() string { return d.rt.Name }

func (d *DataType[T]) descriptor() *rb.DataType { return d.rt }

// DefineClass defines the class wrapped payloads get by default
func (d *DataType[T]) DefineClass(st *State, name string, super RClass) (RClass, error) {
	c, err := st.DefineClass(name, super)
	if err != nil {
		return RClass{}, err
	}
	st.Lock()
	st.classes[d.rt] = c.v
	st.Unlock()
	st.vm.GCRegisterMarkObject(c.v)
	return c, nil
}

// Class returns the class bound with DefineClass
func (d *DataType[T]) Class(st *State) (RClass, bool) {
	st.Lock()
	c, ok := st.classes[d.rt]
	st.Unlock()
	if !ok {
		return RClass{}, false
	}
	return st.class(c), true
}

// TypedData is an object wrapping a *T
type TypedData[T any] struct {
	RObject
	dt *DataType[T]
}

// Get returns the payload
func (t TypedData[T]) Get() *T { return t.st.vm.DataGet(t.raw()).(*T) }

// DataType returns the descriptor
func (t TypedData[T]) DataType() *DataType[T] { return t.dt }

// WrapData wraps data in an object of the class bound to d, or Object
func WrapData[T any](st *State, d *DataType[T], data *T) TypedData[T] {
	st.checkThread()
	k := st.vm.CObject()
	if c, ok := d.Class(st); ok {
		k = c.v
	}
	return TypedData[T]{RObject{st.vm.DataTypedObjectWrap(k, data, d.rt), st}, d}
}

// WrapDataClass wraps data in an object of class c
func WrapDataClass[T any](st *State, d *DataType[T], c RClass, data *T) TypedData[T] {
	st.checkThread()
	return TypedData[T]{RObject{st.vm.DataTypedObjectWrap(c.raw(), data, d.rt), st}, d}
}

// WrapHidden wraps data in an object with no class. Object enumeration
// does not see it and Ruby code cannot call it, but it is collected,
// marked and freed like any other object until Reveal gives it a class.
func WrapHidden[T any](st *State, d *DataType[T], data *T) TypedData[T] {
	st.checkThread()
	return TypedData[T]{RObject{st.vm.DataTypedObjectWrap(rb.Qnull, data, d.rt), st}, d}
}

// AsTypedData certifies v as wrapping a payload of d or of a type
// inheriting d
func AsTypedData[T any](st *State, v RValue, d *DataType[T]) (TypedData[T], bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return TypedData[T]{}, false
	}
	st.checkLiveness(w)
	if !st.vm.TypedDataIsKindOf(w, d.rt) {
		return TypedData[T]{}, false
	}
	if _, ok := st.vm.DataGet(w).(*T); !ok {
		return TypedData[T]{}, false
	}
	return TypedData[T]{RObject{w, st}, d}, true
}

// GetData returns the payload of v, or a conversion error naming the
// expected type
func GetData[T any](st *State, v RValue, d *DataType[T]) (*T, error) {
	t, ok := AsTypedData(st, v, d)
	if !ok {
		w := v.Value().v
		actual := st.convName(w)
		if !rb.SpecialConstP(w) && st.vm.TypedDataP(w) && st.vm.ObjHidden(w) {
			actual = st.vm.RTypedDataType(w).Name
		}
		return nil, TypeError("wrong argument type %s (expected %s)", actual, d.rt.Name)
	}
	return t.Get(), nil
}

// Reveal gives a hidden object class c. It is a one-way step: the object
// becomes an ordinary object and the binding offers no way back. Objects
// that already have a class keep it.
func (st *State) Reveal(v RValue, c RClass) Value {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return Value{w}
	}
	st.checkLiveness(w)
	return Value{st.vm.ObjReveal(w, c.raw())}
}
