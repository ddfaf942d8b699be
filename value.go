package crb

import (
	"fmt"

	"github.com/oruby/crb/internal/rb"
)

// Ruby value types
const (
	TNone   = rb.TNone
	TObject = rb.TObject
	TClass  = rb.TClass
	TModule = rb.TModule
	TFloat  = rb.TFloat
	TString = rb.TString
	TRegexp = rb.TRegexp
	TArray  = rb.TArray
	THash   = rb.THash
	TStruct = rb.TStruct
	TBignum = rb.TBignum
	TFile   = rb.TFile
	TData   = rb.TData
	TMatch  = rb.TMatch
	TNil    = rb.TNil
	TTrue   = rb.TTrue
	TFalse  = rb.TFalse
	TSymbol = rb.TSymbol
	TFixnum = rb.TFixnum
	TUndef  = rb.TUndef
	TIMemo  = rb.TIMemo
	TNode   = rb.TNode
	TIClass = rb.TIClass
	TZombie = rb.TZombie
	TMoved  = rb.TMoved
)

// FixnumMax and FixnumMin bound the immediate Integer encoding
const (
	FixnumMax = rb.FixnumMax
	FixnumMin = rb.FixnumMin
)

// TypeName returns the name of a type code, "T_ARRAY" for TArray
func TypeName(t int) string {
	if n, ok := rb.TypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("T_UNKNOWN(%#x)", t)
}

// RValue is anything holding a Ruby value
type RValue interface {
	Value() Value
}

// Value is a Ruby value word: an immediate or the address of a heap slot.
// The zero Value is never a valid Ruby value.
//
// A Value does not keep its object alive. Heap values stay valid only while
// reachable from a Ruby root: the frame that created them, an instance
// variable, a registered address or a Box.
type Value struct{ v rb.VALUE }

// Special constants
var (
	Nil   = Value{rb.Qnil}
	True  = Value{rb.Qtrue}
	False = Value{rb.Qfalse}
	Undef = Value{rb.Qundef}
)

// Value implements RValue
func (v Value) Value() Value { return v }

// Raw returns the value word
func (v Value) Raw() uint64 { return uint64(v.v) }

// IsNull reports whether v is the zero Value
func (v Value) IsNull() bool { return v.v == rb.Qnull }

// IsNil checks for nil
func (v Value) IsNil() bool { return rb.NilP(v.v) }

// IsTrue is Ruby truthiness: everything but nil and false
func (v Value) IsTrue() bool { return rb.RTest(v.v) }

// IsFalse checks for the false constant
func (v Value) IsFalse() bool { return v.v == rb.Qfalse }

// IsUndef checks for the undef marker
func (v Value) IsUndef() bool { return v.v == rb.Qundef }

// IsFixnum checks for an immediate Integer
func (v Value) IsFixnum() bool { return rb.FixnumP(v.v) }

// IsFlonum checks for an immediate Float
func (v Value) IsFlonum() bool { return rb.FlonumP(v.v) }

// IsStaticSymbol checks for an immediate Symbol
func (v Value) IsStaticSymbol() bool { return rb.StaticSymP(v.v) }

// IsImmediate reports whether v carries its value inline
func (v Value) IsImmediate() bool { return rb.ImmediateP(v.v) }

// IsSpecialConst reports whether v is an immediate or the zero Value
func (v Value) IsSpecialConst() bool { return rb.SpecialConstP(v.v) }

// IsHeap reports whether v refers to a heap slot
func (v Value) IsHeap() bool { return !rb.SpecialConstP(v.v) }

// Is compares value words. It is Ruby's equal?.
func (v Value) Is(o RValue) bool { return v.v == o.Value().v }

// String implements fmt.Stringer without touching the heap
func (v Value) String() string {
	switch {
	case v.v == rb.Qnull:
		return "Value(null)"
	case v.v == rb.Qnil:
		return "nil"
	case v.v == rb.Qtrue:
		return "true"
	case v.v == rb.Qfalse:
		return "false"
	case v.v == rb.Qundef:
		return "undef"
	case rb.FixnumP(v.v):
		return fmt.Sprint(rb.Fix2Long(v.v))
	}
	return fmt.Sprintf("Value(%#x)", uint64(v.v))
}

// BoolValue returns true or false
func BoolValue(b bool) Value { return Value{rb.Bool(b)} }

// Type returns the type code of v. Immediates are decoded from their bits;
// heap values cost one type query.
func (st *State) Type(v RValue) int {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return st.vm.BuiltinType(w)
	}
	st.checkLiveness(w)
	return st.vm.BuiltinType(w)
}

// ClassOf returns the class of v. Hidden objects have none.
func (st *State) ClassOf(v RValue) (RClass, bool) {
	w := v.Value().v
	st.checkLiveness(w)
	c := st.vm.ClassOf(w)
	if c == rb.Qnull {
		return RClass{}, false
	}
	return RClass{RObject{c, st}}, true
}

// ClassName returns the class name of v, "" for hidden objects
func (st *State) ClassName(v RValue) string {
	w := v.Value().v
	st.checkLiveness(w)
	return st.vm.ObjClassname(w)
}

// IsKindOf reports whether v is an instance of c or its subclasses
func (st *State) IsKindOf(v RValue, c RClass) bool {
	w := v.Value().v
	st.checkLiveness(w)
	return st.vm.ObjIsKindOf(w, c.v)
}

// IsFrozen reports whether v is frozen. Immediates always are.
func (st *State) IsFrozen(v RValue) bool {
	w := v.Value().v
	st.checkLiveness(w)
	return st.vm.ObjFrozen(w)
}

// IsHidden reports whether v is a heap object without a class
func (st *State) IsHidden(v RValue) bool {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return false
	}
	st.checkLiveness(w)
	return st.vm.ObjHidden(w)
}
