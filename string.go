package crb

import (
	"github.com/oruby/crb/internal/rb"
)

// RString is a Ruby String
type RString struct{ RObject }

// AsString certifies v as a String
func (st *State) AsString(v RValue) (RString, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return RString{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TString {
		return RString{}, false
	}
	return RString{RObject{w, st}}, true
}

// StrNew returns a new String holding s
func (st *State) StrNew(s string) RString {
	st.checkThread()
	return RString{RObject{st.vm.StrNew(s), st}}
}

// Len returns the byte length
func (s RString) Len() int { return s.st.vm.StrLen(s.raw()) }

// String returns the contents
func (s RString) String() string { return s.st.vm.StrString(s.raw()) }

// Bytes returns a copy of the contents
func (s RString) Bytes() []byte { return s.st.vm.StrBytes(s.raw()) }

// Cat appends str. Frozen strings refuse.
func (s RString) Cat(str string) error {
	w := s.raw()
	return s.st.call(func() { s.st.vm.StrCat(w, str) })
}

// Intern returns the symbol named by the contents
func (s RString) Intern() Symbol { return s.st.Intern(s.String()) }

// Symbol is a static symbol. Symbols are immediates, so a Symbol needs no
// rooting.
type Symbol struct {
	v  rb.VALUE
	st *State
}

// Value implements RValue
func (s Symbol) Value() Value { return Value{s.v} }

// Intern returns the symbol for name
func (st *State) Intern(name string) Symbol {
	return Symbol{st.vm.Sym(name), st}
}

// AsSymbol certifies v as a Symbol
func (st *State) AsSymbol(v RValue) (Symbol, bool) {
	w := v.Value().v
	if !rb.StaticSymP(w) {
		return Symbol{}, false
	}
	return Symbol{w, st}, true
}

// Name returns the symbol name
func (s Symbol) Name() string { return s.st.vm.SymName(s.v) }

func (s Symbol) String() string { return ":" + s.Name() }
