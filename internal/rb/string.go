package rb

import (
	"bytes"
	"strconv"
)

type stringBody struct {
	ptr []byte
}

// StrNew allocates a String
func (vm *VM) StrNew(s string) VALUE {
	return vm.newobj(vm.global.cString, TString, &stringBody{ptr: []byte(s)})
}

// StrNewBytes allocates a String holding a copy of b
func (vm *VM) StrNewBytes(b []byte) VALUE {
	return vm.newobj(vm.global.cString, TString, &stringBody{ptr: append([]byte(nil), b...)})
}

// StrString returns the contents of a String
func (vm *VM) StrString(v VALUE) string {
	return string(vm.strBody(v).ptr)
}

// StrBytes returns a copy of the contents of a String
func (vm *VM) StrBytes(v VALUE) []byte {
	return append([]byte(nil), vm.strBody(v).ptr...)
}

// StrCat appends s to str
func (vm *VM) StrCat(str VALUE, s string) VALUE {
	vm.FrozenCheck(str)
	b := vm.strBody(str)
	b.ptr = append(b.ptr, s...)
	return str
}

// StrLen returns the byte length of a String
func (vm *VM) StrLen(v VALUE) int { return len(vm.strBody(v).ptr) }

func (vm *VM) strBody(v VALUE) *stringBody {
	vm.CheckType(v, TString)
	return vm.slot(v).body.(*stringBody)
}

// SymName returns the name of a symbol
func (vm *VM) SymName(v VALUE) string { return vm.IDName(Sym2ID(v)) }

func (vm *VM) initString() {
	g := &vm.global
	s := g.cString
	vm.DefineMethod(s, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return self
	}, 0)
	vm.DefineMethod(s, "to_str", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return self
	}, 0)
	vm.DefineMethod(s, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(strconv.Quote(vm.StrString(self)))
	}, 0)
	vm.DefineMethod(s, "==", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if vm.BuiltinType(args[0]) != TString {
			return Qfalse
		}
		return Bool(bytes.Equal(vm.strBody(self).ptr, vm.strBody(args[0]).ptr))
	}, 1)
	vm.DefineMethod(s, "<=>", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if vm.BuiltinType(args[0]) != TString {
			return Qnil
		}
		return Int2Fix(int64(bytes.Compare(vm.strBody(self).ptr, vm.strBody(args[0]).ptr)))
	}, 1)
	vm.DefineMethod(s, "length", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Int2Fix(int64(len([]rune(vm.StrString(self)))))
	}, 0)
	vm.DefineMethod(s, "+", func(vm *VM, self VALUE, args []VALUE) VALUE {
		other := vm.strBody(args[0])
		return vm.StrNew(vm.StrString(self) + string(other.ptr))
	}, 1)

	sym := g.cSymbol
	vm.DefineMethod(sym, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.SymName(self))
	}, 0)
	vm.DefineMethod(sym, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(":" + vm.SymName(self))
	}, 0)
	vm.DefineMethod(sym, "<=>", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if !StaticSymP(args[0]) {
			return Qnil
		}
		a, b := vm.SymName(self), vm.SymName(args[0])
		switch {
		case a < b:
			return Int2Fix(-1)
		case a > b:
			return Int2Fix(1)
		}
		return Int2Fix(0)
	}, 1)
}
