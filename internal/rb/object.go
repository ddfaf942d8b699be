package rb

import (
	"fmt"
	"strings"
)

type ivar struct {
	id  ID
	val VALUE
}

type objectBody struct {
	ivars []ivar
}

func hexAddr(v VALUE) string { return fmt.Sprintf("0x%016x", uint64(v)) }

func ivarsOf(b any) *[]ivar {
	switch b := b.(type) {
	case *objectBody:
		return &b.ivars
	case *dataBody:
		return &b.ivars
	case *classBody:
		return &b.ivars
	}
	return nil
}

// IvarGet reads an instance variable, Qnil when unset
func (vm *VM) IvarGet(obj VALUE, id ID) VALUE {
	s := vm.os.lookup(obj)
	if s == nil {
		return Qnil
	}
	ivs := ivarsOf(s.body)
	if ivs == nil {
		return Qnil
	}
	for _, iv := range *ivs {
		if iv.id == id {
			return iv.val
		}
	}
	return Qnil
}

// IvarDefined reports whether an instance variable is set
func (vm *VM) IvarDefined(obj VALUE, id ID) bool {
	s := vm.os.lookup(obj)
	if s == nil {
		return false
	}
	if ivs := ivarsOf(s.body); ivs != nil {
		for _, iv := range *ivs {
			if iv.id == id {
				return true
			}
		}
	}
	return false
}

// IvarSet writes an instance variable
func (vm *VM) IvarSet(obj VALUE, id ID, val VALUE) VALUE {
	vm.FrozenCheck(obj)
	vm.checkNoView("instance variable write")
	s := vm.os.lookup(obj)
	var ivs *[]ivar
	if s != nil {
		ivs = ivarsOf(s.body)
	}
	if ivs == nil {
		vm.Raise(vm.global.eArgumentError, "can't set instance variable on %s", vm.builtinClassName(obj))
	}
	for i := range *ivs {
		if (*ivs)[i].id == id {
			(*ivs)[i].val = val
			return val
		}
	}
	*ivs = append(*ivs, ivar{id: id, val: val})
	return val
}

// IvarNames lists the instance variables of obj in definition order
func (vm *VM) IvarNames(obj VALUE) []ID {
	s := vm.os.lookup(obj)
	if s == nil {
		return nil
	}
	ivs := ivarsOf(s.body)
	if ivs == nil {
		return nil
	}
	ids := make([]ID, len(*ivs))
	for i, iv := range *ivs {
		ids[i] = iv.id
	}
	return ids
}

// ObjFreeze freezes v
func (vm *VM) ObjFreeze(v VALUE) VALUE {
	if s := vm.os.lookup(v); s != nil {
		s.flags |= FlFreeze
	}
	return v
}

// ObjFrozen reports whether v is frozen. Immediates are always frozen.
func (vm *VM) ObjFrozen(v VALUE) bool {
	s := vm.os.lookup(v)
	if s == nil {
		return true
	}
	return s.flags&FlFreeze != 0
}

// ObjHide clears the class of v, removing it from object enumeration
func (vm *VM) ObjHide(v VALUE) VALUE {
	if s := vm.os.lookup(v); s != nil {
		s.klass = Qnull
	}
	return v
}

// ObjReveal gives a hidden object a class
func (vm *VM) ObjReveal(v, klass VALUE) VALUE {
	if s := vm.os.lookup(v); s != nil && s.klass == Qnull {
		s.klass = klass
	}
	return v
}

// ObjHidden reports whether v has no class
func (vm *VM) ObjHidden(v VALUE) bool {
	s := vm.os.lookup(v)
	return s != nil && s.klass == Qnull
}

// Inspect calls inspect on v and returns the Go string
func (vm *VM) Inspect(v VALUE) string {
	if vm.ClassOf(v) == Qnull {
		return "#<" + typeDisplayName(vm.BuiltinType(v)) + ":" + hexAddr(v) + " (hidden)>"
	}
	s := vm.Funcall(v, vm.Intern("inspect"))
	if vm.BuiltinType(s) != TString {
		return vm.anyToS(v)
	}
	return vm.StrString(s)
}

// ObjAsString calls to_s on v and returns the Go string
func (vm *VM) ObjAsString(v VALUE) string {
	if vm.BuiltinType(v) == TString {
		return vm.StrString(v)
	}
	s := vm.Funcall(v, vm.Intern("to_s"))
	if vm.BuiltinType(s) != TString {
		return vm.anyToS(v)
	}
	return vm.StrString(s)
}

func (vm *VM) anyToS(v VALUE) string {
	return "#<" + vm.ObjClassname(v) + ":" + hexAddr(v) + ">"
}

// Equal is rb_equal: identity or ==
func (vm *VM) Equal(a, b VALUE) bool {
	if a == b {
		return true
	}
	return RTest(vm.Funcall(a, vm.Intern("=="), b))
}

func (vm *VM) initObject() {
	g := &vm.global
	obj := g.cBasicObject
	vm.DefineMethod(obj, "==", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(self == args[0])
	}, 1)
	vm.DefineMethod(obj, "equal?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(self == args[0])
	}, 1)
	vm.DefineMethod(obj, "!", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(!RTest(self))
	}, 0)
	vm.DefineMethod(obj, "initialize", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Qnil
	}, -1)

	k := g.cKernel
	vm.DefineMethod(k, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		ids := vm.IvarNames(self)
		if len(ids) == 0 || vm.BuiltinType(self) != TObject {
			return vm.StrNew(vm.anyToS(self))
		}
		var sb strings.Builder
		sb.WriteString("#<" + vm.ObjClassname(self))
		for i, id := range ids {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(" @" + vm.IDName(id) + "=" + vm.Inspect(vm.IvarGet(self, id)))
		}
		sb.WriteString(">")
		return vm.StrNew(sb.String())
	}, 0)
	vm.DefineMethod(k, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.anyToS(self))
	}, 0)
	vm.DefineMethod(k, "class", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ClassOf(self)
	}, 0)
	vm.DefineMethod(k, "frozen?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.ObjFrozen(self))
	}, 0)
	vm.DefineMethod(k, "freeze", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ObjFreeze(self)
	}, 0)
	vm.DefineMethod(k, "nil?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(self == Qnil)
	}, 0)
	vm.DefineMethod(k, "is_a?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.ObjIsKindOf(self, args[0]))
	}, 1)
	vm.DefineMethod(k, "respond_to?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if !StaticSymP(args[0]) {
			vm.Raise(g.eTypeError, "%s is not a symbol", vm.Inspect(args[0]))
		}
		return Bool(vm.RespondTo(self, Sym2ID(args[0])))
	}, 1)
	vm.DefineMethod(k, "<=>", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if vm.Equal(self, args[0]) {
			return Int2Fix(0)
		}
		return Qnil
	}, 1)

	vm.DefineMethod(g.cModule, "name", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.ClassName(self))
	}, 0)
	vm.DefineMethod(g.cModule, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.ClassName(self))
	}, 0)
	vm.DefineMethod(g.cModule, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.ClassName(self))
	}, 0)
	vm.DefineMethod(g.cClass, "new", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ClassNewInstance(self, args...)
	}, -1)

	lit := func(c VALUE, s string) {
		vm.DefineMethod(c, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
			if c == g.cNilClass {
				return vm.StrNew("")
			}
			return vm.StrNew(s)
		}, 0)
		vm.DefineMethod(c, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
			return vm.StrNew(s)
		}, 0)
	}
	lit(g.cNilClass, "nil")
	lit(g.cTrueClass, "true")
	lit(g.cFalseClass, "false")
	vm.DefineMethod(g.cNilClass, "to_a", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.AryNew()
	}, 0)

	e := g.eException
	vm.DefineMethod(e, "initialize", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if len(args) > 0 {
			vm.IvarSet(self, vm.Intern("mesg"), args[0])
		}
		return Qnil
	}, -1)
	vm.DefineMethod(e, "message", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.ExcMessage(self))
	}, 0)
	vm.DefineMethod(e, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.ExcMessage(self))
	}, 0)
	vm.DefineMethod(e, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		name := vm.ObjClassname(self)
		msg := vm.ExcMessage(self)
		if msg == "" || msg == name {
			return vm.StrNew(name)
		}
		return vm.StrNew("#<" + name + ": " + msg + ">")
	}, 0)
}
