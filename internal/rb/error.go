package rb

import "fmt"

// Jump tag states
const (
	TagNone   = 0x0
	TagReturn = 0x1
	TagBreak  = 0x2
	TagNext   = 0x3
	TagRetry  = 0x4
	TagRedo   = 0x5
	TagRaise  = 0x6
	TagThrow  = 0x7
	TagFatal  = 0x8
)

// jumpTag is the panic value carrying a non-local exit
type jumpTag struct {
	state int
	val   VALUE
}

func (j *jumpTag) String() string {
	return fmt.Sprintf("uncaught jump tag %d", j.state)
}

// Protect runs fn in a new root frame and turns a non-local exit into a
// nonzero state. The exception, if any, is left in ErrInfo. Panics that are
// not jump tags keep unwinding.
func (vm *VM) Protect(fn func() VALUE) (result VALUE, state int) {
	th := vm.cur()
	depth := vm.PushFrame()
	defer func() {
		vm.PopFrame(depth)
		if r := recover(); r != nil {
			j, ok := r.(*jumpTag)
			if !ok {
				panic(r)
			}
			result, state = Qnil, j.state
			th.errinfo = j.val
			vm.pushLocal(j.val)
			return
		}
		vm.pushLocal(result)
	}()
	vm.CheckInts()
	return fn(), TagNone
}

// ErrInfo returns the exception left by the last failed Protect
func (vm *VM) ErrInfo() VALUE { return vm.cur().errinfo }

// SetErrInfo sets or clears ErrInfo
func (vm *VM) SetErrInfo(v VALUE) { vm.cur().errinfo = v }

// JumpTagBut resumes a non-local exit captured by Protect
func (vm *VM) JumpTagBut(state int, val VALUE) {
	panic(&jumpTag{state: state, val: val})
}

// ExcRaise raises the exception object exc
func (vm *VM) ExcRaise(exc VALUE) {
	vm.cur().errinfo = exc
	panic(&jumpTag{state: TagRaise, val: exc})
}

// Raise raises a new exception of class klass
func (vm *VM) Raise(klass VALUE, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	vm.ExcRaise(vm.ExcNew(klass, msg))
}

// ExcNew builds an exception object
func (vm *VM) ExcNew(klass VALUE, msg string) VALUE {
	exc := vm.ObjAlloc(klass)
	vm.IvarSet(exc, vm.Intern("mesg"), vm.StrNew(msg))
	return exc
}

// ExcMessage returns the message of an exception object
func (vm *VM) ExcMessage(exc VALUE) string {
	m := vm.IvarGet(exc, vm.Intern("mesg"))
	if vm.BuiltinType(m) == TString {
		return vm.StrString(m)
	}
	return vm.ClassName(vm.ClassOf(exc))
}

// IsException reports whether v is an Exception instance
func (vm *VM) IsException(v VALUE) bool {
	if vm.os.lookup(v) == nil {
		return false
	}
	return vm.ObjIsKindOf(v, vm.global.eException)
}

// Fatal raises the uncatchable fatal error
func (vm *VM) Fatal(msg string) {
	vm.ExcRaise(vm.ExcNew(vm.global.eFatal, msg))
}

// FrozenCheck raises FrozenError when v is frozen
func (vm *VM) FrozenCheck(v VALUE) {
	if vm.ObjFrozen(v) {
		vm.Raise(vm.global.eFrozenError, "can't modify frozen %s: %s",
			vm.ClassName(vm.ClassReal(vm.ClassOf(v))), vm.Inspect(v))
	}
}

// CheckType raises TypeError unless v has type t
func (vm *VM) CheckType(v VALUE, t int) {
	if vm.BuiltinType(v) != t {
		vm.Raise(vm.global.eTypeError, "wrong argument type %s (expected %s)",
			vm.builtinClassName(v), typeDisplayName(t))
	}
}

func typeDisplayName(t int) string {
	switch t {
	case TObject:
		return "Object"
	case TClass:
		return "Class"
	case TModule:
		return "Module"
	case TFloat:
		return "Float"
	case TString:
		return "String"
	case TArray:
		return "Array"
	case TBignum, TFixnum:
		return "Integer"
	case TFile:
		return "File"
	case TSymbol:
		return "Symbol"
	case TData:
		return "Data"
	}
	return TypeNames[t]
}

func (vm *VM) builtinClassName(v VALUE) string {
	switch v {
	case Qnil:
		return "nil"
	case Qtrue:
		return "true"
	case Qfalse:
		return "false"
	}
	return vm.ClassName(vm.ClassReal(vm.ClassOf(v)))
}
