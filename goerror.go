package crb

import (
	"errors"
	"strings"

	"github.com/oruby/crb/internal/rb"
)

// errorFromState turns a failed host protect into an *Error and clears
// errinfo. The exception object stays rooted in the caller's frame.
func (st *State) errorFromState(state int) *Error {
	vm := st.vm
	exc := vm.ErrInfo()
	vm.SetErrInfo(rb.Qnull)
	if state == rb.TagRaise && vm.IsException(exc) {
		return &Error{
			kind:  KindException,
			class: vm.ObjClassname(exc),
			msg:   vm.ExcMessage(exc),
			exc:   Value{exc},
		}
	}
	e := &Error{kind: KindJump, tag: state}
	if vm.IsException(exc) {
		e.exc = Value{exc}
		e.class = vm.ObjClassname(exc)
		e.msg = vm.ExcMessage(exc)
	}
	return e
}

// errorClass maps an error to the class it is raised as. A synthesized
// *Error keeps its class when that names an exception class; everything
// else becomes RuntimeError.
func (st *State) errorClass(err error) rb.VALUE {
	vm := st.vm
	var e *Error
	if !errors.As(err, &e) || e.class == "" {
		return vm.ERuntimeError()
	}
	name := e.class
	if name[0] < 'A' || name[0] > 'Z' || strings.ContainsAny(name, " \t\r\n") {
		return vm.EStandardError()
	}
	c := vm.ClassGet(name)
	if c == rb.Qnil || vm.BuiltinType(c) != rb.TClass || !vm.ClassInherited(c, vm.EException()) {
		return vm.EStandardError()
	}
	return c
}

// raise raises err into Ruby. It never returns. A caught exception is
// re-raised as the same object; a jump resumes as the same jump.
func (st *State) raise(err error) {
	vm := st.vm
	var e *Error
	if errors.As(err, &e) {
		switch {
		case e.kind == KindJump:
			exc := rb.Qundef
			if !e.exc.IsNull() {
				exc = e.exc.v
			}
			vm.JumpTagBut(e.tag, exc)
		case !e.exc.IsNull():
			vm.ExcRaise(e.exc.v)
		}
		vm.Raise(st.errorClass(e), "%s", e.msg)
	}
	vm.Raise(vm.ERuntimeError(), "%s", err.Error())
}

// Raise raises err into Ruby from inside a native method or thread body.
// It does not return.
func (st *State) Raise(err error) {
	st.checkThread()
	st.raise(err)
}

// ExcNew builds an exception object of className without raising it
func (st *State) ExcNew(className, msg string) (Value, error) {
	return st.protect(func() rb.VALUE {
		return st.vm.ExcNew(st.errorClass(&Error{class: className}), msg)
	})
}
