// Package crb is a Go binding for a CRuby-shaped Ruby VM.
//
// Usage is kept close to the Ruby C API. A State owns one VM:
//
//	st, err := crb.New()
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
// From then on classes can be defined, methods called and values
// converted. This Go code:
//
//	c, _ := st.DefineClass("Greeter", crb.RClass{})
//	c.DefineMethod("hello", func(st *crb.State, self crb.Value, args []crb.Value) (crb.Value, error) {
//		return st.Value("Hello World"), nil
//	}, 0)
//
// is equivalent to ruby:
//
//	class Greeter
//	  def hello
//	    "Hello World"
//	  end
//	end
//
// # Values
//
// Every Ruby value is a Value, one machine word: either an immediate
// (fixnum, flonum, static symbol, nil, true, false) or the address of a
// heap slot. The zero word is never a valid Value. Views such as Integer,
// RArray, RString or Thread are Values that were checked to have a given
// shape when they were made; the As* methods of State make them.
//
// Conversion goes both ways: State.Value and State.TryValue turn Go values
// into Ruby, State.Scan and TryConvert turn Ruby values into Go.
//
// # Lifetime
//
// The collector does not see Go variables. A heap value stays alive while
// it is reachable from a Ruby root: the frame of the current call (values
// created or returned inside it), a Box, a registered address, or the
// mark callback of an object that is itself alive. State.Protect opens a
// nested frame; what was created inside it and not returned is collectable
// afterwards; State.Scope does the same without a result. Code at the top
// level of the main thread runs in a frame that lasts as long as the state,
// so loops there should allocate inside Scope or call State.ReleaseLocals.
// Compaction may move objects that are only marked movable. Building with
// the crbdebug tag turns on a check that panics when a freed or moved
// object is used.
//
// # Errors
//
// Every call that can raise runs inside a protect boundary and returns an
// *Error instead of unwinding. errors.Is matches ErrConversion, ErrRange,
// ErrException and ErrJump, and an *Error naming an exception class.
// Errors returned by Go methods and thread bodies are raised back into
// Ruby.
//
// # Threads
//
// Ruby threads run one at a time. The goroutine that called New is the
// main thread; ThreadCreate starts others on their own goroutines. A call
// into the VM may let other Ruby threads run before it returns.
package crb
