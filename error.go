package crb

import (
	"fmt"
	"strings"

	"github.com/oruby/crb/internal/rb"
)

// Kind categorizes an Error
type Kind string

const (
	// KindConversion: the value has the wrong shape and no implicit
	// conversion bridges it
	KindConversion Kind = "conversion"
	// KindRange: a numeric value does not fit the requested Go type
	KindRange Kind = "range"
	// KindException: an exception raised inside a protect boundary
	KindException Kind = "exception"
	// KindJump: a non-local exit other than raise, a thread kill for one
	KindJump Kind = "jump"
)

// Sentinels for errors.Is
var (
	ErrConversion = &Error{kind: KindConversion}
	ErrRange      = &Error{kind: KindRange}
	ErrException  = &Error{kind: KindException}
	ErrJump       = &Error{kind: KindJump}
)

// Error is either an exception object caught at a protect boundary or an
// exception class name plus message synthesized on the Go side. A
// synthesized Error only becomes an exception object when it is raised
// back into Ruby.
type Error struct {
	kind  Kind
	class string
	msg   string
	exc   Value
	tag   int
}

// NewError returns a synthesized exception of class className
func NewError(className, format string, args ...any) *Error {
	return &Error{kind: KindException, class: className, msg: sprintf(format, args...)}
}

// TypeError is a synthesized TypeError. It counts as a conversion error.
func TypeError(format string, args ...any) *Error {
	return &Error{kind: KindConversion, class: "TypeError", msg: sprintf(format, args...)}
}

// RangeError is a synthesized RangeError
func RangeError(format string, args ...any) *Error {
	return &Error{kind: KindRange, class: "RangeError", msg: sprintf(format, args...)}
}

// ArgumentError is a synthesized ArgumentError
func ArgumentError(format string, args ...any) *Error {
	return NewError("ArgumentError", format, args...)
}

// RuntimeError is a synthesized RuntimeError
func RuntimeError(format string, args ...any) *Error {
	return NewError("RuntimeError", format, args...)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Error implements error. It reads like Ruby's full message: "msg (Class)".
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.kind == KindJump:
		b.WriteString(jumpName(e.tag))
		if e.msg != "" {
			b.WriteString(": ")
			b.WriteString(e.msg)
		}
	case e.class == "":
		b.WriteString(string(e.kind))
		b.WriteString(" error")
	default:
		b.WriteString(e.msg)
		b.WriteString(" (")
		b.WriteString(e.class)
		b.WriteByte(')')
	}
	return b.String()
}

// Is matches the Kind sentinels and, when the target names a class, the
// exception class name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.class != "" && t.class != e.class {
		return false
	}
	return t.kind == e.kind
}

// Kind returns the error category
func (e *Error) Kind() Kind { return e.kind }

// ClassName returns the exception class name
func (e *Error) ClassName() string { return e.class }

// Message returns the exception message
func (e *Error) Message() string { return e.msg }

// Exception returns the caught exception object. Synthesized errors have
// none. The object is only rooted by the frame that caught it.
func (e *Error) Exception() (Value, bool) {
	if e.exc.IsNull() {
		return Value{}, false
	}
	return e.exc, true
}

// Tag returns the jump state of a KindJump error
func (e *Error) Tag() int { return e.tag }

func jumpName(tag int) string {
	switch tag {
	case rb.TagReturn:
		return "return"
	case rb.TagBreak:
		return "break"
	case rb.TagNext:
		return "next"
	case rb.TagRetry:
		return "retry"
	case rb.TagRedo:
		return "redo"
	case rb.TagThrow:
		return "throw"
	case rb.TagFatal:
		return "thread killed"
	}
	return fmt.Sprintf("jump tag %d", tag)
}
