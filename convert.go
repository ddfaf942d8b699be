package crb

import (
	"errors"
	"math/big"
	"os"
	"reflect"

	"github.com/oruby/crb/internal/rb"
)

// ValueConverter is implemented by Go types that know their Ruby form
type ValueConverter interface {
	RubyValue(st *State) (Value, error)
}

// ValueScanner is implemented by pointers to Go types that can be filled
// from a Ruby value
type ValueScanner interface {
	ScanValue(st *State, v Value) error
}

// Value converts a Go value into Ruby. It panics when the Go type has no
// Ruby form; use TryValue for input that is not known in advance.
func (st *State) Value(x any) Value {
	v, err := st.TryValue(x)
	if err != nil {
		panic(err)
	}
	return v
}

// TryValue converts a Go value into Ruby.
//
// nil becomes nil; bool, integers and floats become true/false, Integer
// and Float; string and []byte become String; *big.Int becomes Integer in
// canonical form; *os.File becomes File; an error becomes an exception
// object. Slices and arrays become Array with every element converted.
func (st *State) TryValue(x any) (Value, error) {
	st.checkThread()
	switch x := x.(type) {
	case nil:
		return Nil, nil
	case Value:
		return x, nil
	case RValue:
		return x.Value(), nil
	case ValueConverter:
		return x.RubyValue(st)
	case bool:
		return BoolValue(x), nil
	case int:
		return st.IntegerFromInt64(int64(x)).Value(), nil
	case int8:
		return st.IntegerFromInt64(int64(x)).Value(), nil
	case int16:
		return st.IntegerFromInt64(int64(x)).Value(), nil
	case int32:
		return st.IntegerFromInt64(int64(x)).Value(), nil
	case int64:
		return st.IntegerFromInt64(x).Value(), nil
	case uint:
		return st.IntegerFromUint64(uint64(x)).Value(), nil
	case uint8:
		return st.IntegerFromUint64(uint64(x)).Value(), nil
	case uint16:
		return st.IntegerFromUint64(uint64(x)).Value(), nil
	case uint32:
		return st.IntegerFromUint64(uint64(x)).Value(), nil
	case uint64:
		return st.IntegerFromUint64(x).Value(), nil
	case uintptr:
		return st.IntegerFromUint64(uint64(x)).Value(), nil
	case float32:
		return st.FloatFrom(float64(x)).Value(), nil
	case float64:
		return st.FloatFrom(x).Value(), nil
	case string:
		return Value{st.vm.StrNew(x)}, nil
	case []byte:
		return Value{st.vm.StrNewBytes(x)}, nil
	case *big.Int:
		if x == nil {
			return Nil, nil
		}
		return st.IntegerFromBig(x).Value(), nil
	case *os.File:
		if x == nil {
			return Nil, nil
		}
		return st.FileFrom(x).Value(), nil
	case error:
		return st.exceptionFor(x)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return Nil, nil
		}
		fallthrough
	case reflect.Array:
		a, err := ArrayTryFromSeq(st, func(yield func(any, error) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface(), nil) {
					return
				}
			}
		})
		if err != nil {
			return Nil, err
		}
		return a.Value(), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Nil, nil
		}
		return st.TryValue(rv.Elem().Interface())
	}
	return Nil, TypeError("can't convert %T into Ruby value", x)
}

// exceptionFor returns the exception object err stands for. A caught
// exception is returned as is; anything else gets a new exception object.
func (st *State) exceptionFor(err error) (Value, error) {
	var e *Error
	if errors.As(err, &e) {
		if exc, ok := e.Exception(); ok {
			return exc, nil
		}
		return st.protect(func() rb.VALUE {
			return st.vm.ExcNew(st.errorClass(e), e.msg)
		})
	}
	msg := err.Error()
	return st.protect(func() rb.VALUE {
		return st.vm.ExcNew(st.vm.ERuntimeError(), msg)
	})
}

// TryConvert converts v to T. T may be any type Scan fills.
func TryConvert[T any](st *State, v RValue) (T, error) {
	var t T
	err := st.Scan(v.Value(), &t)
	return t, err
}

// Scan stores v into dst, which must be a non-nil pointer.
//
// Views (*Integer, *RArray, *RString, ...) are filled when v has the
// matching shape or converts implicitly the way Ruby does (to_int, to_ary).
// Go integers accept Integer and truncate Float; Go floats accept any
// numeric. *bool takes Ruby truthiness. Slices and arrays are filled
// element by element from an Array.
func (st *State) Scan(v RValue, dst any) error {
	w := v.Value()
	st.checkLiveness(w.v)
	switch d := dst.(type) {
	case *Value:
		*d = w
	case *Integer:
		i, err := st.TryInteger(w)
		if err != nil {
			return err
		}
		*d = i
	case *Fixnum:
		f, ok := st.AsFixnum(w)
		if !ok {
			return TypeError("%s is not a fixnum", st.convName(w.v))
		}
		*d = f
	case *Bignum:
		b, ok := st.AsBignum(w)
		if !ok {
			return TypeError("%s is not a bignum", st.convName(w.v))
		}
		*d = b
	case *Float:
		f, err := st.TryFloat(w)
		if err != nil {
			return err
		}
		*d = f
	case *RArray:
		a, err := st.TryArray(w)
		if err != nil {
			return err
		}
		*d = a
	case *RString:
		s, ok := st.AsString(w)
		if !ok {
			return st.implicitError(w.v, "String")
		}
		*d = s
	case *Symbol:
		s, ok := st.AsSymbol(w)
		if !ok {
			return TypeError("%s is not a symbol", st.convName(w.v))
		}
		*d = s
	case *RClass:
		c, ok := st.AsClass(w)
		if !ok {
			return TypeError("%s is not a class/module", st.convName(w.v))
		}
		*d = c
	case *RObject:
		o, ok := st.Heap(w)
		if !ok {
			return TypeError("%s is not a heap object", st.convName(w.v))
		}
		*d = o
	case *RFile:
		f, ok := st.AsFile(w)
		if !ok {
			return st.implicitError(w.v, "File")
		}
		*d = f
	case *Thread:
		th, ok := st.AsThread(w)
		if !ok {
			return TypeError("wrong argument type %s (expected VM/thread)", st.convName(w.v))
		}
		*d = th
	case *bool:
		*d = w.IsTrue()
	case *int:
		return scanSigned(st, w, d, "long")
	case *int8:
		return scanSigned(st, w, d, "signed char")
	case *int16:
		return scanSigned(st, w, d, "short")
	case *int32:
		return scanSigned(st, w, d, "int")
	case *int64:
		return scanSigned(st, w, d, "long long")
	case *uint:
		return scanUnsigned(st, w, d, "unsigned long")
	case *uint8:
		return scanUnsigned(st, w, d, "unsigned char")
	case *uint16:
		return scanUnsigned(st, w, d, "unsigned short")
	case *uint32:
		return scanUnsigned(st, w, d, "unsigned int")
	case *uint64:
		return scanUnsigned(st, w, d, "unsigned long long")
	case *float64:
		f, err := st.num2dbl(w)
		if err != nil {
			return err
		}
		*d = f
	case *float32:
		f, err := st.num2dbl(w)
		if err != nil {
			return err
		}
		*d = float32(f)
	case *string:
		s, err := st.scanString(w)
		if err != nil {
			return err
		}
		*d = s
	case *[]byte:
		s, ok := st.AsString(w)
		if !ok {
			return st.implicitError(w.v, "String")
		}
		*d = s.Bytes()
	case **big.Int:
		i, err := st.TryInteger(w)
		if err != nil {
			return err
		}
		*d = i.ToBig()
	case *big.Int:
		i, err := st.TryInteger(w)
		if err != nil {
			return err
		}
		d.Set(i.ToBig())
	case **os.File:
		f, ok := st.AsFile(w)
		if !ok {
			return st.implicitError(w.v, "File")
		}
		*d = f.File()
	case *any:
		*d = w
	case ValueScanner:
		return d.ScanValue(st, w)
	default:
		return st.scanReflect(w, dst)
	}
	return nil
}

func (st *State) scanReflect(w Value, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ArgumentError("Scan destination must be a non-nil pointer, got %T", dst)
	}
	ev := rv.Elem()
	switch ev.Kind() {
	case reflect.Slice:
		if w.IsNil() {
			ev.SetZero()
			return nil
		}
		a, err := st.TryArray(w)
		if err != nil {
			return err
		}
		elems := a.ToSlice()
		out := reflect.MakeSlice(ev.Type(), len(elems), len(elems))
		for i, e := range elems {
			if err := st.Scan(e, out.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
		ev.Set(out)
		return nil
	case reflect.Array:
		a, err := st.TryArray(w)
		if err != nil {
			return err
		}
		if n := a.Len(); n != ev.Len() {
			return ArgumentError("wrong array length (expected %d, got %d)", ev.Len(), n)
		}
		for i := range ev.Len() {
			if err := st.Scan(a.Entry(i), ev.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Pointer:
		if w.IsNil() {
			ev.SetZero()
			return nil
		}
		p := reflect.New(ev.Type().Elem())
		if err := st.Scan(w, p.Interface()); err != nil {
			return err
		}
		ev.Set(p)
		return nil
	}
	return TypeError("can't convert %s into %s", st.convName(w.v), ev.Type())
}

// TryInteger is the implicit Integer conversion. Integers pass; other
// objects must respond to to_int and return an Integer from it. Float has
// no to_int and fails with a conversion error. A raising to_int comes back
// as the exception.
func (st *State) TryInteger(v RValue) (Integer, error) {
	w := v.Value().v
	if i, ok := st.AsInteger(v); ok {
		return i, nil
	}
	if w == rb.Qnil {
		return Integer{}, TypeError("no implicit conversion from nil to integer")
	}
	id := st.vm.Intern("to_int")
	if !st.vm.RespondTo(w, id) {
		return Integer{}, st.implicitError(w, "Integer")
	}
	r, err := st.protect(func() rb.VALUE { return st.vm.Funcall(w, id) })
	if err != nil {
		return Integer{}, err
	}
	i, ok := st.AsInteger(r)
	if !ok {
		cname := st.convName(w)
		return Integer{}, TypeError("can't convert %s to Integer (%s#to_int gives %s)",
			cname, cname, st.convName(r.v))
	}
	return i, nil
}

// TryFloat accepts Float and Integer
func (st *State) TryFloat(v RValue) (Float, error) {
	if f, ok := st.AsFloat(v); ok {
		return f, nil
	}
	if i, ok := st.AsInteger(v); ok {
		return st.FloatFrom(i.ToFloat64()), nil
	}
	return Float{}, TypeError("can't convert %s into Float", st.convName(v.Value().v))
}

// TryArray accepts Array and objects answering to_ary with an Array
func (st *State) TryArray(v RValue) (RArray, error) {
	if a, ok := st.AsArray(v); ok {
		return a, nil
	}
	w := v.Value().v
	if !rb.SpecialConstP(w) && st.vm.RespondTo(w, st.vm.Intern("to_ary")) {
		r, err := st.protect(func() rb.VALUE { return st.vm.AryToAry(w) })
		if err != nil {
			return RArray{}, err
		}
		if a, ok := st.AsArray(r); ok {
			return a, nil
		}
	}
	return RArray{}, st.implicitError(w, "Array")
}

// num2int is rb_num2long: Integer, Float truncated, or to_int
func (st *State) num2int(w Value) (Integer, error) {
	if f, ok := st.AsFloat(w); ok {
		i, err := f.ToInteger()
		if err != nil {
			return Integer{}, RangeError("float %v out of range of integer", f.ToFloat64())
		}
		return i, nil
	}
	return st.TryInteger(w)
}

func scanSigned[T signed](st *State, w Value, dst *T, cname string) error {
	i, err := st.num2int(w)
	if err != nil {
		return err
	}
	n, err := toSigned[T](i, cname)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func scanUnsigned[T unsigned](st *State, w Value, dst *T, cname string) error {
	i, err := st.num2int(w)
	if err != nil {
		return err
	}
	n, err := toUnsigned[T](i, cname)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func (st *State) num2dbl(w Value) (float64, error) {
	if f, ok := st.AsFloat(w); ok {
		return f.ToFloat64(), nil
	}
	if i, ok := st.AsInteger(w); ok {
		return i.ToFloat64(), nil
	}
	var f float64
	err := st.call(func() { f = st.vm.Num2Dbl(w.v) })
	return f, err
}

func (st *State) scanString(w Value) (string, error) {
	if s, ok := st.AsString(w); ok {
		return s.String(), nil
	}
	if s, ok := st.AsSymbol(w); ok {
		return s.Name(), nil
	}
	return "", st.implicitError(w.v, "String")
}

func (st *State) implicitError(w rb.VALUE, target string) *Error {
	return TypeError("no implicit conversion of %s into %s", st.convName(w), target)
}

// convName is the class name used in conversion messages; nil, true and
// false print as themselves
func (st *State) convName(w rb.VALUE) string {
	switch w {
	case rb.Qnil:
		return "nil"
	case rb.Qtrue:
		return "true"
	case rb.Qfalse:
		return "false"
	}
	return st.vm.ObjClassname(w)
}
