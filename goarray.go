package crb

import (
	"fmt"
	"iter"

	"github.com/oruby/crb/internal/rb"
)

// batchSize is how many converted elements are buffered before they are
// appended in one call
const batchSize = 128

// ArrayFromSeq builds an Array from seq. Elements are converted with
// State.Value, so an unsupported element type panics.
func ArrayFromSeq[T any](st *State, seq iter.Seq[T]) RArray {
	a, err := ArrayTryFromSeq(st, func(yield func(T, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	})
	if err != nil {
		panic(err)
	}
	return a
}

// ArrayFromSlice builds an Array from s
func ArrayFromSlice[T any](st *State, s []T) RArray {
	return ArrayFromSeq(st, func(yield func(T) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	})
}

// ArrayTryFromSeq builds an Array from seq, stopping at the first error
// from seq or from converting an element. The partly built Array is
// dropped with the frame that built it.
func ArrayTryFromSeq[T any](st *State, seq iter.Seq2[T, error]) (RArray, error) {
	var ferr error
	v, err := st.protect(func() rb.VALUE {
		vm := st.vm
		a := vm.AryNew()
		var buf [batchSize]rb.VALUE
		unregister := vm.PushLocations(buf[:])
		defer unregister()

		n := 0
		for x, e := range seq {
			if e != nil {
				ferr = e
				return rb.Qnil
			}
			w, e := st.TryValue(x)
			if e != nil {
				ferr = e
				return rb.Qnil
			}
			buf[n] = w.v
			n++
			if n == batchSize {
				vm.AryCat(a, buf[:n])
				clear(buf[:n])
				n = 0
			}
		}
		if n > 0 {
			vm.AryCat(a, buf[:n])
		}
		return a
	})
	if err != nil {
		return RArray{}, err
	}
	if ferr != nil {
		return RArray{}, ferr
	}
	return st.array(v.v), nil
}

// ToSlice converts every element of a to T. The elements are copied out
// first, so conversions that call Ruby code see a stable list.
func ToSlice[T any](a RArray) ([]T, error) {
	elems := a.ToSlice()
	out := make([]T, len(elems))
	for i, e := range elems {
		if err := a.st.Scan(e, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToFixed converts a into dst, which must have exactly a.Len() elements
func ToFixed[T any](a RArray, dst []T) error {
	if n := a.Len(); n != len(dst) {
		return ArgumentError("wrong array length (expected %d, got %d)", len(dst), n)
	}
	for i := range dst {
		if err := a.st.Scan(a.Entry(i), &dst[i]); err != nil {
			return err
		}
	}
	return nil
}

// ToSlice copies the elements out
func (a RArray) ToSlice() []Value {
	return append([]Value(nil), asValues(a.st.vm.AryPtr(a.raw()))...)
}

// All iterates over index and element. The length is re-read every step,
// so writes during iteration are seen.
func (a RArray) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i := 0; i < a.Len(); i++ {
			if !yield(i, a.Entry(i)) {
				return
			}
		}
	}
}

// PushInt appends a Go int
func (a RArray) PushInt(n int) error { return a.Push(a.st.IntegerFromInt64(int64(n))) }

// PushString appends a new String
func (a RArray) PushString(s string) error { return a.Push(s) }

// PushFloat64 appends a Float
func (a RArray) PushFloat64(f float64) error { return a.Push(a.st.FloatFrom(f)) }

// String renders the elements with inspect for debugging output
func (a RArray) String() string {
	s, err := a.Inspect()
	if err != nil {
		return fmt.Sprintf("#<Array: %v>", err)
	}
	return s
}
