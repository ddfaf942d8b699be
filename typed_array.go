package crb

// TypedArray is an Array that only holds elements of one Go type. It is
// hidden from Ruby code until ToRArray, which turns it into an ordinary
// Array.
type TypedArray[T any] struct{ a RArray }

// NewTypedArray returns an empty hidden array
func NewTypedArray[T any](st *State) TypedArray[T] {
	st.checkThread()
	return TypedArray[T]{st.array(st.vm.ObjHide(st.vm.AryNew()))}
}

// TypedArrayFrom returns a hidden array holding s
func TypedArrayFrom[T any](st *State, s []T) (TypedArray[T], error) {
	a, err := ArrayTryFromSeq(st, func(yield func(T, error) bool) {
		for _, v := range s {
			if !yield(v, nil) {
				return
			}
		}
	})
	if err != nil {
		return TypedArray[T]{}, err
	}
	st.vm.ObjHide(a.v)
	return TypedArray[T]{a}, nil
}

// Typecheck returns a hidden array sharing a's elements when every
// element converts to T
func Typecheck[T any](a RArray) (TypedArray[T], error) {
	for i, e := range a.ToSlice() {
		var t T
		if err := a.st.Scan(e, &t); err != nil {
			return TypedArray[T]{}, TypeError("element %d: %s", i, errMessage(err))
		}
	}
	d := a.Dup()
	a.st.vm.ObjHide(d.v)
	return TypedArray[T]{d}, nil
}

func errMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message()
	}
	return err.Error()
}

// Value implements RValue
func (t TypedArray[T]) Value() Value { return t.a.Value() }

// Len returns the number of elements
func (t TypedArray[T]) Len() int { return t.a.Len() }

// Push appends v
func (t TypedArray[T]) Push(v T) error { return t.a.Push(v) }

// Pop removes and returns the last element. It is false for an empty array.
func (t TypedArray[T]) Pop() (T, bool, error) {
	var zero T
	if t.a.Len() == 0 {
		return zero, false, nil
	}
	v, err := t.a.Pop()
	if err != nil {
		return zero, false, err
	}
	out, err := TryConvert[T](t.a.st, v)
	return out, err == nil, err
}

// Get returns the element at i
func (t TypedArray[T]) Get(i int) (T, error) {
	if i >= t.a.Len() || i < -t.a.Len() {
		var zero T
		return zero, NewError("IndexError", "index %d outside of array bounds: %d...%d", i, -t.a.Len(), t.a.Len())
	}
	return TryConvert[T](t.a.st, t.a.Entry(i))
}

// ToSlice converts every element
func (t TypedArray[T]) ToSlice() ([]T, error) { return ToSlice[T](t.a) }

// ToRArray reveals the array to Ruby code as an ordinary Array. The
// TypedArray must not be used afterwards.
func (t TypedArray[T]) ToRArray() RArray {
	t.a.st.vm.ObjReveal(t.a.raw(), t.a.st.vm.CArray())
	return t.a
}

// IsHidden reports whether the array is still hidden
func (t TypedArray[T]) IsHidden() bool { return t.a.st.vm.ObjHidden(t.a.raw()) }
