package crb

// Args wraps the arguments a Func receives
type Args []Value

// Item returns the argument at index, counting from the end when negative,
// or nil when there is none
func (a Args) Item(index int) Value {
	l := len(a)
	if index < 0 {
		index += l
	}
	if index < 0 || index >= l {
		return Nil
	}
	return a[index]
}

// ItemDef returns the argument at index, or def when it is missing or nil
func (a Args) ItemDef(index int, def RValue) Value {
	v := a.Item(index)
	if v.IsNil() {
		return def.Value()
	}
	return v
}

// Len returns the argument count
func (a Args) Len() int { return len(a) }

// Scan fills dsts from the leading arguments. Missing optional arguments
// leave their destinations untouched; req is the number required.
func (a Args) Scan(st *State, req int, dsts ...any) error {
	if len(a) < req || len(a) > len(dsts) {
		if req == len(dsts) {
			return ArgumentError("wrong number of arguments (given %d, expected %d)", len(a), req)
		}
		return ArgumentError("wrong number of arguments (given %d, expected %d..%d)", len(a), req, len(dsts))
	}
	for i, v := range a {
		if err := st.Scan(v, dsts[i]); err != nil {
			return err
		}
	}
	return nil
}
