package crb

import (
	"reflect"
	"unicode"
)

// SnakeCase converts a Go name into Ruby snake_case
func SnakeCase(s string) string {
	buffer := make([]rune, 0, len(s)+5)

	var prev rune
	var curr rune
	for _, next := range s {
		if unicode.IsUpper(curr) {
			if unicode.IsLower(prev) || (prev != 0 && unicode.IsUpper(prev) && unicode.IsLower(next)) {
				buffer = append(buffer, '_')
			}
			buffer = append(buffer, unicode.ToLower(curr))
		} else if curr != 0 {
			buffer = append(buffer, curr)
		}
		prev = curr
		curr = next
	}

	if len(s) > 0 {
		if unicode.IsUpper(curr) && unicode.IsLower(prev) && prev != 0 {
			buffer = append(buffer, '_')
		}
		buffer = append(buffer, unicode.ToLower(curr))
	}

	return string(buffer)
}

// CamelCase converts underscore delimited string to CamelCase
func CamelCase(s string) string {
	buffer := make([]rune, 0, len(s))

	var prev rune
	for _, curr := range s {
		if curr != '_' {
			if (prev == '_') || (prev == 0) {
				buffer = append(buffer, unicode.ToUpper(curr))
			} else {
				buffer = append(buffer, unicode.ToLower(curr))
			}
		}
		prev = curr
	}

	return string(buffer)
}

var errorType = reflect.TypeFor[error]()

// callFunc calls a Go function with Ruby arguments. The first result that
// is not a trailing error is converted with TryValue.
func (st *State) callFunc(fn reflect.Value, recv []reflect.Value, args []Value) (Value, error) {
	params, err := st.scanArgs(fn.Type(), recv, args)
	if err != nil {
		return Nil, err
	}
	result, err := splitError(fn.Type(), fn.Call(params))
	if err != nil {
		return Nil, err
	}
	if len(result) == 0 {
		return Nil, nil
	}
	return st.TryValue(result[0].Interface())
}

// scanArgs fills the parameters of ft after recv from args with Scan
func (st *State) scanArgs(ft reflect.Type, recv []reflect.Value, args []Value) ([]reflect.Value, error) {
	nin := ft.NumIn() - len(recv)
	fixed := nin
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) > nin) {
		if ft.IsVariadic() {
			return nil, ArgumentError("wrong number of arguments (given %d, expected %d+)", len(args), fixed)
		}
		return nil, ArgumentError("wrong number of arguments (given %d, expected %d)", len(args), nin)
	}

	params := append([]reflect.Value(nil), recv...)
	for i := range fixed {
		p := reflect.New(ft.In(len(recv) + i))
		if err := st.Scan(args[i], p.Interface()); err != nil {
			return nil, err
		}
		params = append(params, p.Elem())
	}
	if ft.IsVariadic() {
		et := ft.In(ft.NumIn() - 1).Elem()
		for _, a := range args[fixed:] {
			p := reflect.New(et)
			if err := st.Scan(a, p.Interface()); err != nil {
				return nil, err
			}
			params = append(params, p.Elem())
		}
	}
	return params, nil
}

// splitError strips a trailing error result, returning it when set
func splitError(ft reflect.Type, result []reflect.Value) ([]reflect.Value, error) {
	n := len(result)
	if n == 0 || ft.Out(n-1) != errorType {
		return result, nil
	}
	if err, _ := result[n-1].Interface().(error); err != nil {
		return nil, err
	}
	return result[:n-1], nil
}
