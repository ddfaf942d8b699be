package crb

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DefinePrintMethods defines print, puts and p on Object writing to w, so
// output from Ruby code goes where the Go program wants it
func (st *State) DefinePrintMethods(w io.Writer) {
	obj := st.ObjectClass()

	obj.DefineMethod("print", func(st *State, self Value, args []Value) (Value, error) {
		for _, a := range args {
			s, err := st.ToS(a)
			if err != nil {
				return Nil, err
			}
			fmt.Fprint(w, s)
		}
		return Nil, nil
	}, -1)

	obj.DefineMethod("puts", func(st *State, self Value, args []Value) (Value, error) {
		if len(args) == 0 {
			fmt.Fprintln(w)
		}
		for _, a := range args {
			s, err := st.ToS(a)
			if err != nil {
				return Nil, err
			}
			if strings.HasSuffix(s, "\n") {
				fmt.Fprint(w, s)
				continue
			}
			fmt.Fprintln(w, s)
		}
		return Nil, nil
	}, -1)

	obj.DefineMethod("p", func(st *State, self Value, args []Value) (Value, error) {
		for _, a := range args {
			s, err := st.Inspect(a)
			if err != nil {
				return Nil, err
			}
			fmt.Fprintln(w, s)
		}
		switch len(args) {
		case 0:
			return Nil, nil
		case 1:
			return args[0], nil
		}
		return st.AryNewFrom(asRValues(args)...).Value(), nil
	}, -1)
}

func asRValues(vs []Value) []RValue {
	out := make([]RValue, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func init() {
	Gem("print", func(st *State) error {
		st.DefinePrintMethods(os.Stdout)
		return nil
	})
}
