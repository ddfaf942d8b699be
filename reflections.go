package crb

import (
	"reflect"
	"strings"

	"github.com/oruby/crb/internal/rb"
)

// DefineMethodFunc defines a method from an ordinary Go function.
// Arguments are converted with Scan, the first result with TryValue, and a
// trailing error result is raised.
func (c RClass) DefineMethodFunc(name string, fn any) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		panic("crb: DefineMethodFunc needs a function, got " + fv.Kind().String())
	}
	arity := fv.Type().NumIn()
	if fv.Type().IsVariadic() {
		arity = -1
	}
	c.DefineMethod(name, func(st *State, self Value, args []Value) (Value, error) {
		return st.callFunc(fv, nil, args)
	}, arity)
}

// DefineGoClass defines class name for Go type T. Instances wrap a *T.
// new passes its arguments to constructor, a function returning *T and
// optionally an error; a nil constructor leaves the zero T.
//
// Exported methods of *T become snake_cased Ruby methods: IsEmpty is also
// reachable as empty?, SortBang as sort!. Exported struct fields get a
// getter and a setter.
func DefineGoClass[T any](st *State, name string, constructor any) (RClass, *DataType[T], error) {
	dt := NewDataType[T](name)
	c, err := dt.DefineClass(st, name, RClass{})
	if err != nil {
		return RClass{}, nil, err
	}
	st.vm.DefineAllocFunc(c.v, func(vm *rb.VM, klass rb.VALUE) rb.VALUE {
		return vm.DataTypedObjectWrap(klass, new(T), dt.rt)
	})

	if constructor != nil {
		ctor := reflect.ValueOf(constructor)
		ct := ctor.Type()
		if ct.Kind() != reflect.Func || ct.NumOut() == 0 || ct.Out(0) != reflect.TypeFor[*T]() {
			return RClass{}, nil, ArgumentError("constructor for %s must return *%s", name, reflect.TypeFor[T]())
		}
		arity := ct.NumIn()
		if ct.IsVariadic() {
			arity = -1
		}
		c.DefineMethod("initialize", func(st *State, self Value, args []Value) (Value, error) {
			ptr, err := GetData(st, self, dt)
			if err != nil {
				return Nil, err
			}
			res, err := callConstructor(st, ctor, args)
			if err != nil {
				return Nil, err
			}
			*ptr = *res.(*T)
			return Nil, nil
		}, arity)
	}

	populate(st, c, dt)
	return c, dt, nil
}

func callConstructor(st *State, ctor reflect.Value, args []Value) (any, error) {
	params, err := st.scanArgs(ctor.Type(), nil, args)
	if err != nil {
		return nil, err
	}
	result, err := splitError(ctor.Type(), ctor.Call(params))
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || result[0].IsNil() {
		return nil, RuntimeError("constructor failed to return Go value")
	}
	return result[0].Interface(), nil
}

func populate[T any](st *State, c RClass, dt *DataType[T]) {
	pt := reflect.TypeFor[*T]()
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		if !m.IsExported() {
			continue
		}
		fn := m.Func
		arity := m.Type.NumIn() - 1
		if m.Type.IsVariadic() {
			arity = -1
		}
		body := func(st *State, self Value, args []Value) (Value, error) {
			ptr, err := GetData(st, self, dt)
			if err != nil {
				return Nil, err
			}
			return st.callFunc(fn, []reflect.Value{reflect.ValueOf(ptr)}, args)
		}
		sName := SnakeCase(m.Name)
		c.DefineMethod(sName, body, arity)
		if strings.HasPrefix(sName, "is_") {
			c.DefineMethod(sName[3:]+"?", body, arity)
		}
		if strings.HasSuffix(sName, "_bang") {
			c.DefineMethod(sName[:len(sName)-5]+"!", body, arity)
		}
	}

	tt := pt.Elem()
	if tt.Kind() != reflect.Struct {
		return
	}
	for i := range tt.NumField() {
		f := tt.Field(i)
		if !f.IsExported() {
			continue
		}
		idx := i
		sName := SnakeCase(f.Name)
		c.DefineMethod(sName, func(st *State, self Value, args []Value) (Value, error) {
			ptr, err := GetData(st, self, dt)
			if err != nil {
				return Nil, err
			}
			return st.TryValue(reflect.ValueOf(ptr).Elem().Field(idx).Interface())
		}, 0)
		c.DefineMethod(sName+"=", func(st *State, self Value, args []Value) (Value, error) {
			ptr, err := GetData(st, self, dt)
			if err != nil {
				return Nil, err
			}
			field := reflect.ValueOf(ptr).Elem().Field(idx)
			p := reflect.New(field.Type())
			if err := st.Scan(args[0], p.Interface()); err != nil {
				return Nil, err
			}
			field.Set(p.Elem())
			return args[0], nil
		}, 1)
	}
}
