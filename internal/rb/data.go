package rb

// DataType describes a native payload wrapped in a T_DATA object
type DataType struct {
	Name    string
	Parent  *DataType
	Mark    func(vm *VM, data any)
	Free    func(data any)
	Size    func(data any) int
	Compact func(vm *VM, data any)

	// FreeImmediately runs Free during the sweep instead of deferring it
	// to the next collection.
	FreeImmediately bool
}

type dataBody struct {
	typ   *DataType
	data  any
	ivars []ivar
}

// Callable payloads make a Proc callable
type Callable interface {
	Call(vm *VM, self VALUE, args []VALUE) VALUE
}

// DataTypedObjectWrap wraps data. A Qnull klass makes a hidden object.
func (vm *VM) DataTypedObjectWrap(klass VALUE, data any, t *DataType) VALUE {
	return vm.newobj(klass, TData, &dataBody{typ: t, data: data})
}

// TypedDataP reports whether v is typed data
func (vm *VM) TypedDataP(v VALUE) bool {
	if vm.BuiltinType(v) != TData {
		return false
	}
	return vm.slot(v).body.(*dataBody).typ != nil
}

// RTypedDataType returns the descriptor of typed data
func (vm *VM) RTypedDataType(v VALUE) *DataType {
	vm.CheckType(v, TData)
	return vm.slot(v).body.(*dataBody).typ
}

// DataGet returns the payload of a T_DATA object
func (vm *VM) DataGet(v VALUE) any {
	vm.CheckType(v, TData)
	return vm.slot(v).body.(*dataBody).data
}

// TypedDataIsKindOf reports whether v is typed data of t or a child of t
func (vm *VM) TypedDataIsKindOf(v VALUE, t *DataType) bool {
	if !vm.TypedDataP(v) {
		return false
	}
	for dt := vm.RTypedDataType(v); dt != nil; dt = dt.Parent {
		if dt == t {
			return true
		}
	}
	return false
}

// CheckTypedData returns the payload of v or raises TypeError
func (vm *VM) CheckTypedData(v VALUE, t *DataType) any {
	if !vm.TypedDataIsKindOf(v, t) {
		actual := vm.builtinClassName(v)
		if vm.TypedDataP(v) && vm.ClassOf(v) == Qnull {
			actual = vm.RTypedDataType(v).Name
		}
		vm.Raise(vm.global.eTypeError, "wrong argument type %s (expected %s)", actual, t.Name)
	}
	return vm.DataGet(v)
}

func (vm *VM) initProc() {
	vm.DefineMethod(vm.global.cProc, "call", func(vm *VM, self VALUE, args []VALUE) VALUE {
		c, ok := vm.DataGet(self).(Callable)
		if !ok {
			vm.Raise(vm.global.eTypeError, "wrong argument type %s (expected Proc)", vm.ObjClassname(self))
		}
		return c.Call(vm, self, args)
	}, -1)
	vm.DefineMethod(vm.global.cProc, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew("#<Proc:" + hexAddr(self) + " (native)>")
	}, 0)
	vm.DefineMethod(vm.global.cProc, "to_proc", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return self
	}, 0)
}
