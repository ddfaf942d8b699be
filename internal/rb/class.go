package rb

// MethodFunc is a native method body. args excludes self.
type MethodFunc func(vm *VM, self VALUE, args []VALUE) VALUE

type method struct {
	fn    MethodFunc
	arity int
}

type classBody struct {
	name      string
	super     VALUE
	module    bool
	instType  int
	methods   map[ID]*method
	includes  []VALUE
	ivars     []ivar
	allocator func(vm *VM, klass VALUE) VALUE
}

func (vm *VM) classBody(c VALUE) *classBody {
	b, ok := vm.slot(c).body.(*classBody)
	if !ok {
		vm.bug("not a class: %#x", uint64(c))
	}
	return b
}

func (vm *VM) newClass(name string, super VALUE, module bool) VALUE {
	t := uint64(TClass)
	klass := vm.global.cClass
	if module {
		t = TModule
		klass = vm.global.cModule
	}
	body := &classBody{name: name, super: super, module: module, methods: map[ID]*method{}, instType: TObject}
	if super != Qnull {
		sb := vm.classBody(super)
		body.instType = sb.instType
		body.allocator = sb.allocator
	}
	c := vm.newobj(klass, t, body)
	if name != "" {
		vm.classes[name] = c
	}
	return c
}

// DefineClass defines (or reopens) a top level class
func (vm *VM) DefineClass(name string, super VALUE) VALUE {
	if c, ok := vm.classes[name]; ok {
		if vm.BuiltinType(c) != TClass {
			vm.Raise(vm.global.eTypeError, "%s is not a class", name)
		}
		if super != Qnull && vm.classBody(c).super != super {
			vm.Raise(vm.global.eTypeError, "superclass mismatch for class %s", name)
		}
		return c
	}
	if super == Qnull {
		super = vm.global.cObject
	}
	return vm.newClass(name, super, false)
}

// DefineModule defines (or reopens) a top level module
func (vm *VM) DefineModule(name string) VALUE {
	if c, ok := vm.classes[name]; ok {
		return c
	}
	return vm.newClass(name, Qnull, true)
}

// IncludeModule adds mod to the lookup chain of klass
func (vm *VM) IncludeModule(klass, mod VALUE) {
	b := vm.classBody(klass)
	for _, m := range b.includes {
		if m == mod {
			return
		}
	}
	b.includes = append(b.includes, mod)
}

// ClassGet returns a top level class by name, or Qnil
func (vm *VM) ClassGet(name string) VALUE {
	if c, ok := vm.classes[name]; ok {
		return c
	}
	return Qnil
}

// DefineMethod adds a native method. arity -1 takes any number of args.
func (vm *VM) DefineMethod(klass VALUE, name string, fn MethodFunc, arity int) {
	vm.classBody(klass).methods[vm.Intern(name)] = &method{fn: fn, arity: arity}
}

// UndefMethod removes a method from klass
func (vm *VM) UndefMethod(klass VALUE, name string) {
	delete(vm.classBody(klass).methods, vm.Intern(name))
}

// DefineAllocFunc sets the allocator used by ObjAlloc for klass
func (vm *VM) DefineAllocFunc(klass VALUE, fn func(vm *VM, klass VALUE) VALUE) {
	vm.classBody(klass).allocator = fn
}

// MethodDefined reports whether klass or an ancestor defines id
func (vm *VM) MethodDefined(klass VALUE, id ID) bool { return vm.findMethod(klass, id) != nil }

func (vm *VM) findMethod(klass VALUE, id ID) *method {
	for c := klass; c != Qnull; c = vm.classBody(c).super {
		b := vm.classBody(c)
		if m, ok := b.methods[id]; ok {
			return m
		}
		for i := len(b.includes) - 1; i >= 0; i-- {
			if m, ok := vm.classBody(b.includes[i]).methods[id]; ok {
				return m
			}
		}
	}
	return nil
}

// ClassOf returns the class of any value. Hidden objects return Qnull.
func (vm *VM) ClassOf(v VALUE) VALUE {
	g := &vm.global
	switch {
	case FixnumP(v):
		return g.cInteger
	case FlonumP(v):
		return g.cFloat
	case StaticSymP(v):
		return g.cSymbol
	case v == Qnil:
		return g.cNilClass
	case v == Qtrue:
		return g.cTrueClass
	case v == Qfalse:
		return g.cFalseClass
	case v == Qundef || v == Qnull:
		return Qnull
	}
	return vm.slot(v).klass
}

// ClassReal skips singleton and include classes. There are none here, so
// it is the identity for every class.
func (vm *VM) ClassReal(c VALUE) VALUE { return c }

// ClassSuper returns the superclass of c
func (vm *VM) ClassSuper(c VALUE) VALUE {
	s := vm.classBody(c).super
	if s == Qnull {
		return Qnil
	}
	return s
}

// ClassName returns the name of a class
func (vm *VM) ClassName(c VALUE) string {
	if c == Qnull {
		return ""
	}
	if vm.os.lookup(c) == nil {
		return ""
	}
	b, ok := vm.slot(c).body.(*classBody)
	if !ok {
		return ""
	}
	if b.name == "" {
		return "#<Class:" + hexAddr(c) + ">"
	}
	return b.name
}

// ObjClassname returns the class name of v
func (vm *VM) ObjClassname(v VALUE) string {
	return vm.ClassName(vm.ClassOf(v))
}

// ClassInherited reports whether c is sup or a subclass of it
func (vm *VM) ClassInherited(c, sup VALUE) bool {
	for ; c != Qnull; c = vm.classBody(c).super {
		if c == sup {
			return true
		}
		for _, m := range vm.classBody(c).includes {
			if m == sup {
				return true
			}
		}
	}
	return false
}

// ObjIsKindOf reports whether v is an instance of c or of a subclass
func (vm *VM) ObjIsKindOf(v, c VALUE) bool {
	k := vm.ClassOf(v)
	if k == Qnull {
		return false
	}
	return vm.ClassInherited(k, c)
}

// ObjIsInstanceOf reports whether the class of v is exactly c
func (vm *VM) ObjIsInstanceOf(v, c VALUE) bool {
	return vm.ClassOf(v) == c
}

// RespondTo reports whether v has a public method named id
func (vm *VM) RespondTo(v VALUE, id ID) bool {
	k := vm.ClassOf(v)
	if k == Qnull {
		return false
	}
	return vm.findMethod(k, id) != nil
}

// Funcall calls method id on recv. Errors raise.
func (vm *VM) Funcall(recv VALUE, id ID, args ...VALUE) VALUE {
	vm.checkNoView("method call")
	k := vm.ClassOf(recv)
	if k == Qnull {
		vm.Raise(vm.global.eNoMethodError, "undefined method '%s' for hidden object", vm.IDName(id))
	}
	m := vm.findMethod(k, id)
	if m == nil {
		vm.Raise(vm.global.eNoMethodError, "undefined method '%s' for an instance of %s",
			vm.IDName(id), vm.ClassName(k))
	}
	if m.arity >= 0 && len(args) != m.arity {
		vm.Raise(vm.global.eArgumentError, "wrong number of arguments (given %d, expected %d)",
			len(args), m.arity)
	}
	return m.fn(vm, recv, args)
}

// CheckFuncall calls id when recv responds to it and returns Qundef
// otherwise.
func (vm *VM) CheckFuncall(recv VALUE, id ID, args ...VALUE) VALUE {
	if !vm.RespondTo(recv, id) {
		return Qundef
	}
	return vm.Funcall(recv, id, args...)
}

// ObjAlloc allocates an instance of klass through its allocator
func (vm *VM) ObjAlloc(klass VALUE) VALUE {
	b := vm.classBody(klass)
	if b.module {
		vm.Raise(vm.global.eTypeError, "can't instantiate module %s", b.name)
	}
	if b.allocator != nil {
		return b.allocator(vm, klass)
	}
	return vm.newobj(klass, TObject, &objectBody{})
}

// ClassNewInstance allocates and calls initialize
func (vm *VM) ClassNewInstance(klass VALUE, args ...VALUE) VALUE {
	obj := vm.ObjAlloc(klass)
	init := vm.Intern("initialize")
	if m := vm.findMethod(klass, init); m != nil {
		vm.Funcall(obj, init, args...)
	}
	return obj
}

func (vm *VM) initClasses() {
	g := &vm.global
	// BasicObject, Object, Module and Class refer to each other, so their
	// klass is patched once all four exist.
	g.cBasicObject = vm.newobj(Qnull, TClass, &classBody{name: "BasicObject", methods: map[ID]*method{}, instType: TObject})
	vm.classes["BasicObject"] = g.cBasicObject
	g.cObject = vm.newobj(Qnull, TClass, &classBody{name: "Object", super: g.cBasicObject, methods: map[ID]*method{}, instType: TObject})
	vm.classes["Object"] = g.cObject
	g.cModule = vm.newobj(Qnull, TClass, &classBody{name: "Module", super: g.cObject, methods: map[ID]*method{}, instType: TModule})
	vm.classes["Module"] = g.cModule
	g.cClass = vm.newobj(Qnull, TClass, &classBody{name: "Class", super: g.cModule, methods: map[ID]*method{}, instType: TClass})
	vm.classes["Class"] = g.cClass
	for _, c := range []VALUE{g.cBasicObject, g.cObject, g.cModule, g.cClass} {
		vm.slot(c).klass = g.cClass
	}

	g.cKernel = vm.DefineModule("Kernel")
	g.cComparable = vm.DefineModule("Comparable")
	vm.IncludeModule(g.cObject, g.cKernel)

	g.cInteger = vm.DefineClass("Integer", g.cObject)
	g.cFloat = vm.DefineClass("Float", g.cObject)
	g.cString = vm.DefineClass("String", g.cObject)
	g.cSymbol = vm.DefineClass("Symbol", g.cObject)
	g.cArray = vm.DefineClass("Array", g.cObject)
	g.cNilClass = vm.DefineClass("NilClass", g.cObject)
	g.cTrueClass = vm.DefineClass("TrueClass", g.cObject)
	g.cFalseClass = vm.DefineClass("FalseClass", g.cObject)
	g.cProc = vm.DefineClass("Proc", g.cObject)
	g.cIO = vm.DefineClass("IO", g.cObject)
	g.cFile = vm.DefineClass("File", g.cIO)
	g.cThread = vm.DefineClass("Thread", g.cObject)
	for _, c := range []VALUE{g.cInteger, g.cFloat, g.cString, g.cArray} {
		vm.IncludeModule(c, g.cComparable)
	}

	g.eException = vm.DefineClass("Exception", g.cObject)
	g.eScriptError = vm.DefineClass("ScriptError", g.eException)
	g.eNotImpError = vm.DefineClass("NotImplementedError", g.eScriptError)
	g.eNoMemError = vm.DefineClass("NoMemoryError", g.eException)
	g.eSecurityError = vm.DefineClass("SecurityError", g.eException)
	g.eSystemExit = vm.DefineClass("SystemExit", g.eException)
	g.eSignal = vm.DefineClass("SignalException", g.eException)
	g.eInterrupt = vm.DefineClass("Interrupt", g.eSignal)
	g.eFatal = vm.newClass("fatal", g.eException, false)
	g.eStandardError = vm.DefineClass("StandardError", g.eException)
	g.eRuntimeError = vm.DefineClass("RuntimeError", g.eStandardError)
	g.eFrozenError = vm.DefineClass("FrozenError", g.eRuntimeError)
	g.eArgumentError = vm.DefineClass("ArgumentError", g.eStandardError)
	g.eTypeError = vm.DefineClass("TypeError", g.eStandardError)
	g.eRangeError = vm.DefineClass("RangeError", g.eStandardError)
	g.eFloatDomainError = vm.DefineClass("FloatDomainError", g.eRangeError)
	g.eIndexError = vm.DefineClass("IndexError", g.eStandardError)
	g.eKeyError = vm.DefineClass("KeyError", g.eIndexError)
	g.eStopIteration = vm.DefineClass("StopIteration", g.eIndexError)
	g.eZeroDivError = vm.DefineClass("ZeroDivisionError", g.eStandardError)
	g.eNameError = vm.DefineClass("NameError", g.eStandardError)
	g.eNoMethodError = vm.DefineClass("NoMethodError", g.eNameError)
	g.eThreadError = vm.DefineClass("ThreadError", g.eStandardError)
	g.eIOError = vm.DefineClass("IOError", g.eStandardError)
	g.eLocalJumpError = vm.DefineClass("LocalJumpError", g.eStandardError)
	g.eSystemCallError = vm.DefineClass("SystemCallError", g.eStandardError)

	vm.initObject()
	vm.initNumeric()
	vm.initString()
	vm.initArray()
	vm.initProc()
	vm.initFile()
}

// Global class accessors

func (vm *VM) CBasicObject() VALUE      { return vm.global.cBasicObject }
func (vm *VM) CObject() VALUE           { return vm.global.cObject }
func (vm *VM) CModule() VALUE           { return vm.global.cModule }
func (vm *VM) CClass() VALUE            { return vm.global.cClass }
func (vm *VM) CInteger() VALUE          { return vm.global.cInteger }
func (vm *VM) CFloat() VALUE            { return vm.global.cFloat }
func (vm *VM) CString() VALUE           { return vm.global.cString }
func (vm *VM) CSymbol() VALUE           { return vm.global.cSymbol }
func (vm *VM) CArray() VALUE            { return vm.global.cArray }
func (vm *VM) CNilClass() VALUE         { return vm.global.cNilClass }
func (vm *VM) CProc() VALUE             { return vm.global.cProc }
func (vm *VM) CThread() VALUE           { return vm.global.cThread }
func (vm *VM) CIO() VALUE               { return vm.global.cIO }
func (vm *VM) CFile() VALUE             { return vm.global.cFile }
func (vm *VM) CComparable() VALUE       { return vm.global.cComparable }
func (vm *VM) EException() VALUE        { return vm.global.eException }
func (vm *VM) EStandardError() VALUE    { return vm.global.eStandardError }
func (vm *VM) ERuntimeError() VALUE     { return vm.global.eRuntimeError }
func (vm *VM) EArgumentError() VALUE    { return vm.global.eArgumentError }
func (vm *VM) ETypeError() VALUE        { return vm.global.eTypeError }
func (vm *VM) ERangeError() VALUE       { return vm.global.eRangeError }
func (vm *VM) EFloatDomainError() VALUE { return vm.global.eFloatDomainError }
func (vm *VM) EIndexError() VALUE       { return vm.global.eIndexError }
func (vm *VM) EKeyError() VALUE         { return vm.global.eKeyError }
func (vm *VM) EFrozenError() VALUE      { return vm.global.eFrozenError }
func (vm *VM) EZeroDivError() VALUE     { return vm.global.eZeroDivError }
func (vm *VM) ENoMethodError() VALUE    { return vm.global.eNoMethodError }
func (vm *VM) ENameError() VALUE        { return vm.global.eNameError }
func (vm *VM) EThreadError() VALUE      { return vm.global.eThreadError }
func (vm *VM) EInterrupt() VALUE        { return vm.global.eInterrupt }
func (vm *VM) ESignal() VALUE           { return vm.global.eSignal }
func (vm *VM) ENotImpError() VALUE      { return vm.global.eNotImpError }
func (vm *VM) EFatal() VALUE            { return vm.global.eFatal }
func (vm *VM) EIOError() VALUE          { return vm.global.eIOError }
func (vm *VM) EStopIteration() VALUE    { return vm.global.eStopIteration }
