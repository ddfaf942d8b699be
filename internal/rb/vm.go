package rb

import (
	"fmt"
	"sync"
)

// Options configure a new VM
type Options struct {
	InitialSlots      int
	GrowthFactor      float64
	FreeSlotsMinRatio float64
	Stress            bool
	Disabled          bool
	AutoCompact       bool
}

// GCEvent describes a finished collection
type GCEvent struct {
	Count   int
	Marked  int
	Freed   int
	Moved   int
	Zombies int
	Compact bool
}

// VM is one Ruby virtual machine
type VM struct {
	os  objspace
	gvl gvl

	main    *Thread
	threads []*Thread

	symMu   sync.Mutex
	symbols map[string]ID
	names   []string

	classes map[string]VALUE
	global  globalClasses

	viewLocks int
	closed    bool

	// OnGC is called after every collection
	OnGC func(GCEvent)
}

type globalClasses struct {
	cBasicObject, cObject, cModule, cClass         VALUE
	cInteger, cFloat, cString, cSymbol, cArray     VALUE
	cNilClass, cTrueClass, cFalseClass, cProc      VALUE
	cThread, cIO, cFile, cComparable, cKernel      VALUE
	eException, eStandardError, eRuntimeError      VALUE
	eArgumentError, eTypeError, eRangeError        VALUE
	eFloatDomainError, eIndexError, eKeyError      VALUE
	eFrozenError, eZeroDivError, eNoMethodError    VALUE
	eNameError, eThreadError, eInterrupt, eSignal  VALUE
	eNotImpError, eFatal, eIOError, eStopIteration VALUE
	eScriptError, eNoMemError, eSecurityError      VALUE
	eLocalJumpError, eSystemExit, eSystemCallError VALUE
}

// NewVM boots a VM on the calling goroutine, which becomes the main thread
// and holds the GVL on return.
func NewVM(o Options) *VM {
	if o.InitialSlots <= 0 {
		o.InitialSlots = 10000
	}
	if o.GrowthFactor < 1.1 {
		o.GrowthFactor = 1.8
	}
	if o.FreeSlotsMinRatio <= 0 {
		o.FreeSlotsMinRatio = 0.20
	}
	vm := &VM{
		symbols: map[string]ID{},
		names:   []string{""},
		classes: map[string]VALUE{},
	}
	vm.gvl.init()
	vm.os = objspace{
		enabled:       false,
		initialSlots:  o.InitialSlots,
		growthFactor:  o.GrowthFactor,
		freeMinRatio:  o.FreeSlotsMinRatio,
		nextThreshold: o.InitialSlots,
		registered:    map[*VALUE]struct{}{},
	}
	for n := 0; n < o.InitialSlots; n += PageSlots {
		vm.os.addPage()
	}

	vm.main = &Thread{vm: vm, wake: make(chan struct{}, 1), done: make(chan struct{})}
	vm.main.frames = []*frame{{}}
	vm.gvl.acquire(vm.main)
	vm.main.markRunning()

	vm.initClasses()
	vm.initThreads()
	// Boot objects stay in frame 0; top-level code gets its own frame so
	// ReleaseLocals there cannot unroot them.
	vm.PushFrame()

	vm.os.stress = o.Stress
	vm.os.autoCompact = o.AutoCompact
	vm.os.enabled = !o.Disabled
	return vm
}

// Close releases the GVL held by the main thread and kills every other
// thread.
func (vm *VM) Close() {
	if vm.closed {
		return
	}
	vm.closed = true
	vm.finalizeZombies()
	for _, th := range append([]*Thread(nil), vm.threads...) {
		if th != vm.main {
			th.interrupt(pending{kill: true})
		}
	}
	vm.gvl.release()
}

// Closed reports whether Close was called
func (vm *VM) Closed() bool { return vm.closed }

type frame struct {
	locals    []VALUE
	locations [][]VALUE
}

func (vm *VM) cur() *Thread { return vm.gvl.owner }

func (vm *VM) pushLocal(v VALUE) {
	th := vm.gvl.owner
	if th == nil || len(th.frames) == 0 {
		return
	}
	f := th.frames[len(th.frames)-1]
	f.locals = append(f.locals, v)
}

// PushLocal roots v in the current frame
func (vm *VM) PushLocal(v VALUE) {
	if vm.os.lookup(v) != nil {
		vm.pushLocal(v)
	}
}

// PushLocations registers a word region to be scanned conservatively while
// the current frame is live. The returned func unregisters it.
func (vm *VM) PushLocations(words []VALUE) func() {
	th := vm.cur()
	f := th.frames[len(th.frames)-1]
	f.locations = append(f.locations, words)
	n := len(f.locations) - 1
	return func() {
		f.locations[n] = nil
	}
}

// PushFrame opens a root frame on the current thread
func (vm *VM) PushFrame() int {
	th := vm.cur()
	th.frames = append(th.frames, &frame{})
	return len(th.frames) - 1
}

// PopFrame drops frames down to depth
func (vm *VM) PopFrame(depth int) {
	th := vm.cur()
	for i := depth; i < len(th.frames); i++ {
		th.frames[i] = nil
	}
	th.frames = th.frames[:depth]
}

// ReleaseLocals unroots the values recorded in the current frame.
// Registered word regions stay.
func (vm *VM) ReleaseLocals() {
	th := vm.cur()
	f := th.frames[len(th.frames)-1]
	clear(f.locals)
	f.locals = f.locals[:0]
}

// FrameDepth returns the current thread's frame depth
func (vm *VM) FrameDepth() int { return len(vm.cur().frames) }

// BeginView forbids allocation, mutation, collection and thread switching
// until EndView.
func (vm *VM) BeginView() { vm.viewLocks++ }

// EndView ends a BeginView
func (vm *VM) EndView() { vm.viewLocks-- }

func (vm *VM) checkNoView(op string) {
	if vm.viewLocks > 0 {
		panic(fmt.Sprintf("rb: %s while an array view is borrowed", op))
	}
}

func (vm *VM) bug(format string, args ...interface{}) {
	panic("[BUG] " + fmt.Sprintf(format, args...))
}

// Intern returns the id of a symbol name
func (vm *VM) Intern(name string) ID {
	vm.symMu.Lock()
	defer vm.symMu.Unlock()
	if id, ok := vm.symbols[name]; ok {
		return id
	}
	id := ID(len(vm.names))
	vm.names = append(vm.names, name)
	vm.symbols[name] = id
	return id
}

// IDName returns the name of id
func (vm *VM) IDName(id ID) string {
	vm.symMu.Lock()
	defer vm.symMu.Unlock()
	if int(id) >= len(vm.names) {
		return ""
	}
	return vm.names[id]
}

// Sym returns the static symbol for name
func (vm *VM) Sym(name string) VALUE { return ID2Sym(vm.Intern(name)) }
