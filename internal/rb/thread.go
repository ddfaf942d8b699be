package rb

import (
	"sync"
	"time"

	"github.com/petermattis/goid"
)

// gvl is a FIFO ticket lock. Only the owner runs Ruby code.
type gvl struct {
	mu      sync.Mutex
	cond    *sync.Cond
	owner   *Thread
	next    uint64
	serving uint64
}

func (g *gvl) init() { g.cond = sync.NewCond(&g.mu) }

func (g *gvl) acquire(th *Thread) {
	g.mu.Lock()
	t := g.next
	g.next++
	for g.serving != t {
		g.cond.Wait()
	}
	g.owner = th
	g.mu.Unlock()
}

func (g *gvl) release() {
	g.mu.Lock()
	g.owner = nil
	g.serving++
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *gvl) waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next-g.serving > 1
}

func (g *gvl) currentOwner() *Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// Thread states
const (
	ThreadRunnable = iota
	ThreadStopped
	ThreadStoppedForever
	ThreadKilled
)

type pending struct {
	kill  bool
	exc   VALUE
	class VALUE
	msg   string
}

// Thread is a green thread. Its fields are guarded by the GVL except the
// pending interrupt queue, which other goroutines may append to.
type Thread struct {
	vm      *VM
	self    VALUE
	frames  []*frame
	errinfo VALUE
	status  int
	goid    int64

	result VALUE
	exc    VALUE
	killed bool
	keep   VALUE

	intMu sync.Mutex
	pend  []pending
	wake  chan struct{}
	done  chan struct{}
}

// Goid returns the goroutine id running the thread
func (th *Thread) Goid() int64 { return th.goid }

// Self returns the Thread object
func (th *Thread) Self() VALUE { return th.self }

func (th *Thread) markRunning() {
	th.goid = goid.Get()
	th.status = ThreadRunnable
}

func (th *Thread) interrupt(p pending) {
	th.intMu.Lock()
	th.pend = append(th.pend, p)
	th.intMu.Unlock()
	th.signal()
}

func (th *Thread) signal() {
	select {
	case th.wake <- struct{}{}:
	default:
	}
}

func (th *Thread) hasPending() bool {
	th.intMu.Lock()
	defer th.intMu.Unlock()
	return len(th.pend) > 0
}

var threadDataType = &DataType{
	Name: "VM/thread",
	Mark: func(vm *VM, data any) {
		th := data.(*Thread)
		for _, v := range []VALUE{th.result, th.exc, th.keep, th.errinfo} {
			vm.GCMark(v)
		}
		th.intMu.Lock()
		for _, p := range th.pend {
			vm.GCMark(p.exc)
		}
		th.intMu.Unlock()
	},
	Size: func(data any) int { return 256 },
}

func (vm *VM) initThreads() {
	c := vm.global.cThread
	vm.main.self = vm.DataTypedObjectWrap(c, vm.main, threadDataType)
	vm.DefineAllocFunc(c, func(vm *VM, klass VALUE) VALUE {
		vm.Raise(vm.global.eTypeError, "allocator undefined for Thread")
		return Qnil
	})
	vm.DefineMethod(c, "alive?", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.ThreadAlive(self))
	}, 0)
	vm.DefineMethod(c, "value", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ThreadValue(self)
	}, 0)
	vm.DefineMethod(c, "wakeup", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ThreadWakeup(self)
	}, 0)
	vm.DefineMethod(c, "kill", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.ThreadKill(self)
	}, 0)
	vm.DefineMethod(c, "status", func(vm *VM, self VALUE, args []VALUE) VALUE {
		s, ok := vm.ThreadStatus(self)
		if !ok {
			if vm.threadPtr(self).exc != Qnull {
				return Qnil
			}
			return Qfalse
		}
		return vm.StrNew(s)
	}, 0)
	vm.DefineMethod(c, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		s, ok := vm.ThreadStatus(self)
		if !ok {
			s = "dead"
		}
		return vm.StrNew("#<Thread:" + hexAddr(self) + " " + s + ">")
	}, 0)
}

func (vm *VM) threadPtr(v VALUE) *Thread {
	return vm.CheckTypedData(v, threadDataType).(*Thread)
}

// ThreadP reports whether v is a Thread
func (vm *VM) ThreadP(v VALUE) bool {
	return vm.TypedDataIsKindOf(v, threadDataType)
}

// ThreadOf returns the Go side of a Thread object
func (vm *VM) ThreadOf(v VALUE) *Thread { return vm.threadPtr(v) }

// Owner returns the thread holding the GVL. Safe from any goroutine.
func (vm *VM) Owner() *Thread { return vm.gvl.currentOwner() }

// ThreadCreate starts fn on a new green thread. keep is marked for as long
// as the thread object is alive.
func (vm *VM) ThreadCreate(fn func() VALUE, keep VALUE) VALUE {
	vm.checkNoView("thread creation")
	th := &Thread{
		vm:     vm,
		frames: []*frame{{}},
		keep:   keep,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	th.self = vm.DataTypedObjectWrap(vm.global.cThread, th, threadDataType)
	vm.threads = append(vm.threads, th)
	go vm.threadStart(th, fn)
	return th.self
}

func (vm *VM) threadStart(th *Thread, fn func() VALUE) {
	vm.gvl.acquire(th)
	th.markRunning()
	res, state := vm.Protect(fn)
	switch state {
	case TagNone:
		th.result = res
	case TagFatal:
		th.killed = true
		if vm.IsException(th.errinfo) {
			th.exc = th.errinfo
		}
	default:
		th.result = Qnil
		if vm.IsException(th.errinfo) {
			th.exc = th.errinfo
		}
	}
	th.status = ThreadKilled
	th.frames = nil
	th.keep = Qnull
	th.errinfo = Qnull
	for i, t := range vm.threads {
		if t == th {
			vm.threads = append(vm.threads[:i], vm.threads[i+1:]...)
			break
		}
	}
	close(th.done)
	vm.gvl.release()
}

// CheckInts delivers a pending interrupt to the current thread
func (vm *VM) CheckInts() {
	th := vm.cur()
	if th == nil {
		return
	}
	th.intMu.Lock()
	if len(th.pend) == 0 {
		th.intMu.Unlock()
		return
	}
	p := th.pend[0]
	th.pend = th.pend[1:]
	th.intMu.Unlock()
	switch {
	case p.kill:
		panic(&jumpTag{state: TagFatal, val: Qundef})
	case p.exc != Qnull:
		vm.ExcRaise(p.exc)
	case p.class != Qnull:
		vm.Raise(p.class, "%s", p.msg)
	}
}

// ThreadCurrent returns the running Thread object
func (vm *VM) ThreadCurrent() VALUE { return vm.cur().self }

// ThreadMain returns the main Thread object
func (vm *VM) ThreadMain() VALUE { return vm.main.self }

// ThreadAlone reports whether only one thread is alive
func (vm *VM) ThreadAlone() bool { return len(vm.threads) == 0 }

// ThreadAlive reports whether the thread has not finished
func (vm *VM) ThreadAlive(v VALUE) bool {
	return vm.threadPtr(v).status != ThreadKilled
}

// ThreadStatus returns "run" or "sleep", with false for a dead thread
func (vm *VM) ThreadStatus(v VALUE) (string, bool) {
	th := vm.threadPtr(v)
	switch th.status {
	case ThreadRunnable:
		return "run", true
	case ThreadStopped, ThreadStoppedForever:
		return "sleep", true
	}
	return "", false
}

// ThreadSchedule lets other runnable threads run
func (vm *VM) ThreadSchedule() {
	vm.checkNoView("thread switch")
	th := vm.cur()
	if vm.gvl.waiting() {
		vm.gvl.release()
		vm.gvl.acquire(th)
	}
	vm.CheckInts()
}

// ThreadWaitFor sleeps the current thread for d. A wakeup ends the sleep
// early; an interrupt raises.
func (vm *VM) ThreadWaitFor(d time.Duration) { vm.threadSleep(d, false, false) }

// ThreadSleepForever sleeps until woken, raising fatal when no other
// thread could wake it.
func (vm *VM) ThreadSleepForever() { vm.threadSleep(0, true, false) }

// ThreadSleepDeadly sleeps until woken without the deadlock check
func (vm *VM) ThreadSleepDeadly() { vm.threadSleep(0, true, true) }

// ThreadStop stops the current thread until woken
func (vm *VM) ThreadStop() {
	if vm.ThreadAlone() && vm.cur() == vm.main {
		vm.Raise(vm.global.eThreadError, "stopping only thread\n\tnote: use sleep to stop forever")
	}
	vm.threadSleep(0, true, false)
}

func (vm *VM) threadSleep(d time.Duration, forever, deadly bool) {
	vm.checkNoView("thread switch")
	th := vm.cur()
	vm.CheckInts()
	if forever && !deadly && vm.wouldDeadlock(th) {
		vm.Fatal("No live threads left. Deadlock?")
	}
	select {
	case <-th.wake:
	default:
	}
	if th.hasPending() {
		vm.CheckInts()
		return
	}
	if forever {
		th.status = ThreadStoppedForever
	} else {
		th.status = ThreadStopped
	}
	vm.gvl.release()
	if forever {
		<-th.wake
	} else {
		t := time.NewTimer(d)
		select {
		case <-th.wake:
		case <-t.C:
		}
		t.Stop()
	}
	vm.gvl.acquire(th)
	th.status = ThreadRunnable
	vm.CheckInts()
}

func (vm *VM) wouldDeadlock(cur *Thread) bool {
	for _, th := range append([]*Thread{vm.main}, vm.threads...) {
		if th == cur {
			continue
		}
		switch th.status {
		case ThreadRunnable, ThreadStopped:
			return false
		}
	}
	return true
}

// ThreadWakeup makes a sleeping thread eligible to run. Raises ThreadError
// for a dead thread.
func (vm *VM) ThreadWakeup(v VALUE) VALUE {
	th := vm.threadPtr(v)
	if th.status == ThreadKilled {
		vm.Raise(vm.global.eThreadError, "killed thread")
	}
	th.signal()
	return v
}

// ThreadWakeupAlive is ThreadWakeup that ignores dead threads
func (vm *VM) ThreadWakeupAlive(v VALUE) VALUE {
	th := vm.threadPtr(v)
	if th.status == ThreadKilled {
		return Qnil
	}
	th.signal()
	return v
}

// ThreadRun wakes the thread and yields to it
func (vm *VM) ThreadRun(v VALUE) VALUE {
	vm.ThreadWakeup(v)
	vm.ThreadSchedule()
	return v
}

// ThreadKill terminates a thread. Killing the current thread unwinds it
// immediately.
func (vm *VM) ThreadKill(v VALUE) VALUE {
	th := vm.threadPtr(v)
	if th.status == ThreadKilled {
		return v
	}
	if th == vm.cur() {
		panic(&jumpTag{state: TagFatal, val: Qundef})
	}
	th.interrupt(pending{kill: true})
	return v
}

// ThreadRaise makes the thread raise exc at its next interrupt check
func (vm *VM) ThreadRaise(v, exc VALUE) VALUE {
	th := vm.threadPtr(v)
	if th.status == ThreadKilled {
		return Qnil
	}
	if th == vm.cur() {
		vm.ExcRaise(exc)
	}
	th.interrupt(pending{exc: exc})
	return Qnil
}

// ThreadInterruptMain queues an exception of klass for the main thread.
// Safe to call from any goroutine; klass must be a class object.
func (vm *VM) ThreadInterruptMain(klass VALUE, msg string) {
	vm.main.interrupt(pending{class: klass, msg: msg})
}

// ThreadValue waits for the thread to finish and returns its value,
// re-raising the exception that terminated it.
func (vm *VM) ThreadValue(v VALUE) VALUE {
	vm.ThreadJoin(v, 0, false)
	th := vm.threadPtr(v)
	if th.exc != Qnull && !th.killed {
		vm.ExcRaise(th.exc)
	}
	if th.killed {
		return Qnil
	}
	return th.result
}

// ThreadJoin waits for the thread, for at most d when limited. It returns
// Qnil on timeout and the thread otherwise.
func (vm *VM) ThreadJoin(v VALUE, d time.Duration, limited bool) VALUE {
	vm.checkNoView("thread switch")
	th := vm.threadPtr(v)
	cur := vm.cur()
	if th == cur {
		vm.Raise(vm.global.eThreadError, "Target thread must not be current thread")
	}
	if th == vm.main {
		vm.Raise(vm.global.eThreadError, "Target thread must not be main thread")
	}
	var deadline <-chan time.Time
	if limited {
		t := time.NewTimer(d)
		defer t.Stop()
		deadline = t.C
	}
	for th.status != ThreadKilled {
		vm.CheckInts()
		select {
		case <-cur.wake:
		default:
		}
		if cur.hasPending() {
			continue
		}
		cur.status = ThreadStoppedForever
		vm.gvl.release()
		timeout := false
		select {
		case <-th.done:
		case <-cur.wake:
		case <-deadline:
			timeout = true
		}
		vm.gvl.acquire(cur)
		cur.status = ThreadRunnable
		if timeout {
			vm.CheckInts()
			return Qnil
		}
	}
	vm.CheckInts()
	return v
}
