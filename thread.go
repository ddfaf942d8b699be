package crb

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/oruby/crb/internal/rb"
)

// ThreadFunc is the body of a Ruby thread. Its result becomes the thread's
// value; an error terminates the thread with that exception.
type ThreadFunc func(st *State) (Value, error)

// Thread is a Ruby Thread
type Thread struct{ RObject }

// AsThread certifies v as a Thread
func (st *State) AsThread(v RValue) (Thread, bool) {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return Thread{}, false
	}
	st.checkLiveness(w)
	if !st.vm.ThreadP(w) {
		return Thread{}, false
	}
	return Thread{RObject{w, st}}, true
}

// ThreadCreate starts fn on a new Ruby thread. fn runs on its own
// goroutine, one at a time with other Ruby threads, and may use st
// freely. It starts running the next time the calling thread blocks or
// yields.
func (st *State) ThreadCreate(fn ThreadFunc) (Thread, error) {
	return st.ThreadCreateWith(fn)
}

// ThreadCreateWith is ThreadCreate for a body that uses values created
// outside it: keep holds them alive for as long as the thread object
// lives.
func (st *State) ThreadCreateWith(fn ThreadFunc, keep ...RValue) (Thread, error) {
	ws := make([]rb.VALUE, len(keep))
	for i, k := range keep {
		ws[i] = k.Value().v
		st.checkLiveness(ws[i])
	}
	v, err := st.protect(func() rb.VALUE {
		kept := rb.Qnil
		if len(ws) > 0 {
			st.vm.PushLocations(ws)
			kept = st.vm.ObjHide(st.vm.AryNewFromValues(ws))
		}
		return st.vm.ThreadCreate(st.threadBody(fn), kept)
	})
	if err != nil {
		return Thread{}, err
	}
	return Thread{RObject{v.v, st}}, nil
}

func (st *State) threadBody(fn ThreadFunc) func() rb.VALUE {
	return func() rb.VALUE {
		r, err := fn(st)
		if err != nil {
			var e *Error
			if !errors.As(err, &e) || e.Kind() != KindJump {
				st.log.Warn("thread terminated by error", zap.Error(err))
			}
			st.raise(err)
		}
		if r.IsNull() {
			return rb.Qnil
		}
		return r.v
	}
}

// ThreadCurrent returns the running thread
func (st *State) ThreadCurrent() Thread {
	st.checkThread()
	return Thread{RObject{st.vm.ThreadCurrent(), st}}
}

// ThreadMain returns the main thread
func (st *State) ThreadMain() Thread {
	return Thread{RObject{st.vm.ThreadMain(), st}}
}

// ThreadAlone reports whether the main thread is the only one alive
func (st *State) ThreadAlone() bool { return st.vm.ThreadAlone() }

// ThreadSchedule lets other runnable threads run
func (st *State) ThreadSchedule() error {
	return st.call(st.vm.ThreadSchedule)
}

// ThreadSleep sleeps the current thread for d or until woken. A kill or
// a raise from another thread comes back as an error.
func (st *State) ThreadSleep(d time.Duration) error {
	return st.call(func() { st.vm.ThreadWaitFor(d) })
}

// ThreadSleepForever sleeps until woken. With no other thread left to
// wake it, it fails with fatal "No live threads left. Deadlock?".
func (st *State) ThreadSleepForever() error {
	return st.call(st.vm.ThreadSleepForever)
}

// ThreadSleepDeadly sleeps until woken without the deadlock check; only
// an interrupt from outside Ruby, such as a trapped signal, ends it.
func (st *State) ThreadSleepDeadly() error {
	return st.call(st.vm.ThreadSleepDeadly)
}

// ThreadStop stops the current thread until woken
func (st *State) ThreadStop() error {
	return st.call(st.vm.ThreadStop)
}

// CheckInts delivers pending interrupts for the current thread
func (st *State) CheckInts() error {
	return st.call(st.vm.CheckInts)
}

// Kill terminates the thread. Killing the current thread returns an
// ErrJump error that the body must return to finish unwinding.
func (t Thread) Kill() error {
	w := t.raw()
	return t.st.call(func() { t.st.vm.ThreadKill(w) })
}

// Wakeup marks a sleeping thread runnable. Fails for a dead thread.
func (t Thread) Wakeup() error {
	w := t.raw()
	return t.st.call(func() { t.st.vm.ThreadWakeup(w) })
}

// WakeupAlive is Wakeup that ignores dead threads
func (t Thread) WakeupAlive() {
	t.st.vm.ThreadWakeupAlive(t.raw())
}

// Run wakes the thread and yields to it
func (t Thread) Run() error {
	w := t.raw()
	return t.st.call(func() { t.st.vm.ThreadRun(w) })
}

// Raise makes the thread raise err at its next interrupt check
func (t Thread) Raise(err error) error {
	w := t.raw()
	exc, e := t.st.exceptionFor(err)
	if e != nil {
		return e
	}
	return t.st.call(func() { t.st.vm.ThreadRaise(w, exc.v) })
}

// Result waits for the thread and returns its value, or the exception that
// ended it. A killed thread has value nil.
func (t Thread) Result() (Value, error) {
	w := t.raw()
	return t.st.protect(func() rb.VALUE { return t.st.vm.ThreadValue(w) })
}

// Join waits for the thread to finish
func (t Thread) Join() error {
	w := t.raw()
	return t.st.call(func() { t.st.vm.ThreadJoin(w, 0, false) })
}

// JoinTimeout waits at most d and reports whether the thread finished
func (t Thread) JoinTimeout(d time.Duration) (bool, error) {
	w := t.raw()
	r, err := t.st.protect(func() rb.VALUE { return t.st.vm.ThreadJoin(w, d, true) })
	if err != nil {
		return false, err
	}
	return !r.IsNil(), nil
}

// IsAlive reports whether the thread has not finished
func (t Thread) IsAlive() bool { return t.st.vm.ThreadAlive(t.raw()) }

// Status returns "run" or "sleep"; false once the thread is dead
func (t Thread) Status() (string, bool) { return t.st.vm.ThreadStatus(t.raw()) }

// IsMain reports whether t is the main thread
func (t Thread) IsMain() bool { return t.v == t.st.vm.ThreadMain() }
