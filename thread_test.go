package crb

import (
	"errors"
	"testing"
	"time"
)

func TestThreadValue(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		return st.Value(42), nil
	})
	ExpectNilError(t, err)
	Expect(t, !th.IsMain(), "new thread is not main")

	v, err := th.Result()
	ExpectNilError(t, err)
	ExpectEql(t, v.String(), "42")
	Expect(t, !th.IsAlive(), "thread should be dead after Result")
	_, alive := th.Status()
	Expect(t, !alive, "dead thread has no status")
	Expect(t, st.ThreadAlone(), "main should be alone again")
}

func TestThreadValueKeepsCaptures(t *testing.T) {
	st := newState(t, WithGCStress())

	var words Value
	_, err := st.Protect(func() (Value, error) {
		words = ArrayFromSlice(st, []string{"a", "b"}).Value()
		return Nil, nil
	})
	ExpectNilError(t, err)

	th, err := st.ThreadCreateWith(func(st *State) (Value, error) {
		st.FullGC()
		a, ok := st.AsArray(words)
		if !ok {
			return Nil, RuntimeError("captured array is gone")
		}
		s, err := a.Join(",")
		if err != nil {
			return Nil, err
		}
		return st.Value(s), nil
	}, words)
	ExpectNilError(t, err)

	v, err := th.Result()
	ExpectNilError(t, err)
	s, ok := st.AsString(v)
	Expect(t, ok, "thread value should be a String")
	ExpectEql(t, s.String(), "a,b")
}

func TestThreadError(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		return Nil, ArgumentError("bad thread")
	})
	ExpectNilError(t, err)

	_, err = th.Result()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ArgumentError"})
	var e *Error
	Expect(t, errors.As(err, &e), "expected *Error, got %T", err)
	ExpectEql(t, e.Message(), "bad thread")
}

func TestThreadKill(t *testing.T) {
	st := newState(t)

	started := false
	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		started = true
		if err := st.ThreadSleepForever(); err != nil {
			return Nil, err
		}
		return st.Value("woke"), nil
	})
	ExpectNilError(t, err)

	ExpectNilError(t, st.ThreadSleep(10*time.Millisecond))
	Expect(t, started, "thread should have started while main slept")
	status, alive := th.Status()
	Expect(t, alive && status == "sleep", "thread should be sleeping, got %q %v", status, alive)

	ExpectNilError(t, th.Kill())
	ExpectNilError(t, th.Join())
	Expect(t, !th.IsAlive(), "killed thread should be dead")

	v, err := th.Result()
	ExpectNilError(t, err)
	Expect(t, v.IsNil(), "killed thread value should be nil, got %v", v)

	ExpectErrIs(t, th.Wakeup(), &Error{kind: KindException, class: "ThreadError"})
	th.WakeupAlive()
}

func TestThreadKillSelf(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		err := st.ThreadCurrent().Kill()
		if !errors.Is(err, ErrJump) {
			return st.Value("kill did not unwind"), nil
		}
		return Nil, err
	})
	ExpectNilError(t, err)

	v, err := th.Result()
	ExpectNilError(t, err)
	Expect(t, v.IsNil(), "self-killed thread value should be nil, got %v", v)
}

func TestThreadWakeup(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		if err := st.ThreadSleepForever(); err != nil {
			return Nil, err
		}
		return st.Value("woke"), nil
	})
	ExpectNilError(t, err)
	ExpectNilError(t, st.ThreadSchedule())
	ExpectNilError(t, st.ThreadSleep(5*time.Millisecond))

	ExpectNilError(t, th.Run())
	v, err := th.Result()
	ExpectNilError(t, err)
	s, _ := st.AsString(v)
	ExpectEql(t, s.String(), "woke")
}

func TestSleepInterruptedByRaise(t *testing.T) {
	st := newState(t)

	mainTh := st.ThreadMain()
	Expect(t, mainTh.IsMain(), "ThreadMain should be main")
	Expect(t, st.ThreadCurrent().IsMain(), "test goroutine should be the main thread")

	_, err := st.ThreadCreate(func(st *State) (Value, error) {
		return Nil, mainTh.Raise(RuntimeError("wake up"))
	})
	ExpectNilError(t, err)

	start := time.Now()
	err = st.ThreadSleep(10 * time.Second)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "RuntimeError"})
	Expect(t, time.Since(start) < 5*time.Second, "sleep should end early")
}

func TestJoinTimeout(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) {
		return Nil, st.ThreadSleep(time.Hour)
	})
	ExpectNilError(t, err)

	done, err := th.JoinTimeout(10 * time.Millisecond)
	ExpectNilError(t, err)
	Expect(t, !done, "join should time out")

	ExpectNilError(t, th.Kill())
	done, err = th.JoinTimeout(time.Second)
	ExpectNilError(t, err)
	Expect(t, done, "join should finish after kill")
}

func TestSleepForeverDeadlock(t *testing.T) {
	st := newState(t)

	err := st.ThreadSleepForever()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "fatal"})

	err = st.ThreadStop()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "ThreadError"})

	err = st.ThreadMain().Join()
	ExpectErrIs(t, err, ErrException)
}

func TestThreadIsRValue(t *testing.T) {
	st := newState(t)

	th, err := st.ThreadCreate(func(st *State) (Value, error) { return Nil, nil })
	ExpectNilError(t, err)

	var rv RValue = th
	Expect(t, rv.Value().Is(th), "thread view should expose its word")
	v, err := st.TryValue(th)
	ExpectNilError(t, err)
	Expect(t, v.Is(th), "TryValue should pass a thread through")

	a := st.AryNew()
	ExpectNilError(t, a.Push(st.ThreadMain()))
	got, ok := st.AsThread(a.Entry(0))
	Expect(t, ok && got.IsMain(), "pushed main thread should come back as a Thread")

	_, err = th.Result()
	ExpectNilError(t, err)
}
