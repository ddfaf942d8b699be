//go:build unix

package crb

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestTrapSignalsInterruptsSleep(t *testing.T) {
	st := newState(t)

	stop := st.TrapSignals(context.Background(), unix.SIGUSR1)
	defer stop()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = unix.Kill(unix.Getpid(), unix.SIGUSR1)
	}()

	err := st.ThreadSleepDeadly()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "SignalException"})
	var e *Error
	if errors.As(err, &e) {
		ExpectEql(t, e.Message(), "SIGUSR1")
	}
}

func TestTrapSignalsInterrupt(t *testing.T) {
	st := newState(t)

	stop := st.TrapSignals(context.Background(), os.Interrupt)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = unix.Kill(unix.Getpid(), unix.SIGINT)
	}()

	err := st.ThreadSleep(10 * time.Second)
	ExpectErrIs(t, err, &Error{kind: KindException, class: "Interrupt"})
	stop()
	stop()
}

func TestTrapSignalsReplacesPrevious(t *testing.T) {
	st := newState(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := st.TrapSignals(ctx, unix.SIGUSR2)
	second := st.TrapSignals(ctx, unix.SIGUSR2)
	first()
	defer second()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = unix.Kill(unix.Getpid(), unix.SIGUSR2)
	}()
	err := st.ThreadSleepDeadly()
	ExpectErrIs(t, err, &Error{kind: KindException, class: "SignalException"})
}

// TestTrapSignalsContextDone re-runs itself in a child process that traps
// SIGUSR1 under a cancelled context and then signals itself: the child
// must die from the signal.
func TestTrapSignalsContextDone(t *testing.T) {
	if os.Getenv("CRB_TRAP_CHILD") == "1" {
		st := MustNew()
		ctx, cancel := context.WithCancel(context.Background())
		st.TrapSignals(ctx, unix.SIGUSR1)
		cancel()
		for range 40 {
			_ = unix.Kill(unix.Getpid(), unix.SIGUSR1)
			time.Sleep(50 * time.Millisecond)
		}
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestTrapSignalsContextDone$")
	cmd.Env = append(os.Environ(), "CRB_TRAP_CHILD=1")
	err := cmd.Run()
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("child should be killed by SIGUSR1, got %v", err)
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	Expect(t, ok && ws.Signaled() && ws.Signal() == unix.SIGUSR1,
		"child should be killed by SIGUSR1, got %v", ee)
}

func TestSignalName(t *testing.T) {
	ExpectEql(t, signalName(unix.SIGTERM), "SIGTERM")
	ExpectEql(t, signalName(unix.SIGHUP), "SIGHUP")
}
