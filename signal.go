package crb

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"

	"github.com/oruby/crb/internal/rb"
)

type trapTarget struct {
	klass rb.VALUE
	msg   string
}

// TrapSignals delivers OS signals to the main Ruby thread until ctx is
// done or the state is closed. SIGINT raises Interrupt; other signals
// raise SignalException named after the signal. With no sigs the
// platform default set is trapped. The returned func stops trapping; once
// ctx is done the signals get their default handling back as well.
//
// A trapped signal interrupts sleeps and joins on the main thread and is
// raised at its next interrupt check otherwise.
func (st *State) TrapSignals(ctx context.Context, sigs ...os.Signal) func() {
	st.checkThread()
	if len(sigs) == 0 {
		sigs = defaultTrapSignals
	}
	targets := make(map[os.Signal]trapTarget, len(sigs))
	for _, s := range sigs {
		if s == os.Interrupt {
			targets[s] = trapTarget{st.vm.EInterrupt(), ""}
			continue
		}
		targets[s] = trapTarget{st.vm.ESignal(), signalName(s)}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ch:
				t := targets[s]
				st.log.Info("signal trapped", zap.String("signal", signalName(s)))
				st.vm.ThreadInterruptMain(t.klass, t.msg)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(ch)
			cancel()
			<-done
		})
	}
	st.Lock()
	prev := st.stopTrap
	st.stopTrap = stop
	st.Unlock()
	if prev != nil {
		prev()
	}
	return stop
}
