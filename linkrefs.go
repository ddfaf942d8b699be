package crb

import (
	"sync"

	"github.com/oruby/crb/internal/rb"
)

var mu sync.Mutex
var states = make([]*State, 1, 10)

// stateOf returns the State driving vm. Host callbacks only see the VM, so
// this is how they get back to the binding.
func stateOf(vm *rb.VM) *State {
	mu.Lock()
	defer mu.Unlock()
	for _, st := range states {
		if st != nil && st.vm == vm {
			return st
		}
	}
	panic("crb: state does not exist")
}

func registerState(st *State) {
	mu.Lock()
	defer mu.Unlock()

	if len(states) > 500 {
		for idx, s := range states {
			if s == nil && idx > 0 {
				states[idx] = st
				st.idx = idx
				return
			}
		}
	}
	states = append(states, st)
	st.idx = len(states) - 1
}

func removeState(st *State) {
	mu.Lock()
	defer mu.Unlock()
	if st.idx > 0 && st.idx < len(states) && states[st.idx] == st {
		states[st.idx] = nil
	}
}

// States returns the number of open states
func States() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for _, st := range states {
		if st != nil {
			n++
		}
	}
	return n
}
