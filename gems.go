package crb

import (
	"fmt"
	"sync"
)

var (
	gemsMu sync.RWMutex
	gems   = make(map[string]func(*State) error)
)

// Gem registers an extension under name. States load it with Require.
// Registering the same name twice panics.
func Gem(name string, initFn func(*State) error) {
	if name == "" {
		panic("crb: empty gem name")
	}
	gemsMu.Lock()
	defer gemsMu.Unlock()
	if _, dup := gems[name]; dup {
		panic("crb: gem registered twice: " + name)
	}
	gems[name] = initFn
}

// GemExists reports whether a gem is registered
func GemExists(name string) bool {
	gemsMu.RLock()
	defer gemsMu.RUnlock()
	_, ok := gems[name]
	return ok
}

// Require runs the init function of a registered gem once per state. It
// reports whether the gem was loaded by this call.
func (st *State) Require(name string) (bool, error) {
	st.Lock()
	_, loaded := st.features[name]
	st.Unlock()
	if loaded {
		return false, nil
	}
	gemsMu.RLock()
	initFn, ok := gems[name]
	gemsMu.RUnlock()
	if !ok {
		return false, NewError("LoadError", "cannot load such file -- %s", name)
	}
	if _, err := st.Protect(func() (Value, error) { return Nil, initFn(st) }); err != nil {
		return false, fmt.Errorf("loading gem %s: %w", name, err)
	}
	st.Lock()
	st.features[name] = struct{}{}
	st.Unlock()
	return true, nil
}

// FeatureExists reports whether name was required in st
func (st *State) FeatureExists(name string) bool {
	st.Lock()
	defer st.Unlock()
	_, ok := st.features[name]
	return ok
}
