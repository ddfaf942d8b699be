package crb

import (
	"sync"

	"go.uber.org/zap"

	"github.com/oruby/crb/internal/rb"
)

// State is one Ruby VM and the binding-side bookkeeping that goes with it.
//
// New boots the VM on the calling goroutine, which becomes the main Ruby
// thread and holds the VM lock until Close. Every method of State and of
// the views it returns must be called from a goroutine holding the lock:
// the main goroutine, or a thread body started with ThreadCreate.
type State struct {
	vm  *rb.VM
	idx int
	cfg Config
	log *zap.Logger

	sync.Mutex
	classes  map[*rb.DataType]rb.VALUE
	features map[string]struct{}
	stopTrap func()
}

// Option configures New
type Option func(*options)

type options struct {
	cfg Config
	log *zap.Logger
	err error
}

// WithConfig replaces the default config
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads the config from a YAML file
func WithConfigFile(path string) Option {
	return func(o *options) {
		cfg, err := LoadConfig(path)
		if err != nil {
			o.err = err
			return
		}
		o.cfg = cfg
	}
}

// WithLogger sets the state's logger instead of the package Logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithDebugChecks turns the liveness and thread checks on or off
func WithDebugChecks(liveness, thread bool) Option {
	return func(o *options) {
		o.cfg.Debug.CheckLiveness = liveness
		o.cfg.Debug.CheckThread = thread
	}
}

// WithGCStress collects before every allocation
func WithGCStress() Option {
	return func(o *options) { o.cfg.GC.Stress = true }
}

// New boots a VM
func New(opts ...Option) (*State, error) {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = Logger()
	}

	st := &State{
		cfg:      o.cfg,
		log:      o.log.With(zap.String("component", "crb")),
		classes:  map[*rb.DataType]rb.VALUE{},
		features: map[string]struct{}{},
	}
	st.vm = rb.NewVM(o.cfg.vmOptions())
	st.vm.OnGC = st.onGC
	registerState(st)

	st.log.Debug("state created",
		zap.Int("index", st.idx),
		zap.Int("initial_slots", o.cfg.GC.InitialSlots),
		zap.Bool("check_liveness", o.cfg.Debug.CheckLiveness))
	return st, nil
}

// MustNew is New that panics on error
func MustNew(opts ...Option) *State {
	st, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return st
}

// Close kills the remaining Ruby threads and releases the VM lock. It must
// be called from the goroutine that called New.
func (st *State) Close() {
	if st.vm == nil || st.vm.Closed() {
		return
	}
	st.Lock()
	stop := st.stopTrap
	st.stopTrap = nil
	st.Unlock()
	if stop != nil {
		stop()
	}
	st.vm.Close()
	removeState(st)
	st.log.Debug("state closed", zap.Int("index", st.idx))
}

// Config returns the settings the state was created with
func (st *State) Config() Config { return st.cfg }

// Log returns the state's logger
func (st *State) Log() *zap.Logger { return st.log }

func (st *State) onGC(ev rb.GCEvent) {
	if !st.cfg.Log.GC {
		return
	}
	st.log.Debug("gc",
		zap.Int("count", ev.Count),
		zap.Int("marked", ev.Marked),
		zap.Int("freed", ev.Freed),
		zap.Int("moved", ev.Moved),
		zap.Int("zombies", ev.Zombies),
		zap.Bool("compact", ev.Compact))
}

// protect runs fn inside a protect boundary. Anything fn allocates is
// rooted until it returns; the result is rooted in the caller's frame. An
// exception or other non-local exit becomes an *Error.
func (st *State) protect(fn func() rb.VALUE) (Value, error) {
	st.checkThread()
	v, state := st.vm.Protect(fn)
	if state != rb.TagNone {
		return Nil, st.errorFromState(state)
	}
	return Value{v}, nil
}

// Protect runs fn in a new root frame and returns its result. Ruby
// exceptions raised by the calls fn makes come back as an *Error instead
// of unwinding through fn's caller. Values fn allocates and does not return
// are unrooted once Protect returns.
func (st *State) Protect(fn func() (Value, error)) (Value, error) {
	var ferr error
	v, err := st.protect(func() rb.VALUE {
		r, e := fn()
		if e != nil {
			ferr = e
			return rb.Qnil
		}
		return r.v
	})
	if err != nil {
		return Nil, err
	}
	if ferr != nil {
		return Nil, ferr
	}
	return v, nil
}

// call is protect for host entry points returning nothing
func (st *State) call(fn func()) error {
	_, err := st.protect(func() rb.VALUE {
		fn()
		return rb.Qnil
	})
	return err
}
