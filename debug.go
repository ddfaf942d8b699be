package crb

import (
	"fmt"

	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/oruby/crb/internal/rb"
)

// checkLiveness panics when w points at a slot that was swept or compacted
// away. It is best effort: a freed slot that was reused looks alive.
func (st *State) checkLiveness(w rb.VALUE) {
	if !st.cfg.Debug.CheckLiveness || rb.SpecialConstP(w) {
		return
	}
	st.checkThread()
	t := st.vm.BuiltinType(w)
	switch t {
	case rb.TNone, rb.TZombie, rb.TMoved:
	default:
		return
	}
	fields := []zap.Field{
		zap.String("value", fmt.Sprintf("%#x", uint64(w))),
		zap.String("type", TypeName(t)),
	}
	if t == rb.TMoved {
		fields = append(fields, zap.String("moved_to", fmt.Sprintf("%#x", uint64(st.vm.ForwardingAddress(w)))))
	}
	st.log.Error("liveness violation", fields...)
	panic(fmt.Sprintf("Attempting to access garbage collected Object: %#x is %s", uint64(w), TypeName(t)))
}

// checkThread panics when the caller's goroutine does not hold the VM
// lock
func (st *State) checkThread() {
	if !st.cfg.Debug.CheckThread {
		return
	}
	g := goid.Get()
	owner := st.vm.Owner()
	if owner == nil || owner.Goid() != g {
		st.log.Error("call without VM lock", zap.Int64("goroutine", g))
		panic(fmt.Sprintf("crb: goroutine %d called into the VM without holding its lock", g))
	}
}

// IsDead reports whether v refers to a freed, zombie or moved slot. Like
// the debug check it cannot see a slot that was reused.
func (st *State) IsDead(v RValue) bool {
	w := v.Value().v
	if rb.SpecialConstP(w) {
		return false
	}
	switch st.vm.BuiltinType(w) {
	case rb.TNone, rb.TZombie, rb.TMoved:
		return true
	}
	return false
}
