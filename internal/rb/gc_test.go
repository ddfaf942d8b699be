package rb

import "testing"

func newTestVM(t *testing.T) *VM {
	t.Helper()
	vm := NewVM(Options{InitialSlots: 1000})
	t.Cleanup(vm.Close)
	return vm
}

func TestSweepFreesUnrooted(t *testing.T) {
	vm := newTestVM(t)

	var s VALUE
	if _, state := vm.Protect(func() VALUE {
		s = vm.StrNew("temp")
		return Qnil
	}); state != TagNone {
		t.Fatalf("protect failed with state %d", state)
	}
	if vm.BuiltinType(s) != TString {
		t.Fatal("string should be alive before collection")
	}
	vm.GCStart(false)
	if vm.BuiltinType(s) != TNone {
		t.Errorf("unrooted string should be freed, type %#x", vm.BuiltinType(s))
	}
}

func TestCompactionForwards(t *testing.T) {
	vm := newTestVM(t)

	arr := vm.AryNew()
	var s VALUE
	vm.Protect(func() VALUE {
		for range 50 {
			vm.StrNew("garbage")
		}
		s = vm.StrNew("keep")
		vm.AryPush(arr, s)
		return Qnil
	})

	vm.GCStart(true)
	elem := vm.AryEntry(arr, 0)
	if vm.StrString(elem) != "keep" {
		t.Fatalf("array element lost: %q", vm.StrString(elem))
	}
	if elem == s {
		t.Fatal("string reachable only through a movable reference should have moved")
	}
	if vm.BuiltinType(s) != TMoved || vm.ForwardingAddress(s) != elem || vm.GCLocation(s) != elem {
		t.Errorf("old slot should forward to %#x", uint64(elem))
	}
	if st := vm.GCStat(); st.LastMoved == 0 || st.MovedSlots == 0 {
		t.Errorf("stats should record the move: %+v", st)
	}

	vm.GCStart(false)
	if vm.BuiltinType(s) != TNone {
		t.Error("forwarding slot should be freed by the next collection")
	}
}

func TestPinnedDoesNotMove(t *testing.T) {
	vm := newTestVM(t)

	vm.Protect(func() VALUE {
		for range 50 {
			vm.StrNew("garbage")
		}
		return Qnil
	})
	s := vm.StrNew("pinned by frame")
	vm.GCStart(true)
	if vm.BuiltinType(s) != TString {
		t.Error("value rooted by a frame local is pinned and must not move")
	}
}

func TestReleaseLocalsKeepsBootObjects(t *testing.T) {
	vm := newTestVM(t)

	s := vm.StrNew("top")
	vm.ReleaseLocals()
	vm.GCStart(false)
	if vm.BuiltinType(s) != TNone {
		t.Errorf("released top-level string should be freed, type %#x", vm.BuiltinType(s))
	}
	if vm.BuiltinType(vm.ThreadMain()) != TData {
		t.Error("main thread object should survive ReleaseLocals")
	}
	if got := vm.Inspect(vm.AryNewFromValues([]VALUE{Int2Fix(1)})); got != "[1]" {
		t.Errorf("core classes should still work, inspect gave %q", got)
	}
}

func TestPromotionFrameDropsOperands(t *testing.T) {
	vm := newTestVM(t)

	depth := vm.PushFrame()
	tmp := vm.Int2Big(5)
	vm.PopFrame(depth)
	vm.GCStart(false)
	if vm.BuiltinType(tmp) != TNone {
		t.Errorf("value of a popped frame should be freed, type %#x", vm.BuiltinType(tmp))
	}
}
