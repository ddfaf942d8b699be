package rb

// GC roots pin what they reference: frames stand in for the machine stack
// and registered addresses for global variables. Children of heap objects
// are marked movable unless their owner marks them pinned.

// GCEnable turns the collector on and returns the previous disabled state
func (vm *VM) GCEnable() bool {
	prev := !vm.os.enabled
	vm.os.enabled = true
	return prev
}

// GCDisable turns the collector off and returns the previous disabled state
func (vm *VM) GCDisable() bool {
	prev := !vm.os.enabled
	vm.os.enabled = false
	return prev
}

// GCStress sets stress mode, collecting on every allocation
func (vm *VM) GCStress(on bool) { vm.os.stress = on }

// GCSetAutoCompact toggles compaction on threshold collections
func (vm *VM) GCSetAutoCompact(on bool) { vm.os.autoCompact = on }

// GCCount returns the number of collections so far
func (vm *VM) GCCount() int { return vm.os.count }

// GCRegisterAddress makes the value stored at addr a root
func (vm *VM) GCRegisterAddress(addr *VALUE) { vm.os.registered[addr] = struct{}{} }

// GCUnregisterAddress undoes GCRegisterAddress
func (vm *VM) GCUnregisterAddress(addr *VALUE) { delete(vm.os.registered, addr) }

// GCRegisterMarkObject keeps v alive for the life of the VM
func (vm *VM) GCRegisterMarkObject(v VALUE) {
	if vm.os.lookup(v) != nil {
		vm.os.markObjs = append(vm.os.markObjs, v)
	}
}

// GCMark marks v and pins it in place. Only valid inside a mark callback.
func (vm *VM) GCMark(v VALUE) { vm.markValue(v, true) }

// GCMarkMovable marks v and lets compaction move it. The owner must update
// its reference through GCLocation in its compact callback.
func (vm *VM) GCMarkMovable(v VALUE) { vm.markValue(v, false) }

// GCMarkMaybe marks v when it is the address of a live heap object and
// ignores it otherwise. Used for conservatively scanned regions.
func (vm *VM) GCMarkMaybe(v VALUE) {
	s := vm.os.lookup(v)
	if s == nil {
		return
	}
	switch s.typ() {
	case TNone, TZombie, TMoved:
		return
	}
	vm.markValue(v, true)
}

// GCLocation returns the current address of v, following a move
func (vm *VM) GCLocation(v VALUE) VALUE {
	s := vm.os.lookup(v)
	if s != nil && s.typ() == TMoved {
		return s.forward
	}
	return v
}

// GCDuring reports whether a collection is running
func (vm *VM) GCDuring() bool { return vm.os.during }

func (vm *VM) markValue(v VALUE, pin bool) {
	s := vm.os.lookup(v)
	if s == nil {
		return
	}
	if vm.os.collect != nil {
		vm.os.collect(v)
		return
	}
	if s.typ() == TNone {
		vm.bug("try to mark T_NONE object %#x", uint64(v))
	}
	if pin {
		s.pinned = true
	}
	if s.marked {
		return
	}
	s.marked = true
	vm.os.markStack = append(vm.os.markStack, v)
}

// GCStart runs a full collection, compacting when compact is set
func (vm *VM) GCStart(compact bool) {
	vm.checkNoView("garbage collection")
	os := &vm.os
	if os.during {
		return
	}
	os.during = true
	defer func() { os.during = false }()

	vm.finalizeZombies()
	marked := vm.gcMark()
	freed, zombies := vm.gcSweep()
	moved := 0
	if compact {
		moved = vm.gcCompact()
		os.compacts++
	}
	os.lastMoved = moved
	os.count++
	os.sinceLastGC = 0
	os.nextThreshold = marked
	if os.nextThreshold < os.initialSlots {
		os.nextThreshold = os.initialSlots
	}
	total := len(os.pages) * PageSlots
	if float64(len(os.freelist)) < float64(total)*os.freeMinRatio {
		vm.heapGrow()
	}

	if vm.OnGC != nil {
		vm.OnGC(GCEvent{Count: os.count, Marked: marked, Freed: freed, Moved: moved, Zombies: zombies, Compact: compact})
	}
}

func (vm *VM) gcMark() int {
	os := &vm.os
	for _, p := range os.pages {
		for i := range p.slots {
			p.slots[i].marked = false
			p.slots[i].pinned = false
		}
	}
	vm.markRoots()
	n := 0
	for len(os.markStack) > 0 {
		v := os.markStack[len(os.markStack)-1]
		os.markStack = os.markStack[:len(os.markStack)-1]
		vm.markChildren(v, os.lookup(v))
		n++
	}
	return n
}

func (vm *VM) markRoots() {
	for _, c := range vm.classes {
		vm.GCMark(c)
	}
	for _, v := range vm.os.markObjs {
		vm.GCMark(v)
	}
	for addr := range vm.os.registered {
		vm.GCMarkMaybe(*addr)
	}
	vm.markThread(vm.main)
	for _, th := range vm.threads {
		vm.markThread(th)
	}
}

func (vm *VM) markThread(th *Thread) {
	if th.self != Qnull {
		vm.GCMark(th.self)
	}
	for _, f := range th.frames {
		if f == nil {
			continue
		}
		for _, v := range f.locals {
			vm.GCMark(v)
		}
		for _, words := range f.locations {
			for _, w := range words {
				vm.GCMarkMaybe(w)
			}
		}
	}
}

func (vm *VM) markChildren(v VALUE, s *slot) {
	if s.klass != Qnull {
		vm.GCMark(s.klass)
	}
	switch b := s.body.(type) {
	case *objectBody:
		for _, iv := range b.ivars {
			vm.GCMarkMovable(iv.val)
		}
	case *classBody:
		if b.super != Qnull {
			vm.GCMark(b.super)
		}
		for _, iv := range b.ivars {
			vm.GCMark(iv.val)
		}
	case *arrayBody:
		if b.shared != Qnull {
			vm.GCMarkMovable(b.shared)
		} else {
			for _, e := range b.elems {
				vm.GCMarkMovable(e)
			}
		}
	case *dataBody:
		if b.typ != nil && b.typ.Mark != nil && b.data != nil {
			b.typ.Mark(vm, b.data)
		}
		for _, iv := range b.ivars {
			vm.GCMarkMovable(iv.val)
		}
	}
}

func (vm *VM) gcSweep() (freed, zombies int) {
	os := &vm.os
	for _, p := range os.pages {
		for i := range p.slots {
			s := &p.slots[i]
			switch s.typ() {
			case TNone, TZombie:
				continue
			}
			if s.marked {
				continue
			}
			v := p.base + VALUE(i*SlotSize)
			if s.typ() == TMoved {
				vm.freeSlot(v, s)
				continue
			}
			if vm.objFree(v, s) {
				zombies++
			} else {
				freed++
			}
		}
	}
	return freed, zombies
}

// objFree releases a dead object. Typed data with a deferred free function
// become zombies and are finalized when the next collection starts.
func (vm *VM) objFree(v VALUE, s *slot) bool {
	switch b := s.body.(type) {
	case *dataBody:
		if b.typ != nil && b.typ.Free != nil && b.data != nil {
			if b.typ.FreeImmediately {
				b.typ.Free(b.data)
			} else {
				s.flags = TZombie
				s.klass = Qnull
				vm.os.zombies = append(vm.os.zombies, v)
				return true
			}
		}
	case *fileBody:
		b.close()
	case *arrayBody:
		if b.shared != Qnull {
			vm.aryReleaseShared(b)
		}
	}
	vm.freeSlot(v, s)
	return false
}

func (vm *VM) finalizeZombies() {
	zs := vm.os.zombies
	vm.os.zombies = nil
	for _, v := range zs {
		s := vm.os.lookup(v)
		if b, ok := s.body.(*dataBody); ok && b.typ != nil && b.typ.Free != nil {
			b.typ.Free(b.data)
		}
		vm.freeSlot(v, s)
	}
}

func movableType(t int) bool {
	switch t {
	case TObject, TString, TArray, TBignum, TFloat, TData, TFile:
		return true
	}
	return false
}

// gcCompact slides movable objects from the end of the heap into free slots
// at the start, leaving T_MOVED forwarding slots behind, then updates every
// reference.
func (vm *VM) gcCompact() int {
	os := &vm.os
	var free, scan []VALUE
	for _, p := range os.pages {
		for i := range p.slots {
			v := p.base + VALUE(i*SlotSize)
			s := &p.slots[i]
			switch {
			case s.typ() == TNone:
				free = append(free, v)
			case s.marked && !s.pinned && movableType(s.typ()):
				scan = append(scan, v)
			}
		}
	}
	moved := 0
	fi, si := 0, len(scan)-1
	for fi < len(free) && si >= 0 && free[fi] < scan[si] {
		dst, src := free[fi], scan[si]
		ds, ss := os.lookup(dst), os.lookup(src)
		*ds = *ss
		*ss = slot{flags: TMoved, forward: dst, marked: false}
		os.pageOf(dst).free--
		fi++
		si--
		moved++
	}
	if moved == 0 {
		return 0
	}
	used := map[VALUE]bool{}
	for _, v := range free[:fi] {
		used[v] = true
	}
	fl := os.freelist[:0]
	for _, v := range os.freelist {
		if !used[v] {
			fl = append(fl, v)
		}
	}
	os.freelist = fl
	os.moved += uint64(moved)
	vm.updateReferences()
	return moved
}

func (vm *VM) updateReferences() {
	loc := vm.GCLocation
	vm.EachObject(func(v VALUE) bool {
		s := vm.os.lookup(v)
		s.klass = loc(s.klass)
		switch b := s.body.(type) {
		case *objectBody:
			for i := range b.ivars {
				b.ivars[i].val = loc(b.ivars[i].val)
			}
		case *arrayBody:
			if b.shared != Qnull {
				b.shared = loc(b.shared)
			} else {
				for i, e := range b.elems {
					b.elems[i] = loc(e)
				}
			}
		case *dataBody:
			for i := range b.ivars {
				b.ivars[i].val = loc(b.ivars[i].val)
			}
			if b.typ != nil && b.typ.Compact != nil && b.data != nil {
				b.typ.Compact(vm, b.data)
			}
		case *classBody:
			b.super = loc(b.super)
		}
		return true
	})
}

// GCStat is a snapshot of collector counters
type GCStat struct {
	Count          int
	Compactions    int
	Pages          int
	TotalSlots     int
	LiveSlots      int
	FreeSlots      int
	MovedSlots     int
	ZombieSlots    int
	TotalAllocated uint64
	TotalFreed     uint64
	TotalMoved     uint64
	LastMoved      int
	MemSize        uint64
}

// GCStat collects heap counters
func (vm *VM) GCStat() GCStat {
	os := &vm.os
	st := GCStat{
		Count:          os.count,
		Compactions:    os.compacts,
		Pages:          len(os.pages),
		TotalSlots:     len(os.pages) * PageSlots,
		TotalAllocated: os.allocated,
		TotalFreed:     os.freed,
		TotalMoved:     os.moved,
		LastMoved:      os.lastMoved,
	}
	for _, p := range os.pages {
		for i := range p.slots {
			s := &p.slots[i]
			switch s.typ() {
			case TNone:
				st.FreeSlots++
			case TMoved:
				st.MovedSlots++
			case TZombie:
				st.ZombieSlots++
			default:
				st.LiveSlots++
				st.MemSize += uint64(SlotSize + vm.memsize(s))
			}
		}
	}
	return st
}

// Memsize returns the out-of-slot bytes owned by v
func (vm *VM) Memsize(v VALUE) int {
	s := vm.os.lookup(v)
	if s == nil {
		return 0
	}
	return vm.memsize(s)
}

func (vm *VM) memsize(s *slot) int {
	switch b := s.body.(type) {
	case *arrayBody:
		if b.shared == Qnull {
			return cap(b.elems) * 8
		}
	case *stringBody:
		return cap(b.ptr)
	case *dataBody:
		if b.typ != nil && b.typ.Size != nil && b.data != nil {
			return b.typ.Size(b.data)
		}
	case *objectBody:
		return len(b.ivars) * 16
	}
	return 0
}

// ReachableObjectsFrom calls fn for every object directly referenced by v
func (vm *VM) ReachableObjectsFrom(v VALUE, fn func(VALUE)) {
	s := vm.os.lookup(v)
	if s == nil || vm.os.during {
		return
	}
	vm.os.collect = fn
	defer func() { vm.os.collect = nil }()
	vm.markChildren(v, s)
}
