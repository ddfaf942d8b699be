package rb

// Slot addressing follows the CRuby heap: objects live in fixed-size slots
// on aligned pages, so a VALUE is the address of its slot.
const (
	SlotSize  = 40
	PageAlign = 0x10000
	PageSlots = PageAlign / SlotSize
)

type slot struct {
	flags   uint64
	klass   VALUE
	body    any
	forward VALUE
	marked  bool
	pinned  bool
}

func (s *slot) typ() int { return int(s.flags & TMask) }

type page struct {
	base  VALUE
	slots [PageSlots]slot
	free  int
}

type objspace struct {
	pages    []*page
	freelist []VALUE

	enabled     bool
	stress      bool
	autoCompact bool
	during      bool

	initialSlots  int
	growthFactor  float64
	freeMinRatio  float64
	sinceLastGC   int
	nextThreshold int

	count      int
	compacts   int
	allocated  uint64
	freed      uint64
	moved      uint64
	lastMoved  int
	zombies    []VALUE
	registered map[*VALUE]struct{}
	markObjs   []VALUE
	markStack  []VALUE
	collect    func(VALUE)
}

func (os *objspace) addPage() *page {
	p := &page{base: VALUE(PageAlign * (len(os.pages) + 1))}
	os.pages = append(os.pages, p)
	for i := PageSlots - 1; i >= 0; i-- {
		os.freelist = append(os.freelist, p.base+VALUE(i*SlotSize))
	}
	p.free = PageSlots
	return p
}

// lookup returns the slot for a heap address, or nil for anything that is
// not the address of a slot.
func (os *objspace) lookup(v VALUE) *slot {
	if ImmediateP(v) || v == Qnull {
		return nil
	}
	idx := int(v/PageAlign) - 1
	if idx < 0 || idx >= len(os.pages) {
		return nil
	}
	p := os.pages[idx]
	off := int(v - p.base)
	if off%SlotSize != 0 || off/SlotSize >= PageSlots {
		return nil
	}
	return &p.slots[off/SlotSize]
}

func (os *objspace) pageOf(v VALUE) *page {
	return os.pages[int(v/PageAlign)-1]
}

// IsPointerToHeap reports whether v is the address of a heap slot. It says
// nothing about whether the slot holds a live object.
func (vm *VM) IsPointerToHeap(v VALUE) bool {
	return vm.os.lookup(v) != nil
}

func (vm *VM) slot(v VALUE) *slot {
	s := vm.os.lookup(v)
	if s == nil {
		vm.bug("not a heap reference: %#x", uint64(v))
	}
	return s
}

// newobj takes a free slot, collecting or growing the heap when none is
// left. The new object is recorded in the current frame so it survives
// until the frame is popped.
func (vm *VM) newobj(klass VALUE, flags uint64, body any) VALUE {
	vm.checkNoView("allocation")
	os := &vm.os
	if os.stress && os.enabled && !os.during {
		vm.GCStart(false)
	}
	if len(os.freelist) == 0 {
		if os.enabled && !os.during && os.sinceLastGC >= os.nextThreshold {
			vm.GCStart(os.autoCompact)
		}
		if len(os.freelist) == 0 {
			vm.heapGrow()
		}
	}
	v := os.freelist[len(os.freelist)-1]
	os.freelist = os.freelist[:len(os.freelist)-1]
	s := os.lookup(v)
	*s = slot{flags: flags, klass: klass, body: body}
	os.pageOf(v).free--
	os.allocated++
	os.sinceLastGC++
	vm.pushLocal(v)
	return v
}

func (vm *VM) heapGrow() {
	os := &vm.os
	n := 1
	if len(os.pages) > 0 {
		n = int(float64(len(os.pages))*(os.growthFactor-1) + 0.5)
		if n < 1 {
			n = 1
		}
	}
	for i := 0; i < n; i++ {
		os.addPage()
	}
}

func (vm *VM) freeSlot(v VALUE, s *slot) {
	*s = slot{}
	vm.os.freelist = append(vm.os.freelist, v)
	vm.os.pageOf(v).free++
	vm.os.freed++
}

// BuiltinType returns the type code of a heap object or immediate
func (vm *VM) BuiltinType(v VALUE) int {
	switch {
	case v == Qnull:
		return TNone
	case FixnumP(v):
		return TFixnum
	case FlonumP(v):
		return TFloat
	case StaticSymP(v):
		return TSymbol
	case v == Qnil:
		return TNil
	case v == Qtrue:
		return TTrue
	case v == Qfalse:
		return TFalse
	case v == Qundef:
		return TUndef
	}
	s := vm.os.lookup(v)
	if s == nil {
		return TNone
	}
	return s.typ()
}

// Flags returns the raw flag word of a heap object
func (vm *VM) Flags(v VALUE) uint64 { return vm.slot(v).flags }

// ForwardingAddress returns where a T_MOVED slot moved to
func (vm *VM) ForwardingAddress(v VALUE) VALUE {
	s := vm.os.lookup(v)
	if s == nil || s.typ() != TMoved {
		return Qnull
	}
	return s.forward
}

// EachObject calls fn for every live slot, hidden objects included,
// stopping when fn returns false.
func (vm *VM) EachObject(fn func(v VALUE) bool) {
	for _, p := range vm.os.pages {
		for i := range p.slots {
			s := &p.slots[i]
			switch s.typ() {
			case TNone, TMoved, TZombie:
				continue
			}
			if !fn(p.base + VALUE(i*SlotSize)) {
				return
			}
		}
	}
}

// ObjspaceEachObject calls fn for every object visible to Ruby code
func (vm *VM) ObjspaceEachObject(fn func(v VALUE) bool) {
	vm.EachObject(func(v VALUE) bool {
		s := vm.os.lookup(v)
		if s.klass == Qnull {
			return true
		}
		switch s.typ() {
		case TIMemo, TNode, TIClass:
			return true
		}
		return fn(v)
	})
}
