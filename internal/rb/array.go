package rb

import (
	"sort"
	"strings"
)

// Arrays either own their elements or view a window of a frozen, hidden
// shared root. Writes go through AryModify, which gives the array a private
// copy first.
type arrayBody struct {
	elems  []VALUE
	shared VALUE
	off, n int
	refcnt int
}

func (vm *VM) aryBody(v VALUE) *arrayBody {
	vm.CheckType(v, TArray)
	return vm.slot(v).body.(*arrayBody)
}

func (vm *VM) aryElems(b *arrayBody) []VALUE {
	if b.shared != Qnull {
		root := vm.slot(b.shared).body.(*arrayBody)
		return root.elems[b.off : b.off+b.n : b.off+b.n]
	}
	return b.elems
}

func (vm *VM) aryAlloc(klass VALUE, capa int) VALUE {
	return vm.newobj(klass, TArray, &arrayBody{elems: make([]VALUE, 0, capa)})
}

// AryNew allocates an empty Array
func (vm *VM) AryNew() VALUE { return vm.aryAlloc(vm.global.cArray, 0) }

// AryNewCapa allocates an empty Array with room for capa elements
func (vm *VM) AryNewCapa(capa int) VALUE {
	if capa < 0 {
		vm.Raise(vm.global.eArgumentError, "negative array size (or size too big)")
	}
	return vm.aryAlloc(vm.global.cArray, capa)
}

// AryNewFromValues allocates an Array holding a copy of vs
func (vm *VM) AryNewFromValues(vs []VALUE) VALUE {
	a := vm.aryAlloc(vm.global.cArray, len(vs))
	b := vm.slot(a).body.(*arrayBody)
	b.elems = append(b.elems, vs...)
	return a
}

// AryHiddenNew allocates a classless Array
func (vm *VM) AryHiddenNew(capa int) VALUE {
	return vm.aryAlloc(Qnull, capa)
}

// AryLen returns the length of an Array
func (vm *VM) AryLen(v VALUE) int {
	b := vm.aryBody(v)
	if b.shared != Qnull {
		return b.n
	}
	return len(b.elems)
}

// AryPtr returns the element storage of v without copying. The slice
// aliases storage that any later call may replace.
func (vm *VM) AryPtr(v VALUE) []VALUE {
	return vm.aryElems(vm.aryBody(v))
}

// AryShared reports whether v currently views a shared root
func (vm *VM) AryShared(v VALUE) bool {
	return vm.aryBody(v).shared != Qnull
}

// ArySharedWith is rb_ary_shared_with_p: both arrays view the same window
// of the same root.
func (vm *VM) ArySharedWith(a, b VALUE) bool {
	x, y := vm.aryBody(a), vm.aryBody(b)
	return x.shared != Qnull && x.shared == y.shared && x.off == y.off && x.n == y.n
}

func (vm *VM) aryModifyCheck(v VALUE) {
	vm.FrozenCheck(v)
	vm.checkNoView("array mutation")
}

// AryModify checks v is writable and gives it private storage
func (vm *VM) AryModify(v VALUE) *arrayBody {
	vm.aryModifyCheck(v)
	b := vm.aryBody(v)
	if b.shared == Qnull {
		return b
	}
	root := vm.slot(b.shared).body.(*arrayBody)
	if root.refcnt == 1 && b.off == 0 && b.n == len(root.elems) {
		b.elems = root.elems
		root.elems = nil
	} else {
		b.elems = append(make([]VALUE, 0, b.n), root.elems[b.off:b.off+b.n]...)
	}
	root.refcnt--
	b.shared, b.off, b.n = Qnull, 0, 0
	vm.slot(v).flags &^= EltsShared
	return b
}

func (vm *VM) aryReleaseShared(b *arrayBody) {
	s := vm.os.lookup(b.shared)
	if s == nil || s.typ() != TArray {
		return
	}
	if root, ok := s.body.(*arrayBody); ok && root.refcnt > 0 {
		root.refcnt--
	}
}

// aryMakeShared moves the storage of v into a shared root and returns it
func (vm *VM) aryMakeShared(v VALUE) VALUE {
	b := vm.aryBody(v)
	if b.shared != Qnull {
		return b.shared
	}
	root := vm.newobj(Qnull, TArray|ArySharedRoot|FlFreeze, &arrayBody{})
	rb := vm.slot(root).body.(*arrayBody)
	rb.elems = b.elems
	rb.refcnt = 1
	b.shared, b.off, b.n, b.elems = root, 0, len(rb.elems), nil
	vm.slot(v).flags |= EltsShared
	return root
}

// aryShareWindow makes dst a view of elements [off, off+n) of src
func (vm *VM) aryShareWindow(dst, src VALUE, off, n int) {
	root := vm.aryMakeShared(src)
	sb := vm.aryBody(src)
	db := vm.aryBody(dst)
	if db.shared != Qnull {
		vm.aryReleaseShared(db)
	}
	db.elems = nil
	db.shared, db.off, db.n = root, sb.off+off, n
	vm.slot(root).body.(*arrayBody).refcnt++
	vm.slot(dst).flags |= EltsShared
}

// AryDup copies v, sharing storage until either side is written
func (vm *VM) AryDup(v VALUE) VALUE {
	n := vm.AryLen(v)
	d := vm.aryAlloc(vm.ClassOf(v), 0)
	if n > 0 {
		vm.aryShareWindow(d, v, 0, n)
	}
	return d
}

// ArySubseq returns elements [beg, beg+length) sharing storage with v, or
// Qnil when beg is out of range.
func (vm *VM) ArySubseq(v VALUE, beg, length int) VALUE {
	alen := vm.AryLen(v)
	if beg > alen || beg < 0 || length < 0 {
		return Qnil
	}
	if alen < length || alen < beg+length {
		length = alen - beg
	}
	klass := vm.ClassOf(v)
	if length == 0 {
		return vm.aryAlloc(klass, 0)
	}
	d := vm.aryAlloc(klass, 0)
	vm.aryShareWindow(d, v, beg, length)
	return d
}

// AryReplace makes a share the contents of b
func (vm *VM) AryReplace(a, b VALUE) VALUE {
	vm.aryModifyCheck(a)
	if a == b {
		return a
	}
	b = vm.AryToAry(b)
	ab := vm.aryBody(a)
	if vm.AryLen(b) == 0 {
		if ab.shared != Qnull {
			vm.aryReleaseShared(ab)
			ab.shared, ab.off, ab.n = Qnull, 0, 0
			vm.slot(a).flags &^= EltsShared
		}
		ab.elems = nil
		return a
	}
	vm.aryShareWindow(a, b, 0, vm.AryLen(b))
	return a
}

// AryPush appends v
func (vm *VM) AryPush(a, v VALUE) VALUE {
	b := vm.AryModify(a)
	b.elems = append(b.elems, v)
	return a
}

// AryCat appends vs
func (vm *VM) AryCat(a VALUE, vs []VALUE) VALUE {
	b := vm.AryModify(a)
	b.elems = append(b.elems, vs...)
	return a
}

// AryPop removes and returns the last element, or Qnil. A shared array
// just shrinks its window.
func (vm *VM) AryPop(a VALUE) VALUE {
	vm.aryModifyCheck(a)
	b := vm.aryBody(a)
	if b.shared != Qnull {
		if b.n == 0 {
			return Qnil
		}
		v := vm.aryElems(b)[b.n-1]
		b.n--
		return v
	}
	if len(b.elems) == 0 {
		return Qnil
	}
	v := b.elems[len(b.elems)-1]
	b.elems[len(b.elems)-1] = Qnull
	b.elems = b.elems[:len(b.elems)-1]
	return v
}

// AryShift removes and returns the first element, or Qnil. A shared array
// just advances its window.
func (vm *VM) AryShift(a VALUE) VALUE {
	vm.aryModifyCheck(a)
	b := vm.aryBody(a)
	if b.shared != Qnull {
		if b.n == 0 {
			return Qnil
		}
		v := vm.aryElems(b)[0]
		b.off++
		b.n--
		return v
	}
	if len(b.elems) == 0 {
		return Qnil
	}
	v := b.elems[0]
	copy(b.elems, b.elems[1:])
	b.elems[len(b.elems)-1] = Qnull
	b.elems = b.elems[:len(b.elems)-1]
	return v
}

// AryUnshift prepends v
func (vm *VM) AryUnshift(a, v VALUE) VALUE {
	b := vm.AryModify(a)
	b.elems = append(b.elems, Qnil)
	copy(b.elems[1:], b.elems)
	b.elems[0] = v
	return a
}

// AryEntry returns the element at offset, counting from the end when
// negative, or Qnil.
func (vm *VM) AryEntry(a VALUE, offset int) VALUE {
	es := vm.AryPtr(a)
	if offset < 0 {
		offset += len(es)
	}
	if offset < 0 || offset >= len(es) {
		return Qnil
	}
	return es[offset]
}

// AryStore sets the element at idx, padding with nil past the end
func (vm *VM) AryStore(a VALUE, idx int, v VALUE) {
	n := vm.AryLen(a)
	if idx < 0 {
		idx += n
		if idx < 0 {
			vm.Raise(vm.global.eIndexError, "index %d too small for array; minimum: -%d", idx-n, n)
		}
	}
	b := vm.AryModify(a)
	for len(b.elems) <= idx {
		b.elems = append(b.elems, Qnil)
	}
	b.elems[idx] = v
}

// AryDelete removes every element equal to item and returns the last one
// removed, or Qnil.
func (vm *VM) AryDelete(a, item VALUE) VALUE {
	snap := append([]VALUE(nil), vm.AryPtr(a)...)
	keep := make([]VALUE, 0, len(snap))
	found := Qnil
	for _, e := range snap {
		if vm.Equal(e, item) {
			found = e
			continue
		}
		keep = append(keep, e)
	}
	if found == Qnil && len(keep) == len(snap) {
		return Qnil
	}
	b := vm.AryModify(a)
	b.elems = keep
	return found
}

// AryDeleteAt removes the element at pos and returns it, or Qnil
func (vm *VM) AryDeleteAt(a VALUE, pos int) VALUE {
	n := vm.AryLen(a)
	if pos >= n {
		return Qnil
	}
	if pos < 0 {
		pos += n
		if pos < 0 {
			return Qnil
		}
	}
	b := vm.AryModify(a)
	v := b.elems[pos]
	copy(b.elems[pos:], b.elems[pos+1:])
	b.elems[len(b.elems)-1] = Qnull
	b.elems = b.elems[:len(b.elems)-1]
	return v
}

// AryClear empties a, dropping any shared storage
func (vm *VM) AryClear(a VALUE) VALUE {
	vm.aryModifyCheck(a)
	b := vm.aryBody(a)
	if b.shared != Qnull {
		vm.aryReleaseShared(b)
		b.shared, b.off, b.n = Qnull, 0, 0
		vm.slot(a).flags &^= EltsShared
	}
	b.elems = nil
	return a
}

// AryResize truncates or nil-pads a to length n. Negative n counts from
// the end.
func (vm *VM) AryResize(a VALUE, n int) VALUE {
	olen := vm.AryLen(a)
	if n < 0 {
		n += olen
		if n < 0 {
			vm.Raise(vm.global.eIndexError, "index %d too small for array; minimum: -%d", n-olen, olen)
		}
	}
	if n == olen {
		vm.aryModifyCheck(a)
		return a
	}
	b := vm.AryModify(a)
	if n < len(b.elems) {
		clear(b.elems[n:])
		b.elems = b.elems[:n]
		return a
	}
	for len(b.elems) < n {
		b.elems = append(b.elems, Qnil)
	}
	return a
}

// AryReverse reverses a in place
func (vm *VM) AryReverse(a VALUE) VALUE {
	b := vm.AryModify(a)
	for i, j := 0, len(b.elems)-1; i < j; i, j = i+1, j-1 {
		b.elems[i], b.elems[j] = b.elems[j], b.elems[i]
	}
	return a
}

// AryRotate rotates a in place so the element at cnt becomes first
func (vm *VM) AryRotate(a VALUE, cnt int) VALUE {
	b := vm.AryModify(a)
	n := len(b.elems)
	if n < 2 {
		return a
	}
	cnt %= n
	if cnt < 0 {
		cnt += n
	}
	if cnt == 0 {
		return a
	}
	rotated := append(append(make([]VALUE, 0, n), b.elems[cnt:]...), b.elems[:cnt]...)
	copy(b.elems, rotated)
	return a
}

// Cmpint turns the result of <=> into an int, raising ArgumentError for
// nil.
func (vm *VM) Cmpint(r, a, b VALUE) int {
	if r == Qnil {
		vm.Raise(vm.global.eArgumentError, "comparison of %s with %s failed",
			vm.builtinClassName(a), vm.inspectOrClass(b))
	}
	if FixnumP(r) {
		n := Fix2Long(r)
		switch {
		case n > 0:
			return 1
		case n < 0:
			return -1
		}
		return 0
	}
	if vm.BuiltinType(r) == TBignum {
		return vm.BigInt(r).Sign()
	}
	if RTest(vm.Funcall(r, vm.Intern(">"), Int2Fix(0))) {
		return 1
	}
	if RTest(vm.Funcall(r, vm.Intern("<"), Int2Fix(0))) {
		return -1
	}
	return 0
}

func (vm *VM) inspectOrClass(v VALUE) string {
	if ImmediateP(v) {
		return vm.Inspect(v)
	}
	return vm.builtinClassName(v)
}

func (vm *VM) sortCmp(a, b VALUE) int {
	if FixnumP(a) && FixnumP(b) {
		x, y := Fix2Long(a), Fix2Long(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return vm.Cmpint(vm.Funcall(a, vm.Intern("<=>"), b), a, b)
}

// ArySortBang sorts a in place with <=>
func (vm *VM) ArySortBang(a VALUE) VALUE {
	vm.aryModifyCheck(a)
	tmp := append([]VALUE(nil), vm.AryPtr(a)...)
	if len(tmp) < 2 {
		return a
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		return vm.sortCmp(tmp[i], tmp[j]) < 0
	})
	b := vm.AryModify(a)
	b.elems = tmp
	return a
}

// AryIncludes reports whether a has an element equal to v
func (vm *VM) AryIncludes(a, v VALUE) bool {
	for i := 0; i < vm.AryLen(a); i++ {
		if vm.Equal(vm.AryEntry(a, i), v) {
			return true
		}
	}
	return false
}

// AryJoin joins the elements converted to strings with sep
func (vm *VM) AryJoin(a VALUE, sep string) VALUE {
	var sb strings.Builder
	vm.aryJoin(&sb, a, sep, map[VALUE]bool{})
	return vm.StrNew(sb.String())
}

func (vm *VM) aryJoin(sb *strings.Builder, a VALUE, sep string, seen map[VALUE]bool) {
	if seen[a] {
		vm.Raise(vm.global.eArgumentError, "recursive array join")
	}
	seen[a] = true
	defer delete(seen, a)
	for i := 0; i < vm.AryLen(a); i++ {
		if i > 0 {
			sb.WriteString(sep)
		}
		e := vm.AryEntry(a, i)
		switch vm.BuiltinType(e) {
		case TString:
			sb.WriteString(vm.StrString(e))
		case TArray:
			vm.aryJoin(sb, e, sep, seen)
		default:
			sb.WriteString(vm.ObjAsString(e))
		}
	}
}

// AryConcat appends the elements of other to a
func (vm *VM) AryConcat(a, other VALUE) VALUE {
	other = vm.AryToAry(other)
	vs := append([]VALUE(nil), vm.AryPtr(other)...)
	return vm.AryCat(a, vs)
}

// AryPlus returns a new Array of a's elements followed by b's. When one
// side is empty the result shares the other's storage.
func (vm *VM) AryPlus(a, b VALUE) VALUE {
	b = vm.AryToAry(b)
	na, nb := vm.AryLen(a), vm.AryLen(b)
	switch {
	case nb == 0:
		d := vm.aryAlloc(vm.global.cArray, 0)
		if na > 0 {
			vm.aryShareWindow(d, a, 0, na)
		}
		return d
	case na == 0:
		d := vm.aryAlloc(vm.global.cArray, 0)
		vm.aryShareWindow(d, b, 0, nb)
		return d
	}
	d := vm.aryAlloc(vm.global.cArray, na+nb)
	db := vm.slot(d).body.(*arrayBody)
	db.elems = append(append(db.elems, vm.AryPtr(a)...), vm.AryPtr(b)...)
	return d
}

// AryAssoc returns the first element that is an Array whose first element
// equals key, or Qnil.
func (vm *VM) AryAssoc(a, key VALUE) VALUE {
	for i := 0; i < vm.AryLen(a); i++ {
		e := vm.AryEntry(a, i)
		if vm.BuiltinType(e) == TArray && vm.AryLen(e) > 0 && vm.Equal(vm.AryEntry(e, 0), key) {
			return e
		}
	}
	return Qnil
}

// AryRassoc is AryAssoc on the second element
func (vm *VM) AryRassoc(a, value VALUE) VALUE {
	for i := 0; i < vm.AryLen(a); i++ {
		e := vm.AryEntry(a, i)
		if vm.BuiltinType(e) == TArray && vm.AryLen(e) > 1 && vm.Equal(vm.AryEntry(e, 1), value) {
			return e
		}
	}
	return Qnil
}

// AryCmp compares arrays elementwise with <=>, returning nil when b is not
// an Array or an element pair is not comparable.
func (vm *VM) AryCmp(a, b VALUE) VALUE {
	b = vm.CheckArray(b)
	if b == Qnil {
		return Qnil
	}
	if a == b {
		return Int2Fix(0)
	}
	n := min(vm.AryLen(a), vm.AryLen(b))
	for i := 0; i < n; i++ {
		r := vm.Funcall(vm.AryEntry(a, i), vm.Intern("<=>"), vm.AryEntry(b, i))
		if r != Int2Fix(0) {
			return r
		}
	}
	d := vm.AryLen(a) - vm.AryLen(b)
	switch {
	case d < 0:
		return Int2Fix(-1)
	case d > 0:
		return Int2Fix(1)
	}
	return Int2Fix(0)
}

// CheckArray returns v as an Array through to_ary, or Qnil
func (vm *VM) CheckArray(v VALUE) VALUE {
	if vm.BuiltinType(v) == TArray {
		return v
	}
	r := vm.CheckFuncall(v, vm.Intern("to_ary"))
	if r == Qundef || r == Qnil {
		return Qnil
	}
	if vm.BuiltinType(r) != TArray {
		cname := vm.builtinClassName(v)
		vm.Raise(vm.global.eTypeError, "can't convert %s to Array (%s#to_ary gives %s)",
			cname, cname, vm.builtinClassName(r))
	}
	return r
}

// AryToAry returns v as an Array: Arrays pass, to_ary is honoured, and
// anything else is wrapped in a one element Array.
func (vm *VM) AryToAry(v VALUE) VALUE {
	if r := vm.CheckArray(v); r != Qnil {
		return r
	}
	return vm.AryNewFromValues([]VALUE{v})
}

// AryEqual is Array#==
func (vm *VM) AryEqual(a, b VALUE) bool {
	if a == b {
		return true
	}
	if vm.BuiltinType(b) != TArray {
		return false
	}
	if vm.AryLen(a) != vm.AryLen(b) {
		return false
	}
	for i := 0; i < vm.AryLen(a); i++ {
		if vm.AryLen(b) <= i || !vm.Equal(vm.AryEntry(a, i), vm.AryEntry(b, i)) {
			return false
		}
	}
	return true
}

func (vm *VM) aryInspect(a VALUE, seen map[VALUE]bool) string {
	if seen[a] {
		return "[...]"
	}
	seen[a] = true
	defer delete(seen, a)
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < vm.AryLen(a); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		e := vm.AryEntry(a, i)
		if vm.BuiltinType(e) == TArray {
			sb.WriteString(vm.aryInspect(e, seen))
		} else {
			sb.WriteString(vm.Inspect(e))
		}
	}
	sb.WriteString("]")
	return sb.String()
}

func (vm *VM) initArray() {
	a := vm.global.cArray
	vm.DefineMethod(a, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.aryInspect(self, map[VALUE]bool{}))
	}, 0)
	vm.DefineMethod(a, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(vm.aryInspect(self, map[VALUE]bool{}))
	}, 0)
	vm.DefineMethod(a, "==", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.AryEqual(self, args[0]))
	}, 1)
	vm.DefineMethod(a, "<=>", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.AryCmp(self, args[0])
	}, 1)
	ident := func(vm *VM, self VALUE, args []VALUE) VALUE { return self }
	vm.DefineMethod(a, "to_a", ident, 0)
	vm.DefineMethod(a, "to_ary", ident, 0)
	length := func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Int2Fix(int64(vm.AryLen(self)))
	}
	vm.DefineMethod(a, "length", length, 0)
	vm.DefineMethod(a, "size", length, 0)
	vm.DefineMethod(a, "push", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.AryCat(self, args)
	}, -1)
	vm.DefineMethod(a, "join", func(vm *VM, self VALUE, args []VALUE) VALUE {
		sep := ""
		if len(args) > 0 && args[0] != Qnil {
			sep = vm.StrString(args[0])
		}
		return vm.AryJoin(self, sep)
	}, -1)
}
