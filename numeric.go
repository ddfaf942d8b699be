package crb

import (
	"math"
	"math/big"
	"strconv"

	"github.com/oruby/crb/internal/rb"
)

// Integer is a Ruby Integer: an immediate fixnum or a heap bignum. Results
// of bignum arithmetic stay bignums even when they would fit a fixnum;
// call Norm before comparing representations.
type Integer struct {
	v  rb.VALUE
	st *State
}

// Fixnum is an Integer known to be immediate
type Fixnum struct{ Integer }

// Bignum is an Integer known to be on the heap
type Bignum struct{ Integer }

// Value implements RValue
func (i Integer) Value() Value { return Value{i.v} }

func (i Integer) raw() rb.VALUE {
	i.st.checkLiveness(i.v)
	return i.v
}

func (st *State) integer(w rb.VALUE) Integer { return Integer{w, st} }

// IntegerFromInt64 returns n as a fixnum when it fits and a bignum
// otherwise
func (st *State) IntegerFromInt64(n int64) Integer {
	if rb.Fixable(n) {
		return Integer{rb.Int2Fix(n), st}
	}
	return Integer{st.vm.Int2Big(n), st}
}

// IntegerFromUint64 is IntegerFromInt64 for unsigned values
func (st *State) IntegerFromUint64(n uint64) Integer {
	if rb.PosFixable(n) {
		return Integer{rb.Int2Fix(int64(n)), st}
	}
	return Integer{st.vm.Uint2Big(n), st}
}

// IntegerFromBig returns x in canonical form
func (st *State) IntegerFromBig(x *big.Int) Integer {
	if x.IsInt64() {
		return st.IntegerFromInt64(x.Int64())
	}
	return Integer{st.vm.BigNew(x), st}
}

// AsInteger certifies v as an Integer of either representation
func (st *State) AsInteger(v RValue) (Integer, bool) {
	w := v.Value().v
	if rb.FixnumP(w) {
		return Integer{w, st}, true
	}
	if rb.SpecialConstP(w) {
		return Integer{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TBignum {
		return Integer{}, false
	}
	return Integer{w, st}, true
}

// AsFixnum certifies v as an immediate Integer
func (st *State) AsFixnum(v RValue) (Fixnum, bool) {
	w := v.Value().v
	if !rb.FixnumP(w) {
		return Fixnum{}, false
	}
	return Fixnum{Integer{w, st}}, true
}

// AsBignum certifies v as a heap Integer
func (st *State) AsBignum(v RValue) (Bignum, bool) {
	i, ok := st.AsInteger(v)
	if !ok || rb.FixnumP(i.v) {
		return Bignum{}, false
	}
	return Bignum{i}, true
}

// IsFixnum reports whether i is immediate
func (i Integer) IsFixnum() bool { return rb.FixnumP(i.v) }

// IsBignum reports whether i is on the heap
func (i Integer) IsBignum() bool { return !rb.FixnumP(i.v) }

// Fixnum narrows i to the immediate view
func (i Integer) Fixnum() (Fixnum, bool) {
	if !rb.FixnumP(i.v) {
		return Fixnum{}, false
	}
	return Fixnum{i}, true
}

// Bignum narrows i to the heap view
func (i Integer) Bignum() (Bignum, bool) {
	if rb.FixnumP(i.v) {
		return Bignum{}, false
	}
	return Bignum{i}, true
}

// Int64 decodes the fixnum bits
func (f Fixnum) Int64() int64 { return rb.Fix2Long(f.v) }

// Big returns a copy of the bignum
func (b Bignum) Big() *big.Int { return new(big.Int).Set(b.st.vm.BigInt(b.raw())) }

// Sign returns -1, 0 or +1
func (i Integer) Sign() int {
	w := i.raw()
	if rb.FixnumP(w) {
		n := rb.Fix2Long(w)
		switch {
		case n < 0:
			return -1
		case n > 0:
			return 1
		}
		return 0
	}
	return i.st.vm.BigInt(w).Sign()
}

// ToBig returns i as a new *big.Int
func (i Integer) ToBig() *big.Int {
	w := i.raw()
	if rb.FixnumP(w) {
		return big.NewInt(rb.Fix2Long(w))
	}
	return new(big.Int).Set(i.st.vm.BigInt(w))
}

// ToInt64 converts i, failing with a range error when it does not fit
func (i Integer) ToInt64() (int64, error) {
	w := i.raw()
	if rb.FixnumP(w) {
		return rb.Fix2Long(w), nil
	}
	x := i.st.vm.BigInt(w)
	if !x.IsInt64() {
		return 0, RangeError("bignum too big to convert into 'long long'")
	}
	return x.Int64(), nil
}

// ToUint64 converts i, failing for negative values and values too large
func (i Integer) ToUint64() (uint64, error) {
	w := i.raw()
	if rb.FixnumP(w) {
		n := rb.Fix2Long(w)
		if n < 0 {
			return 0, RangeError("can't convert negative integer %d to unsigned", n)
		}
		return uint64(n), nil
	}
	x := i.st.vm.BigInt(w)
	if x.Sign() < 0 {
		return 0, RangeError("can't convert negative bignum to unsigned")
	}
	if !x.IsUint64() {
		return 0, RangeError("bignum too big to convert into 'unsigned long long'")
	}
	return x.Uint64(), nil
}

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func toSigned[T signed](i Integer, cname string) (T, error) {
	n, err := i.ToInt64()
	if err != nil {
		return 0, err
	}
	t := T(n)
	if int64(t) != n {
		if n < 0 {
			return 0, RangeError("integer %d too small to convert to '%s'", n, cname)
		}
		return 0, RangeError("integer %d too big to convert to '%s'", n, cname)
	}
	return t, nil
}

func toUnsigned[T unsigned](i Integer, cname string) (T, error) {
	n, err := i.ToUint64()
	if err != nil {
		return 0, err
	}
	t := T(n)
	if uint64(t) != n {
		return 0, RangeError("integer %d too big to convert to '%s'", n, cname)
	}
	return t, nil
}

// ToInt converts to int
func (i Integer) ToInt() (int, error) { return toSigned[int](i, "long") }

// ToInt32 converts to int32
func (i Integer) ToInt32() (int32, error) { return toSigned[int32](i, "int") }

// ToInt16 converts to int16
func (i Integer) ToInt16() (int16, error) { return toSigned[int16](i, "short") }

// ToInt8 converts to int8
func (i Integer) ToInt8() (int8, error) { return toSigned[int8](i, "signed char") }

// ToUint converts to uint
func (i Integer) ToUint() (uint, error) { return toUnsigned[uint](i, "unsigned long") }

// ToUint32 converts to uint32
func (i Integer) ToUint32() (uint32, error) { return toUnsigned[uint32](i, "unsigned int") }

// ToUint16 converts to uint16
func (i Integer) ToUint16() (uint16, error) { return toUnsigned[uint16](i, "unsigned short") }

// ToUint8 converts to uint8
func (i Integer) ToUint8() (uint8, error) { return toUnsigned[uint8](i, "unsigned char") }

// ToFloat64 converts to the nearest float64
func (i Integer) ToFloat64() float64 {
	w := i.raw()
	if rb.FixnumP(w) {
		return float64(rb.Fix2Long(w))
	}
	f, _ := new(big.Float).SetInt(i.st.vm.BigInt(w)).Float64()
	return f
}

// String formats i in base 10
func (i Integer) String() string {
	w := i.raw()
	if rb.FixnumP(w) {
		return strconv.FormatInt(rb.Fix2Long(w), 10)
	}
	return i.st.vm.Big2Str(w, 10)
}

// promote returns w as a heap bignum
func (i Integer) promote(w rb.VALUE) rb.VALUE {
	if rb.FixnumP(w) {
		return i.st.vm.Int2Big(rb.Fix2Long(w))
	}
	return w
}

// bigOp runs op on both operands promoted to bignums. The promoted copies
// live in a nested frame that is dropped afterwards; only the result is
// rooted in the caller's frame.
func (i Integer) bigOp(a, b rb.VALUE, op func(x, y rb.VALUE) rb.VALUE) Integer {
	vm := i.st.vm
	depth := vm.PushFrame()
	r := op(i.promote(a), i.promote(b))
	vm.PopFrame(depth)
	vm.PushLocal(r)
	return Integer{r, i.st}
}

// Add returns i + o. Two fixnums add natively; the sum is re-encoded
// without calling into the VM unless it leaves the fixnum range.
func (i Integer) Add(o Integer) Integer {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) {
		if n := rb.Fix2Long(a) + rb.Fix2Long(b); rb.Fixable(n) {
			return Integer{rb.Int2Fix(n), i.st}
		}
	}
	return i.bigOp(a, b, i.st.vm.BigPlus)
}

// Sub returns i - o
func (i Integer) Sub(o Integer) Integer {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) {
		if n := rb.Fix2Long(a) - rb.Fix2Long(b); rb.Fixable(n) {
			return Integer{rb.Int2Fix(n), i.st}
		}
	}
	return i.bigOp(a, b, i.st.vm.BigMinus)
}

// Mul returns i * o
func (i Integer) Mul(o Integer) Integer {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) {
		x, y := rb.Fix2Long(a), rb.Fix2Long(b)
		if x == 0 || y == 0 {
			return Integer{rb.Int2Fix(0), i.st}
		}
		if n := x * y; n/y == x && rb.Fixable(n) {
			return Integer{rb.Int2Fix(n), i.st}
		}
	}
	return i.bigOp(a, b, i.st.vm.BigMul)
}

var fixZero = rb.Int2Fix(0)

// Div is floored division. Fixnum quotients fit the fixnum range except
// FixnumMin / -1, which spills to a bignum. A zero divisor raises
// ZeroDivisionError in the VM.
func (i Integer) Div(o Integer) (Integer, error) {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) && b != fixZero {
		x, y := rb.Fix2Long(a), rb.Fix2Long(b)
		q := x / y
		if x%y != 0 && (x < 0) != (y < 0) {
			q--
		}
		if rb.Fixable(q) {
			return Integer{rb.Int2Fix(q), i.st}, nil
		}
	}
	v, err := i.st.protect(func() rb.VALUE {
		return i.st.vm.BigDiv(i.promote(a), i.promote(b))
	})
	if err != nil {
		return Integer{}, err
	}
	return Integer{v.v, i.st}, nil
}

// Mod is the floored remainder, with the sign of o
func (i Integer) Mod(o Integer) (Integer, error) {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) && b != fixZero {
		x, y := rb.Fix2Long(a), rb.Fix2Long(b)
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return Integer{rb.Int2Fix(m), i.st}, nil
	}
	v, err := i.st.protect(func() rb.VALUE {
		return i.st.vm.BigModulo(i.promote(a), i.promote(b))
	})
	if err != nil {
		return Integer{}, err
	}
	return Integer{v.v, i.st}, nil
}

// Cmp returns -1, 0 or +1. Mixed representations are compared by the
// bignum comparator.
func (i Integer) Cmp(o Integer) int {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) {
		x, y := rb.Fix2Long(a), rb.Fix2Long(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	// The bignum side is the receiver, so nothing is allocated.
	var r int64
	if rb.FixnumP(a) {
		r = -rb.Fix2Long(i.st.vm.BigCmp(b, a))
	} else {
		r = rb.Fix2Long(i.st.vm.BigCmp(a, b))
	}
	switch {
	case r < 0:
		return -1
	case r > 0:
		return 1
	}
	return 0
}

// Equal compares values, not representations
func (i Integer) Equal(o Integer) bool {
	a, b := i.raw(), o.raw()
	if rb.FixnumP(a) && rb.FixnumP(b) {
		return a == b
	}
	if rb.FixnumP(a) {
		a, b = b, a
	}
	return i.st.vm.BigEq(a, b) == rb.Qtrue
}

// Norm demotes a bignum that fits the fixnum range. Norm is idempotent.
func (i Integer) Norm() Integer {
	return Integer{i.st.vm.BigNorm(i.raw()), i.st}
}

// Float is a Ruby Float, immediate flonum or heap T_FLOAT
type Float struct {
	v  rb.VALUE
	st *State
}

// Value implements RValue
func (f Float) Value() Value { return Value{f.v} }

// FloatFrom returns a flonum when d has an immediate encoding and a heap
// Float otherwise
func (st *State) FloatFrom(d float64) Float {
	return Float{st.vm.FloatNew(d), st}
}

// AsFloat certifies v as a Float
func (st *State) AsFloat(v RValue) (Float, bool) {
	w := v.Value().v
	if rb.FlonumP(w) {
		return Float{w, st}, true
	}
	if rb.SpecialConstP(w) {
		return Float{}, false
	}
	st.checkLiveness(w)
	if st.vm.BuiltinType(w) != rb.TFloat {
		return Float{}, false
	}
	return Float{w, st}, true
}

// IsFlonum reports whether f is immediate
func (f Float) IsFlonum() bool { return rb.FlonumP(f.v) }

// ToFloat64 decodes f
func (f Float) ToFloat64() float64 {
	f.st.checkLiveness(f.v)
	return f.st.vm.FloatValue(f.v)
}

// ToInteger truncates f, failing for NaN and infinities
func (f Float) ToInteger() (Integer, error) {
	d := f.ToFloat64()
	switch {
	case math.IsNaN(d):
		return Integer{}, NewError("FloatDomainError", "NaN")
	case math.IsInf(d, 1):
		return Integer{}, NewError("FloatDomainError", "Infinity")
	case math.IsInf(d, -1):
		return Integer{}, NewError("FloatDomainError", "-Infinity")
	}
	d = math.Trunc(d)
	if d >= math.MinInt64 && d < math.MaxInt64 {
		return f.st.IntegerFromInt64(int64(d)), nil
	}
	x, _ := new(big.Float).SetFloat64(d).Int(nil)
	return f.st.IntegerFromBig(x), nil
}
