package rb

import (
	"math"
	"math/big"
	"strconv"

	"github.com/remyoudompheng/bigfft"
)

// Operands at least this many bits wide are multiplied with FFT
const fftThresholdBits = 1 << 15

// Bignum results are left as bignums even when they would fit a fixnum;
// BigNorm demotes them.

func (vm *VM) newBignum(x *big.Int) VALUE {
	return vm.newobj(vm.global.cInteger, TBignum, x)
}

// BigNew allocates a bignum holding a copy of x
func (vm *VM) BigNew(x *big.Int) VALUE {
	return vm.newBignum(new(big.Int).Set(x))
}

// Int2Big allocates a bignum for n even when n is fixable
func (vm *VM) Int2Big(n int64) VALUE {
	return vm.newBignum(big.NewInt(n))
}

// Uint2Big allocates a bignum for n even when n is fixable
func (vm *VM) Uint2Big(n uint64) VALUE {
	return vm.newBignum(new(big.Int).SetUint64(n))
}

// LL2Inum returns a fixnum when n fits and a bignum otherwise
func (vm *VM) LL2Inum(n int64) VALUE {
	if Fixable(n) {
		return Int2Fix(n)
	}
	return vm.Int2Big(n)
}

// ULL2Inum is LL2Inum for unsigned values
func (vm *VM) ULL2Inum(n uint64) VALUE {
	if PosFixable(n) {
		return Int2Fix(int64(n))
	}
	return vm.Uint2Big(n)
}

// BigInt returns the value of a bignum. The result must not be modified.
func (vm *VM) BigInt(v VALUE) *big.Int {
	vm.CheckType(v, TBignum)
	return vm.slot(v).body.(*big.Int)
}

// intToBig widens any Integer to a *big.Int without allocating a VALUE
func (vm *VM) intToBig(v VALUE) *big.Int {
	if FixnumP(v) {
		return big.NewInt(Fix2Long(v))
	}
	return vm.BigInt(v)
}

// BigNorm demotes a bignum that fits a fixnum
func (vm *VM) BigNorm(v VALUE) VALUE {
	if vm.BuiltinType(v) != TBignum {
		return v
	}
	x := vm.BigInt(v)
	if x.IsInt64() && Fixable(x.Int64()) {
		return Int2Fix(x.Int64())
	}
	return v
}

// BigPlus adds an Integer or Float to a bignum
func (vm *VM) BigPlus(x, y VALUE) VALUE {
	if vm.isFloat(y) {
		return vm.FloatNew(bigToFloat(vm.BigInt(x)) + vm.FloatValue(y))
	}
	return vm.newBignum(new(big.Int).Add(vm.BigInt(x), vm.coerceBig(y, "+")))
}

// BigMinus subtracts an Integer or Float from a bignum
func (vm *VM) BigMinus(x, y VALUE) VALUE {
	if vm.isFloat(y) {
		return vm.FloatNew(bigToFloat(vm.BigInt(x)) - vm.FloatValue(y))
	}
	return vm.newBignum(new(big.Int).Sub(vm.BigInt(x), vm.coerceBig(y, "-")))
}

// BigMul multiplies a bignum by an Integer or Float
func (vm *VM) BigMul(x, y VALUE) VALUE {
	if vm.isFloat(y) {
		return vm.FloatNew(bigToFloat(vm.BigInt(x)) * vm.FloatValue(y))
	}
	a, b := vm.BigInt(x), vm.coerceBig(y, "*")
	if a.BitLen() >= fftThresholdBits && b.BitLen() >= fftThresholdBits {
		return vm.newBignum(bigfft.Mul(a, b))
	}
	return vm.newBignum(new(big.Int).Mul(a, b))
}

// BigDiv is floored division of a bignum
func (vm *VM) BigDiv(x, y VALUE) VALUE {
	if vm.isFloat(y) {
		return vm.FloatNew(math.Floor(bigToFloat(vm.BigInt(x)) / vm.FloatValue(y)))
	}
	d := vm.coerceBig(y, "/")
	if d.Sign() == 0 {
		vm.Raise(vm.global.eZeroDivError, "divided by 0")
	}
	q, _ := floorDivMod(vm.BigInt(x), d)
	return vm.newBignum(q)
}

// BigModulo is the floored remainder of a bignum
func (vm *VM) BigModulo(x, y VALUE) VALUE {
	d := vm.coerceBig(y, "%")
	if d.Sign() == 0 {
		vm.Raise(vm.global.eZeroDivError, "divided by 0")
	}
	_, m := floorDivMod(vm.BigInt(x), d)
	return vm.newBignum(m)
}

func floorDivMod(x, y *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}
	return q, r
}

// BigCmp compares a bignum with an Integer or Float, returning a fixnum in
// {-1, 0, 1}, or nil when y is not comparable.
func (vm *VM) BigCmp(x, y VALUE) VALUE {
	switch {
	case FixnumP(y), vm.BuiltinType(y) == TBignum:
		return Int2Fix(int64(vm.BigInt(x).Cmp(vm.intToBig(y))))
	case vm.isFloat(y):
		f := vm.FloatValue(y)
		if math.IsNaN(f) {
			return Qnil
		}
		bf, _ := new(big.Float).SetInt(vm.BigInt(x)).Float64()
		switch {
		case bf < f:
			return Int2Fix(-1)
		case bf > f:
			return Int2Fix(1)
		}
		return Int2Fix(0)
	}
	return Qnil
}

// BigEq compares a bignum with any value for numeric equality
func (vm *VM) BigEq(x, y VALUE) VALUE {
	switch {
	case FixnumP(y), vm.BuiltinType(y) == TBignum:
		return Bool(vm.BigInt(x).Cmp(vm.intToBig(y)) == 0)
	case vm.isFloat(y):
		return Bool(vm.BigCmp(x, y) == Int2Fix(0))
	}
	return Qfalse
}

// Big2LL converts a bignum to int64 or raises RangeError
func (vm *VM) Big2LL(v VALUE) int64 {
	x := vm.BigInt(v)
	if !x.IsInt64() {
		vm.Raise(vm.global.eRangeError, "bignum too big to convert into 'long long'")
	}
	return x.Int64()
}

// Big2ULL converts a bignum to uint64 or raises RangeError
func (vm *VM) Big2ULL(v VALUE) uint64 {
	x := vm.BigInt(v)
	if !x.IsUint64() {
		vm.Raise(vm.global.eRangeError, "bignum out of range of unsigned long long")
	}
	return x.Uint64()
}

// Big2Str renders a bignum in base
func (vm *VM) Big2Str(v VALUE, base int) string {
	return vm.BigInt(v).Text(base)
}

func (vm *VM) coerceBig(y VALUE, op string) *big.Int {
	switch {
	case FixnumP(y):
		return big.NewInt(Fix2Long(y))
	case vm.BuiltinType(y) == TBignum:
		return vm.BigInt(y)
	}
	vm.Raise(vm.global.eTypeError, "%s can't be coerced into Integer", vm.builtinClassName(y))
	return nil
}

func bigToFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

// IntegerP reports whether v is a fixnum or bignum
func (vm *VM) IntegerP(v VALUE) bool {
	return FixnumP(v) || vm.BuiltinType(v) == TBignum
}

func (vm *VM) isFloat(v VALUE) bool {
	return FlonumP(v) || vm.BuiltinType(v) == TFloat
}

// FloatNew returns a flonum when d has an immediate encoding and a heap
// Float otherwise.
func (vm *VM) FloatNew(d float64) VALUE {
	if v, ok := flonumEncode(d); ok {
		return v
	}
	return vm.newobj(vm.global.cFloat, TFloat|FlFreeze, d)
}

// FloatValue reads a Float
func (vm *VM) FloatValue(v VALUE) float64 {
	if FlonumP(v) {
		return flonumDecode(v)
	}
	vm.CheckType(v, TFloat)
	return vm.slot(v).body.(float64)
}

// Num2Dbl converts a numeric value to float64
func (vm *VM) Num2Dbl(v VALUE) float64 {
	switch {
	case vm.isFloat(v):
		return vm.FloatValue(v)
	case FixnumP(v):
		return float64(Fix2Long(v))
	case vm.BuiltinType(v) == TBignum:
		return bigToFloat(vm.BigInt(v))
	case v == Qnil:
		vm.Raise(vm.global.eTypeError, "can't convert nil into Float")
	case vm.BuiltinType(v) == TString:
		vm.Raise(vm.global.eTypeError, "no implicit conversion to float from string")
	case v == Qtrue || v == Qfalse:
		vm.Raise(vm.global.eTypeError, "can't convert %s into Float", vm.builtinClassName(v))
	}
	f := vm.Funcall(v, vm.Intern("to_f"))
	if !vm.isFloat(f) {
		vm.Raise(vm.global.eTypeError, "can't convert %s to Float", vm.ObjClassname(v))
	}
	return vm.FloatValue(f)
}

// Num2Long converts a numeric value to int64. Floats are truncated.
func (vm *VM) Num2Long(v VALUE) int64 {
	switch {
	case FixnumP(v):
		return Fix2Long(v)
	case vm.BuiltinType(v) == TBignum:
		return vm.Big2LL(v)
	case vm.isFloat(v):
		f := vm.FloatValue(v)
		if f < math.MaxInt64 && f >= math.MinInt64 {
			return int64(f)
		}
		vm.Raise(vm.global.eRangeError, "float %s out of range of integer", fmtFloat(f))
	case v == Qnil:
		vm.Raise(vm.global.eTypeError, "no implicit conversion from nil to integer")
	}
	return vm.Num2Long(vm.ToInt(v))
}

// Num2ULL converts a numeric value to uint64
func (vm *VM) Num2ULL(v VALUE) uint64 {
	switch {
	case FixnumP(v):
		n := Fix2Long(v)
		if n < 0 {
			vm.Raise(vm.global.eRangeError, "can't convert negative integer to unsigned")
		}
		return uint64(n)
	case vm.BuiltinType(v) == TBignum:
		return vm.Big2ULL(v)
	case vm.isFloat(v):
		f := vm.FloatValue(v)
		if f < math.MaxUint64 && f > -1 {
			return uint64(f)
		}
		vm.Raise(vm.global.eRangeError, "float %s out of range of integer", fmtFloat(f))
	case v == Qnil:
		vm.Raise(vm.global.eTypeError, "no implicit conversion from nil to integer")
	}
	return vm.Num2ULL(vm.ToInt(v))
}

// ToInt is the implicit Integer conversion: Integers pass, other objects
// must answer to_int with an Integer.
func (vm *VM) ToInt(v VALUE) VALUE {
	if vm.IntegerP(v) {
		return v
	}
	id := vm.Intern("to_int")
	if !vm.RespondTo(v, id) {
		if v == Qnil {
			vm.Raise(vm.global.eTypeError, "no implicit conversion from nil to integer")
		}
		vm.Raise(vm.global.eTypeError, "no implicit conversion of %s into Integer", vm.builtinClassName(v))
	}
	r := vm.Funcall(v, id)
	if !vm.IntegerP(r) {
		cname := vm.builtinClassName(v)
		vm.Raise(vm.global.eTypeError, "can't convert %s to Integer (%s#to_int gives %s)",
			cname, cname, vm.builtinClassName(r))
	}
	return r
}

func fmtFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// fixAdd and friends are the Integer methods on fixnum receivers

func (vm *VM) intAdd(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		return vm.LL2Inum(Fix2Long(x) + Fix2Long(y))
	}
	if FixnumP(x) {
		if vm.isFloat(y) {
			return vm.FloatNew(float64(Fix2Long(x)) + vm.FloatValue(y))
		}
		return vm.BigPlus(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigPlus(x, y)
}

func (vm *VM) intSub(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		return vm.LL2Inum(Fix2Long(x) - Fix2Long(y))
	}
	if FixnumP(x) {
		if vm.isFloat(y) {
			return vm.FloatNew(float64(Fix2Long(x)) - vm.FloatValue(y))
		}
		return vm.BigMinus(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigMinus(x, y)
}

func (vm *VM) intMul(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		a, b := Fix2Long(x), Fix2Long(y)
		if a == 0 || b == 0 {
			return Int2Fix(0)
		}
		p := a * b
		if p/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64) {
			return vm.LL2Inum(p)
		}
	}
	if FixnumP(x) {
		if vm.isFloat(y) {
			return vm.FloatNew(float64(Fix2Long(x)) * vm.FloatValue(y))
		}
		return vm.BigMul(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigMul(x, y)
}

func (vm *VM) intDiv(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		a, b := Fix2Long(x), Fix2Long(y)
		if b == 0 {
			vm.Raise(vm.global.eZeroDivError, "divided by 0")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return vm.LL2Inum(q)
	}
	if FixnumP(x) {
		if vm.isFloat(y) {
			return vm.FloatNew(math.Floor(float64(Fix2Long(x)) / vm.FloatValue(y)))
		}
		return vm.BigDiv(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigDiv(x, y)
}

func (vm *VM) intMod(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		a, b := Fix2Long(x), Fix2Long(y)
		if b == 0 {
			vm.Raise(vm.global.eZeroDivError, "divided by 0")
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return Int2Fix(m)
	}
	if FixnumP(x) {
		return vm.BigModulo(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigModulo(x, y)
}

func (vm *VM) intCmp(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		a, b := Fix2Long(x), Fix2Long(y)
		switch {
		case a < b:
			return Int2Fix(-1)
		case a > b:
			return Int2Fix(1)
		}
		return Int2Fix(0)
	}
	if FixnumP(x) {
		if !vm.IntegerP(y) && !vm.isFloat(y) {
			return Qnil
		}
		r := vm.BigCmp(vm.Int2Big(Fix2Long(x)), y)
		return r
	}
	return vm.BigCmp(x, y)
}

func (vm *VM) intEq(x, y VALUE) VALUE {
	if FixnumP(x) && FixnumP(y) {
		return Bool(x == y)
	}
	if FixnumP(x) {
		if !vm.IntegerP(y) && !vm.isFloat(y) {
			return Qfalse
		}
		return vm.BigEq(vm.Int2Big(Fix2Long(x)), y)
	}
	return vm.BigEq(x, y)
}

func (vm *VM) floatCmp(x, y VALUE) VALUE {
	a := vm.FloatValue(x)
	var b float64
	switch {
	case vm.isFloat(y):
		b = vm.FloatValue(y)
	case vm.IntegerP(y):
		b = vm.Num2Dbl(y)
	default:
		return Qnil
	}
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return Qnil
	case a < b:
		return Int2Fix(-1)
	case a > b:
		return Int2Fix(1)
	}
	return Int2Fix(0)
}

func (vm *VM) initNumeric() {
	g := &vm.global
	i := g.cInteger
	binop := func(c VALUE, name string, fn func(x, y VALUE) VALUE) {
		vm.DefineMethod(c, name, func(vm *VM, self VALUE, args []VALUE) VALUE {
			return fn(self, args[0])
		}, 1)
	}
	binop(i, "+", vm.intAdd)
	binop(i, "-", vm.intSub)
	binop(i, "*", vm.intMul)
	binop(i, "/", vm.intDiv)
	binop(i, "%", vm.intMod)
	binop(i, "<=>", vm.intCmp)
	binop(i, "==", vm.intEq)
	vm.DefineMethod(i, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		if FixnumP(self) {
			return vm.StrNew(strconv.FormatInt(Fix2Long(self), 10))
		}
		return vm.StrNew(vm.Big2Str(self, 10))
	}, 0)
	vm.DefineMethod(i, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.Funcall(self, vm.Intern("to_s"))
	}, 0)
	ident := func(vm *VM, self VALUE, args []VALUE) VALUE { return self }
	vm.DefineMethod(i, "to_i", ident, 0)
	vm.DefineMethod(i, "to_int", ident, 0)
	vm.DefineMethod(i, "to_f", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.FloatNew(vm.Num2Dbl(self))
	}, 0)

	f := g.cFloat
	fbin := func(name string, op func(a, b float64) float64) {
		vm.DefineMethod(f, name, func(vm *VM, self VALUE, args []VALUE) VALUE {
			return vm.FloatNew(op(vm.FloatValue(self), vm.Num2Dbl(args[0])))
		}, 1)
	}
	fbin("+", func(a, b float64) float64 { return a + b })
	fbin("-", func(a, b float64) float64 { return a - b })
	fbin("*", func(a, b float64) float64 { return a * b })
	fbin("/", func(a, b float64) float64 { return a / b })
	binop(f, "<=>", vm.floatCmp)
	vm.DefineMethod(f, "==", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return Bool(vm.floatCmp(self, args[0]) == Int2Fix(0))
	}, 1)
	vm.DefineMethod(f, "to_s", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(fmtFloat(vm.FloatValue(self)))
	}, 0)
	vm.DefineMethod(f, "inspect", func(vm *VM, self VALUE, args []VALUE) VALUE {
		return vm.StrNew(fmtFloat(vm.FloatValue(self)))
	}, 0)
	vm.DefineMethod(f, "to_f", ident, 0)
	// Float has no to_int: it converts explicitly only.
	vm.DefineMethod(f, "to_i", func(vm *VM, self VALUE, args []VALUE) VALUE {
		d := vm.FloatValue(self)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			vm.Raise(g.eFloatDomainError, "%s", fmtFloat(d))
		}
		t := math.Trunc(d)
		if t >= math.MinInt64 && t < math.MaxInt64 {
			return vm.LL2Inum(int64(t))
		}
		x, _ := new(big.Float).SetFloat64(t).Int(nil)
		return vm.BigNorm(vm.newBignum(x))
	}, 0)
}
