// Package rb is the in-process Ruby VM that the crb binding layer drives.
//
// It mirrors the shape of the CRuby C API: values are tagged machine words,
// heap objects live in fixed-size slots on pages, the collector is a
// mark/sweep collector with optional compaction, errors unwind as jump
// tags, and green threads run one at a time under a global VM lock. The
// entry points are methods on *VM and are only safe to call from the thread
// currently holding the GVL.
package rb

import (
	"math"
	"math/bits"
)

// VALUE is a tagged machine word
type VALUE uint64

// ID is an interned symbol id
type ID uint64

// Special constants. Qnull is reserved and never denotes a valid value.
const (
	Qnull  VALUE = 0x00
	Qfalse VALUE = 0x04
	Qtrue  VALUE = 0x14
	Qnil   VALUE = 0x24
	Qundef VALUE = 0x34
)

const (
	fixnumFlag       = 0x01
	flonumMask       = 0x03
	flonumFlag       = 0x02
	immediateMask    = 0x07
	specialShift     = 8
	staticSymMask    = 0xff
	staticSymFlag    = 0x0c
	specialConstMask = 0xff
)

// Fixnum range
const (
	FixnumMax = math.MaxInt64 >> 1
	FixnumMin = math.MinInt64 >> 1
)

// Ruby value types
const (
	TNone   = 0x00
	TObject = 0x01
	TClass  = 0x02
	TModule = 0x03
	TFloat  = 0x04
	TString = 0x05
	TRegexp = 0x06
	TArray  = 0x07
	THash   = 0x08
	TStruct = 0x09
	TBignum = 0x0a
	TFile   = 0x0b
	TData   = 0x0c
	TMatch  = 0x0d
	TNil    = 0x11
	TTrue   = 0x12
	TFalse  = 0x13
	TSymbol = 0x14
	TFixnum = 0x15
	TUndef  = 0x16
	TIMemo  = 0x1a
	TNode   = 0x1b
	TIClass = 0x1c
	TZombie = 0x1d
	TMoved  = 0x1e
	TMask   = 0x1f
)

// Object flags
const (
	FlWbProtected = 1 << 5
	FlPromoted    = 1 << 6
	FlFinalize    = 1 << 7
	FlExivar      = 1 << 10
	FlFreeze      = 1 << 11
	FlUser0       = 1 << 12
	FlUser1       = 1 << 13
	FlUser2       = 1 << 14
	FlUser3       = 1 << 15

	AryEmbed      = FlUser1
	EltsShared    = FlUser2
	ArySharedRoot = FlUser3
)

// TypeNames maps type codes to their C names
var TypeNames = map[int]string{
	TNone:   "T_NONE",
	TObject: "T_OBJECT",
	TClass:  "T_CLASS",
	TModule: "T_MODULE",
	TFloat:  "T_FLOAT",
	TString: "T_STRING",
	TRegexp: "T_REGEXP",
	TArray:  "T_ARRAY",
	THash:   "T_HASH",
	TStruct: "T_STRUCT",
	TBignum: "T_BIGNUM",
	TFile:   "T_FILE",
	TData:   "T_DATA",
	TMatch:  "T_MATCH",
	TNil:    "T_NIL",
	TTrue:   "T_TRUE",
	TFalse:  "T_FALSE",
	TSymbol: "T_SYMBOL",
	TFixnum: "T_FIXNUM",
	TUndef:  "T_UNDEF",
	TIMemo:  "T_IMEMO",
	TNode:   "T_NODE",
	TIClass: "T_ICLASS",
	TZombie: "T_ZOMBIE",
	TMoved:  "T_MOVED",
}

// FixnumP checks for an immediate integer
func FixnumP(v VALUE) bool { return v&fixnumFlag != 0 }

// FlonumP checks for an immediate float
func FlonumP(v VALUE) bool { return v&flonumMask == flonumFlag }

// StaticSymP checks for an immediate symbol
func StaticSymP(v VALUE) bool { return v&staticSymMask == staticSymFlag }

// ImmediateP is true for every value that is not a heap reference
func ImmediateP(v VALUE) bool { return v&immediateMask != 0 }

// SpecialConstP is true for immediates and for the null word
func SpecialConstP(v VALUE) bool { return ImmediateP(v) || v == Qnull }

// NilP checks for nil
func NilP(v VALUE) bool { return v == Qnil }

// RTest is Ruby truthiness
func RTest(v VALUE) bool { return v != Qnil && v != Qfalse && v != Qnull }

// Fixable reports whether n fits a fixnum
func Fixable(n int64) bool { return n >= FixnumMin && n <= FixnumMax }

// PosFixable reports whether an unsigned n fits a fixnum
func PosFixable(n uint64) bool { return n <= FixnumMax }

// Int2Fix encodes n, which must be Fixable
func Int2Fix(n int64) VALUE { return VALUE(uint64(n)<<1 | fixnumFlag) }

// Fix2Long decodes a fixnum
func Fix2Long(v VALUE) int64 { return int64(v) >> 1 }

// Bool converts a Go bool
func Bool(b bool) VALUE {
	if b {
		return Qtrue
	}
	return Qfalse
}

// ID2Sym makes a static symbol
func ID2Sym(id ID) VALUE { return VALUE(uint64(id)<<specialShift | staticSymFlag) }

// Sym2ID reads a static symbol
func Sym2ID(v VALUE) ID { return ID(uint64(v) >> specialShift) }

// flonumEncode returns the immediate encoding of d or false when d needs a
// heap float.
func flonumEncode(d float64) (VALUE, bool) {
	t := math.Float64bits(d)
	b := int(t>>60) & 0x7
	if t != 0x3000000000000000 && ((b-3)&^1) == 0 {
		return VALUE((bits.RotateLeft64(t, 3) &^ 0x01) | 0x02), true
	}
	if t == 0 {
		return 0x8000000000000002, true
	}
	return 0, false
}

func flonumDecode(v VALUE) float64 {
	if v == 0x8000000000000002 {
		return 0.0
	}
	b63 := uint64(v) >> 63
	t := (2 - b63) | (uint64(v) &^ 0x03)
	return math.Float64frombits(bits.RotateLeft64(t, -3))
}
