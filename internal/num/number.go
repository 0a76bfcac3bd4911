// Package num provides the fixed-point quantity used for damage, cost and rates.
package num

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Scale is the number of raw units in one whole unit.
const Scale = 1000

// Number is a non-negative fixed-point value with three decimal places.
// All arithmetic saturates at Max instead of wrapping.
type Number struct {
	milli uint64
}

var (
	Zero = Number{}
	One  = Number{milli: Scale}
	Max  = Number{milli: math.MaxUint64}
)

var ErrSyntax = errors.New("invalid number")

func FromInt(v uint64) Number {
	hi, lo := bits.Mul64(v, Scale)
	if hi != 0 {
		return Max
	}
	return Number{milli: lo}
}

func FromMilli(m uint64) Number { return Number{milli: m} }

func (n Number) Milli() uint64 { return n.milli }

// Int returns the whole part.
func (n Number) Int() uint64 { return n.milli / Scale }

func (n Number) Float64() float64 { return float64(n.milli) / Scale }

func (n Number) IsZero() bool { return n.milli == 0 }

func (n Number) Add(o Number) Number {
	sum, carry := bits.Add64(n.milli, o.milli, 0)
	if carry != 0 {
		return Max
	}
	return Number{milli: sum}
}

// Sub returns n-o, or Zero when o is larger.
func (n Number) Sub(o Number) Number {
	if o.milli >= n.milli {
		return Zero
	}
	return Number{milli: n.milli - o.milli}
}

func (n Number) Mul(k uint64) Number {
	hi, lo := bits.Mul64(n.milli, k)
	if hi != 0 {
		return Max
	}
	return Number{milli: lo}
}

// MulFrac returns n*num/den truncated toward zero. The product is kept in
// 128 bits so no precision is lost before the division.
func (n Number) MulFrac(num, den uint64) Number {
	if den == 0 {
		return Max
	}
	hi, lo := bits.Mul64(n.milli, num)
	if hi >= den {
		return Max
	}
	q, _ := bits.Div64(hi, lo, den)
	return Number{milli: q}
}

// Div returns n/k truncated. Division by zero saturates.
func (n Number) Div(k uint64) Number {
	if k == 0 {
		if n.milli == 0 {
			return Zero
		}
		return Max
	}
	return Number{milli: n.milli / k}
}

// Quo returns n/o as a Number. A zero divisor yields Zero.
func (n Number) Quo(o Number) Number {
	if o.milli == 0 {
		return Zero
	}
	return n.MulFrac(Scale, o.milli)
}

// Ratio returns n*scale/o truncated, clamped to scale when n exceeds o.
func (n Number) Ratio(o Number, scale uint64) uint64 {
	if o.milli == 0 || n.milli >= o.milli {
		return scale
	}
	hi, lo := bits.Mul64(n.milli, scale)
	q, _ := bits.Div64(hi, lo, o.milli)
	return q
}

func (n Number) Cmp(o Number) int {
	switch {
	case n.milli < o.milli:
		return -1
	case n.milli > o.milli:
		return 1
	}
	return 0
}

func (n Number) Less(o Number) bool { return n.milli < o.milli }

// CmpScaled compares n*a with o*b without saturating.
func (n Number) CmpScaled(a uint64, o Number, b uint64) int {
	nh, nl := bits.Mul64(n.milli, a)
	oh, ol := bits.Mul64(o.milli, b)
	switch {
	case nh < oh || (nh == oh && nl < ol):
		return -1
	case nh > oh || (nh == oh && nl > ol):
		return 1
	}
	return 0
}

func Min(a, b Number) Number {
	if a.milli < b.milli {
		return a
	}
	return b
}

func MaxOf(a, b Number) Number {
	if a.milli > b.milli {
		return a
	}
	return b
}

func (n Number) String() string {
	whole := n.milli / Scale
	frac := n.milli % Scale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%03d", whole, frac)
	return strings.TrimRight(s, "0")
}

// Parse accepts decimal text with an optional fraction and exponent,
// e.g. "1500", "12.25" or "1e6". Digits beyond the third decimal are truncated.
func Parse(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrSyntax
	}
	mant, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil || e < 0 {
			return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
		mant, exp = s[:i], e
	}
	intPart, fracPart := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, fracPart = mant[:i], mant[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	digits := intPart + fracPart
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
	}
	// Shift the decimal point: value = digits * 10^(exp - len(fracPart) + 3) milli.
	shift := exp - len(fracPart) + 3
	for shift < 0 && len(digits) > 0 {
		digits = digits[:len(digits)-1]
		shift++
	}
	if shift < 0 {
		shift = 0
	}
	var v uint64
	for _, c := range digits {
		hi, lo := bits.Mul64(v, 10)
		if hi != 0 {
			return Max, nil
		}
		sum, carry := bits.Add64(lo, uint64(c-'0'), 0)
		if carry != 0 {
			return Max, nil
		}
		v = sum
	}
	out := Number{milli: v}
	for ; shift > 0; shift-- {
		out = out.Mul(10)
	}
	return out, nil
}

func MustParse(s string) Number {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Number) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *Number) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
