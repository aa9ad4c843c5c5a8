package liquidation

import (
	"fmt"
	"math/big"
	"strings"
)

// Precision is the number of fractional decimal digits an F value retains.
// It exceeds the 18-decimal scale of on-chain token amounts so that
// intermediate products (an 18-decimal supply balance times an 18-decimal
// exchange rate, for instance) never lose precision before the final
// truncation.
const Precision = 40

var scale = computeScale(Precision)

func computeScale(digits int) *big.Int {
	s := big.NewInt(1)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		s.Mul(s, ten)
	}
	return s
}

// F is a non-negative decimal scaled by 10^Precision. Every arithmetic
// operation truncates rather than rounds; callers that need rounding do it
// themselves at the boundary where the rounding rule is meaningful.
type F struct {
	v *big.Int
}

// Zero is the additive identity.
var Zero = F{}

func (a F) bits() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// FromInt64 builds an F from a whole number.
func FromInt64(n int64) F {
	if n < 0 {
		panic("liquidation: fixedpoint value must be non-negative")
	}
	return F{v: new(big.Int).Mul(big.NewInt(n), scale)}
}

// FromDecimalString parses a base-10 decimal string ("123", "0.0001") into
// an F, truncating any fractional digits beyond Precision.
func FromDecimalString(s string) (F, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return F{}, fmt.Errorf("liquidation: empty decimal string")
	}
	if strings.HasPrefix(s, "-") {
		return F{}, fmt.Errorf("liquidation: negative value %q not representable", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !hasFrac {
		frac = ""
	}
	if len(frac) > Precision {
		frac = frac[:Precision]
	} else {
		frac = frac + strings.Repeat("0", Precision-len(frac))
	}

	combined := whole + frac
	v, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return F{}, fmt.Errorf("liquidation: malformed decimal string %q", s)
	}
	return F{v: v}, nil
}

// MustFromDecimalString parses s and panics on error. It exists for the
// same reason the teacher's crypto.MustNewAddress does: constructing a
// known-good literal (a package-level constant, a test fixture) where a
// parse failure would be a programming error, not routine input.
func MustFromDecimalString(s string) F {
	v, err := FromDecimalString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromRatioUint64 builds num/den as an F, truncating.
func FromRatioUint64(num, den uint64) (F, error) {
	if den == 0 {
		return F{}, fmt.Errorf("liquidation: division by zero")
	}
	n := new(big.Int).Mul(big.NewInt(int64(num)), scale)
	d := big.NewInt(int64(den))
	return F{v: n.Quo(n, d)}, nil
}

// Add returns a+b.
func (a F) Add(b F) F {
	return F{v: new(big.Int).Add(a.bits(), b.bits())}
}

// Sub returns a-b and ok=true when the result is non-negative. When b>a it
// returns the zero value and ok=false, leaving the saturating decision to
// the caller (see BorrowerState's saturate-to-zero mutators).
func (a F) Sub(b F) (F, bool) {
	if a.bits().Cmp(b.bits()) < 0 {
		return F{}, false
	}
	return F{v: new(big.Int).Sub(a.bits(), b.bits())}, true
}

// SatSub returns a-b, saturating to zero when b>a, and reports whether
// saturation occurred.
func (a F) SatSub(b F) (F, bool) {
	r, ok := a.Sub(b)
	if ok {
		return r, false
	}
	return F{}, true
}

// Mul returns a*b, truncated back to Precision fractional digits.
func (a F) Mul(b F) F {
	product := new(big.Int).Mul(a.bits(), b.bits())
	return F{v: product.Quo(product, scale)}
}

// Quo returns a/b, truncated to Precision fractional digits.
func (a F) Quo(b F) (F, error) {
	if b.IsZero() {
		return F{}, fmt.Errorf("liquidation: division by zero")
	}
	numerator := new(big.Int).Mul(a.bits(), scale)
	return F{v: numerator.Quo(numerator, b.bits())}, nil
}

// Cmp compares a to b (-1, 0, 1), matching big.Int.Cmp semantics.
func (a F) Cmp(b F) int {
	return a.bits().Cmp(b.bits())
}

// IsZero reports whether the value is exactly zero.
func (a F) IsZero() bool {
	return a.bits().Sign() == 0
}

// Sign returns -1, 0, or 1; F values are never negative so this is 0 or 1.
func (a F) Sign() int {
	return a.bits().Sign()
}

// String renders the value as a decimal string with trailing zero
// fractional digits trimmed, always keeping at least one digit after the
// point when the value is non-integral.
func (a F) String() string {
	v := a.bits()
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	digits := abs.String()
	for len(digits) <= Precision {
		digits = "0" + digits
	}
	whole := digits[:len(digits)-Precision]
	frac := strings.TrimRight(digits[len(digits)-Precision:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// withinRelativeTolerance reports whether a and b differ by no more than
// 10^-exponent of the larger of the two, used by BorrowerRegistry.Verify to
// compare a fresh hydration against the live replica without demanding
// bit-exact equality across two independently computed snapshots.
func withinRelativeTolerance(a, b F, exponent int) bool {
	if a.Cmp(b) == 0 {
		return true
	}
	diff, ok := a.Sub(b)
	if !ok {
		diff, _ = b.Sub(a)
	}
	base := a
	if b.Cmp(a) > 0 {
		base = b
	}
	if base.IsZero() {
		return diff.IsZero()
	}
	tolerance := computeScale(exponent) // 10^exponent
	// diff/base <= 10^-exponent  <=>  diff*10^exponent <= base
	lhs := new(big.Int).Mul(diff.bits(), tolerance)
	return lhs.Cmp(base.bits()) <= 0
}
