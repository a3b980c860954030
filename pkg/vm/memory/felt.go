package memory

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Felt is an element of F = Z/PZ, where P is the Starknet prime. It
// wraps gnark-crypto's stark-curve field element, which already stores
// values in Montgomery form and gives us constant-time arithmetic for
// free.
type Felt struct {
	inner fp.Element
}

func FeltZero() Felt {
	return Felt{}
}

func FeltOne() Felt {
	var e fp.Element
	e.SetOne()
	return Felt{inner: e}
}

func FeltFromUint64(v uint64) Felt {
	var e fp.Element
	e.SetUint64(v)
	return Felt{inner: e}
}

func FeltFromBigInt(v *big.Int) Felt {
	var e fp.Element
	e.SetBigInt(v)
	return Felt{inner: e}
}

func FeltFromDecString(s string) (Felt, error) {
	var e fp.Element
	if _, err := e.SetString(s); err != nil {
		return Felt{}, err
	}
	return Felt{inner: e}, nil
}

func FeltFromHex(s string) (Felt, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return Felt{}, errInvalidHex(s)
	}
	return FeltFromBigInt(v), nil
}

// FeltFromBytesLE builds a felt from a little-endian 32 byte buffer, the
// wire format used by the relocated-memory file (§6).
func FeltFromBytesLE(b [32]byte) Felt {
	be := reverse32(b)
	var e fp.Element
	e.SetBytes(be[:])
	return Felt{inner: e}
}

func (f Felt) BytesLE() [32]byte {
	be := f.inner.Bytes()
	return reverse32(be)
}

func reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := range b {
		out[i] = b[31-i]
	}
	return out
}

func (f Felt) Add(o Felt) Felt {
	var r fp.Element
	r.Add(&f.inner, &o.inner)
	return Felt{inner: r}
}

func (f Felt) Sub(o Felt) Felt {
	var r fp.Element
	r.Sub(&f.inner, &o.inner)
	return Felt{inner: r}
}

func (f Felt) Mul(o Felt) Felt {
	var r fp.Element
	r.Mul(&f.inner, &o.inner)
	return Felt{inner: r}
}

// Div returns f / o, the field-inverse multiplication used by ResMul
// deduction (§4.4). Callers must check o.IsZero() first; it is not an
// error condition here because §8 requires "no deduction" rather than a
// hard failure on division by zero in that specific context.
func (f Felt) Div(o Felt) Felt {
	var inv fp.Element
	inv.Inverse(&o.inner)
	var r fp.Element
	r.Mul(&f.inner, &inv)
	return Felt{inner: r}
}

func (f Felt) IsZero() bool {
	return f.inner.IsZero()
}

func (f Felt) Equal(o Felt) bool {
	return f.inner.Equal(&o.inner)
}

// BitLength returns the number of bits needed to represent f as a
// nonnegative integer < P.
func (f Felt) BitLength() int {
	b := f.inner.BigInt(new(big.Int))
	return b.BitLen()
}

// ModSqrt returns the modular square root of f and whether f is a
// quadratic residue modulo P.
func (f Felt) ModSqrt() (Felt, bool) {
	var r fp.Element
	if r.Sqrt(&f.inner) == nil {
		return Felt{}, false
	}
	return Felt{inner: r}, true
}

// IsQuadraticResidue reports whether f is a quadratic residue mod P.
func (f Felt) IsQuadraticResidue() bool {
	return f.inner.Legendre() >= 0
}

// Sqrt implements the builtin hint's square-root convention (spec §9,
// Open Questions): if f is a quadratic residue mod P, return sqrt(f);
// otherwise return sqrt(f / 3), which is always a residue since 3 is a
// quadratic non-residue on the STARK field. The second return value
// reports whether f itself was a residue (false means the f/3 branch
// was taken).
func (f Felt) Sqrt() (Felt, bool) {
	if root, ok := f.ModSqrt(); ok {
		return root, true
	}
	third := f.Div(FeltFromUint64(3))
	root, _ := third.ModSqrt()
	return root, false
}

// ToBigInt returns f's nonnegative integer representative, 0 <= x < P.
func (f Felt) ToBigInt() *big.Int {
	return f.inner.BigInt(new(big.Int))
}

// ToU64 converts f to a uint64, failing if f does not fit (used when
// fetching an instruction word, which must fit in 63 bits).
func (f Felt) ToU64() (uint64, error) {
	b := f.ToBigInt()
	if !b.IsUint64() {
		return 0, errFeltTooLarge(f)
	}
	return b.Uint64(), nil
}

// AsInt returns the signed interpretation: x if x < P/2, else x - P.
func (f Felt) AsInt() *big.Int {
	b := f.ToBigInt()
	half := new(big.Int).Rsh(modulus(), 1)
	if b.Cmp(half) > 0 {
		return new(big.Int).Sub(b, modulus())
	}
	return b
}

func modulus() *big.Int {
	return fp.Modulus()
}

func (f Felt) String() string {
	return f.inner.String()
}

func (f Felt) Inner() fp.Element {
	return f.inner
}

func FeltFromFpElement(e fp.Element) Felt {
	return Felt{inner: e}
}
