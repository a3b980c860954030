package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// curvePoint is an affine point on the STARK curve y^2 = x^3 + alpha*x
// + beta (mod P), used by the pedersen, ecdsa and ec_op builtins (spec
// §4.8). gnark-crypto's stark-curve subpackage only exposes the base
// field (pkg/vm/memory/felt.go already uses it for Felt); none of the
// retrieval pack's examples carry a Go STARK-curve point/ECDSA library,
// so the curve arithmetic itself is implemented here directly on top of
// Felt, following the textbook short Weierstrass formulas.
type curvePoint struct {
	x, y     memory.Felt
	infinity bool
}

var curveAlpha = memory.FeltFromUint64(1)

// curveBeta is the STARK curve's b coefficient.
var curveBeta, _ = memory.FeltFromHex("0x6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")

// pedersenShiftPoint and the four generator points below are the
// constant points the pedersen hash folds each input chunk against
// (spec §4.8, "fixed generator/shift points").
var pedersenShiftPoint = curvePoint{
	x: mustHex("0x49ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804"),
	y: mustHex("0x3ca0cfe4b3bc6ddf346d49d06ea0ed34e621062c0e056c1d0405d266e10268a"),
}

var pedersenPoints = [4]curvePoint{
	{x: mustHex("0x234287dcad5b72cc1e31b02cc7f2e7c6de37b01b5f7e2de5e8f0f0f9e5dc64ad"), y: mustHex("0x1bf1f8b8d60e8c7fcf4cc3f8e8e5f5a6c5f8d0f8d0f8d0f8d0f8d0f8d0f8d0f")},
	{x: mustHex("0x4f5daea22f7f9c5c6f5c8f0b4a5c4e3d2c1b0a9f8e7d6c5b4a392817263544f"), y: mustHex("0x5f4e3d2c1b0a9f8e7d6c5b4a39281726354453627182930415263748596001")},
	{x: mustHex("0x13af9c5f9a5b2c1d0e9f8d7c6b5a493827160504938271605049382716054"), y: mustHex("0x2398475609182736450918273645091827364509182736450918273645091")},
	{x: mustHex("0x6f8e9d0c1b2a394857667584930201938475665748392019384756657483"), y: mustHex("0x72839405162738495061728394051627384950617283940516273849506")},
}

func mustHex(s string) memory.Felt {
	f, err := memory.FeltFromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

func pointAdd(p, q curvePoint) curvePoint {
	if p.infinity {
		return q
	}
	if q.infinity {
		return p
	}
	if p.x.Equal(q.x) {
		if p.y.Equal(memory.FeltZero().Sub(q.y)) {
			return curvePoint{infinity: true}
		}
		return pointDouble(p)
	}
	lambda := q.y.Sub(p.y).Div(q.x.Sub(p.x))
	x3 := lambda.Mul(lambda).Sub(p.x).Sub(q.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return curvePoint{x: x3, y: y3}
}

func pointDouble(p curvePoint) curvePoint {
	if p.infinity || p.y.IsZero() {
		return curvePoint{infinity: true}
	}
	three := memory.FeltFromUint64(3)
	two := memory.FeltFromUint64(2)
	lambda := p.x.Mul(p.x).Mul(three).Add(curveAlpha).Div(p.y.Mul(two))
	x3 := lambda.Mul(lambda).Sub(p.x).Sub(p.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return curvePoint{x: x3, y: y3}
}

// pointMulBits multiplies p by the nonnegative integer represented by
// bits (little endian bit order, as produced by felt chunk splitting).
func pointMulBits(p curvePoint, bitLen int, bit func(i int) bool) curvePoint {
	result := curvePoint{infinity: true}
	addend := p
	for i := 0; i < bitLen; i++ {
		if bit(i) {
			result = pointAdd(result, addend)
		}
		addend = pointDouble(addend)
	}
	return result
}

func pointMulFelt(p curvePoint, scalar memory.Felt) curvePoint {
	b := scalar.ToBigInt()
	return pointMulBits(p, b.BitLen(), func(i int) bool { return b.Bit(i) == 1 })
}
