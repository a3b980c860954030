package builtins

import (
	"math/big"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

const ecdsaCellsPerInstance = 2

// ecdsaOrder is the STARK curve's group order, used as the modulus for
// the ECDSA scalars r, s (distinct from the base field P that Felt
// arithmetic works in).
var ecdsaOrder, _ = new(big.Int).SetString("3618502788666131213697322783095070105526743751716087489154079457884512865583", 10)

var curveGenerator = curvePoint{
	x: mustHex("0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
	y: mustHex("0x5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f"),
}

// Signature is an injected ECDSA signature, keyed by the memory address
// of the instance's public-key cell (spec §4.8: "validation rule backed
// by an injectable signature table").
type Signature struct {
	R, S memory.Felt
}

// ECDSA lays out instances as two consecutive cells (public key, message);
// signatures are supplied out of band (typically by a hint that observed
// the signing key) via AddSignature, then checked by the validation rule
// when the message cell is written.
type ECDSA struct {
	base       memory.Relocatable
	signatures map[memory.Relocatable]Signature
}

func NewECDSA() *ECDSA {
	return &ECDSA{signatures: make(map[memory.Relocatable]Signature)}
}

func (e *ECDSA) Name() string            { return "ecdsa" }
func (e *ECDSA) CellsPerInstance() uint64 { return ecdsaCellsPerInstance }
func (e *ECDSA) Base() memory.Relocatable { return e.base }

func (e *ECDSA) InitializeSegments(segments *memory.MemorySegmentManager) {
	e.base = segments.AddSegment()
}

func (e *ECDSA) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(e.base)}
}

// AddSignature registers sig against the public-key cell at pubKeyAddr
// (the instance's offset-0 cell), to be checked once the paired message
// cell is written.
func (e *ECDSA) AddSignature(pubKeyAddr memory.Relocatable, sig Signature) {
	e.signatures[pubKeyAddr] = sig
}

func (e *ECDSA) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	return nil, nil
}

func (e *ECDSA) AddValidationRule(mem *memory.Memory) {
	base := e.base
	mem.AddValidationRule(base.SegmentIndex, func(m *memory.Memory, addr memory.Relocatable) ([]memory.Relocatable, error) {
		index := addr.Offset % ecdsaCellsPerInstance
		if index != 1 {
			return []memory.Relocatable{addr}, nil
		}
		pubAddr := memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: addr.Offset - 1}
		sig, ok := e.signatures[pubAddr]
		if !ok {
			return nil, newErr(MissingSignature, "no signature registered for ecdsa public key at %s", pubAddr)
		}
		pubX, err := m.GetFelt(pubAddr)
		if err != nil {
			return nil, err
		}
		msg, err := m.GetFelt(addr)
		if err != nil {
			return nil, err
		}
		if !ecdsaVerify(pubX, msg, sig) {
			return nil, newErr(InvalidSignature, "signature verification failed at %s", pubAddr)
		}
		return []memory.Relocatable{pubAddr, addr}, nil
	})
}

func ecdsaVerify(pubKeyX, msg memory.Felt, sig Signature) bool {
	rhs := pubKeyX.Mul(pubKeyX).Mul(pubKeyX).Add(curveAlpha.Mul(pubKeyX)).Add(curveBeta)
	y, isResidue := rhs.ModSqrt()
	if !isResidue {
		return false
	}
	pub := curvePoint{x: pubKeyX, y: y}

	sInv := new(big.Int).ModInverse(sig.S.ToBigInt(), ecdsaOrder)
	if sInv == nil {
		return false
	}
	u1 := new(big.Int).Mod(new(big.Int).Mul(msg.ToBigInt(), sInv), ecdsaOrder)
	u2 := new(big.Int).Mod(new(big.Int).Mul(sig.R.ToBigInt(), sInv), ecdsaOrder)

	p1 := pointMulBits(curveGenerator, u1.BitLen(), func(i int) bool { return u1.Bit(i) == 1 })
	p2 := pointMulBits(pub, u2.BitLen(), func(i int) bool { return u2.Bit(i) == 1 })
	sum := pointAdd(p1, p2)
	if sum.infinity {
		return false
	}
	rCheck := new(big.Int).Mod(sum.x.ToBigInt(), ecdsaOrder)
	return rCheck.Cmp(sig.R.ToBigInt()) == 0
}
