package builtins

import (
	"math/big"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

const pedersenCellsPerInstance = 3
const pedersenLowBits = 248

// Pedersen lays out instances as three consecutive cells (x, y, hash);
// the hash cell auto-deduces once both inputs are known, caching the
// result per address so repeated verification passes do not recompute
// the curve arithmetic (spec §4.8).
type Pedersen struct {
	base  memory.Relocatable
	cache map[memory.Relocatable]memory.Felt
}

func NewPedersen() *Pedersen {
	return &Pedersen{cache: make(map[memory.Relocatable]memory.Felt)}
}

func (p *Pedersen) Name() string            { return "pedersen" }
func (p *Pedersen) CellsPerInstance() uint64 { return pedersenCellsPerInstance }
func (p *Pedersen) Base() memory.Relocatable { return p.base }

func (p *Pedersen) InitializeSegments(segments *memory.MemorySegmentManager) {
	p.base = segments.AddSegment()
}

func (p *Pedersen) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(p.base)}
}

func (p *Pedersen) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	if addr.SegmentIndex != p.base.SegmentIndex {
		return nil, nil
	}
	index := addr.Offset % pedersenCellsPerInstance
	if index != 2 {
		return nil, nil
	}
	instanceBase := addr.Offset - index
	xAddr := memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase}
	yAddr := memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase + 1}

	if cached, ok := p.cache[addr]; ok {
		mr := memory.NewMaybeRelocatableFelt(cached)
		return &mr, nil
	}

	xf, err := mem.GetFelt(xAddr)
	if err != nil {
		return nil, nil
	}
	yf, err := mem.GetFelt(yAddr)
	if err != nil {
		return nil, nil
	}

	h := PedersenHash(xf, yf)
	p.cache[addr] = h
	mr := memory.NewMaybeRelocatableFelt(h)
	return &mr, nil
}

func (p *Pedersen) AddValidationRule(mem *memory.Memory) {}

// PedersenHash computes the StarkWare pedersen hash of (x, y): each
// input is split into a 248 bit low chunk and a high chunk, folded
// against one of four fixed generator points and added to a fixed
// shift point; the result's x-coordinate is the hash.
func PedersenHash(x, y memory.Felt) memory.Felt {
	acc := pedersenShiftPoint
	acc = pointAdd(acc, splitAndMul(x, pedersenPoints[0], pedersenPoints[1]))
	acc = pointAdd(acc, splitAndMul(y, pedersenPoints[2], pedersenPoints[3]))
	return acc.x
}

func splitAndMul(v memory.Felt, lowPoint, highPoint curvePoint) curvePoint {
	b := v.ToBigInt()
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), pedersenLowBits), big.NewInt(1))
	low := new(big.Int).And(b, mask)
	high := new(big.Int).Rsh(b, pedersenLowBits)
	lowTerm := pointMulFelt(lowPoint, memory.FeltFromBigInt(low))
	highTerm := pointMulFelt(highPoint, memory.FeltFromBigInt(high))
	return pointAdd(lowTerm, highTerm)
}
