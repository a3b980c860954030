package builtins

import (
	"math/big"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// bitwiseTotalNBits bounds the inputs the builtin accepts; anything
// wider fails with BitwiseOutsideBounds (spec §4.8).
const bitwiseTotalNBits = 251
const bitwiseCellsPerInstance = 5

// Bitwise lays out instances as five consecutive cells (x, y, x&y,
// x^y, x|y); the first two must be written by the running program, the
// remaining three auto-deduce once both inputs are known (spec §4.8).
type Bitwise struct {
	base memory.Relocatable
}

func NewBitwise() *Bitwise {
	return &Bitwise{}
}

func (b *Bitwise) Name() string            { return "bitwise" }
func (b *Bitwise) CellsPerInstance() uint64 { return bitwiseCellsPerInstance }
func (b *Bitwise) Base() memory.Relocatable { return b.base }

func (b *Bitwise) InitializeSegments(segments *memory.MemorySegmentManager) {
	b.base = segments.AddSegment()
}

func (b *Bitwise) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(b.base)}
}

func (b *Bitwise) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	if addr.SegmentIndex != b.base.SegmentIndex {
		return nil, nil
	}
	index := addr.Offset % bitwiseCellsPerInstance
	if index < 2 {
		return nil, nil
	}
	instanceBase := addr.Offset - index
	xAddr := memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase}
	yAddr := memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase + 1}

	xv, xok := mem.Get(xAddr)
	yv, yok := mem.Get(yAddr)
	if !xok || !yok {
		return nil, nil
	}
	xf, ok := xv.GetFelt()
	if !ok {
		return nil, newErr(BitwiseOutsideBounds, "bitwise x operand at %s must be a felt", xAddr)
	}
	yf, ok := yv.GetFelt()
	if !ok {
		return nil, newErr(BitwiseOutsideBounds, "bitwise y operand at %s must be a felt", yAddr)
	}

	xb, yb := xf.ToBigInt(), yf.ToBigInt()
	limit := new(big.Int).Lsh(big.NewInt(1), bitwiseTotalNBits)
	if xb.Cmp(limit) >= 0 || yb.Cmp(limit) >= 0 {
		return nil, newErr(BitwiseOutsideBounds, "bitwise operands must fit in %d bits", bitwiseTotalNBits)
	}

	var result *big.Int
	switch index {
	case 2:
		result = new(big.Int).And(xb, yb)
	case 3:
		result = new(big.Int).Xor(xb, yb)
	case 4:
		result = new(big.Int).Or(xb, yb)
	}
	mr := memory.NewMaybeRelocatableFelt(memory.FeltFromBigInt(result))
	return &mr, nil
}

func (b *Bitwise) AddValidationRule(mem *memory.Memory) {}
