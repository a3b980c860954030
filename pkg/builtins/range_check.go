package builtins

import (
	"math/big"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// rangeCheckNParts is the number of 16 bit limbs the builtin's bound is
// built from (spec §4.8: "felt must be < 2^128").
const rangeCheckNParts = 8

// RangeCheck has no deduction of its own; every cell must be written by
// the running program, and the builtin only contributes a validation
// rule that rejects out-of-range felts and any relocatable (spec §4.8).
type RangeCheck struct {
	base  memory.Relocatable
	bound *big.Int
}

func NewRangeCheck() *RangeCheck {
	return &RangeCheck{bound: new(big.Int).Lsh(big.NewInt(1), 16*rangeCheckNParts)}
}

func (r *RangeCheck) Name() string            { return "range_check" }
func (r *RangeCheck) CellsPerInstance() uint64 { return 1 }
func (r *RangeCheck) Base() memory.Relocatable { return r.base }

func (r *RangeCheck) InitializeSegments(segments *memory.MemorySegmentManager) {
	r.base = segments.AddSegment()
}

func (r *RangeCheck) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(r.base)}
}

func (r *RangeCheck) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	return nil, nil
}

func (r *RangeCheck) AddValidationRule(mem *memory.Memory) {
	bound := r.bound
	mem.AddValidationRule(r.base.SegmentIndex, func(m *memory.Memory, addr memory.Relocatable) ([]memory.Relocatable, error) {
		v, ok := m.Get(addr)
		if !ok {
			return nil, nil
		}
		f, ok := v.GetFelt()
		if !ok {
			return nil, newErr(RangeCheckOutOfRange, "range_check cell %s must hold a felt", addr)
		}
		if f.ToBigInt().Cmp(bound) >= 0 {
			return nil, newErr(RangeCheckOutOfRange, "felt %s at %s is not below 2^%d", f, addr, 16*rangeCheckNParts)
		}
		return []memory.Relocatable{addr}, nil
	})
}
