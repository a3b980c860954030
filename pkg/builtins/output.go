package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// Output is the simplest builtin: a plain write-through segment with no
// deduction and no validation (spec §4.8). Its contents become part of
// the public memory via the runner's Finalize call, not via anything
// this type does itself.
type Output struct {
	base memory.Relocatable
}

func NewOutput() *Output {
	return &Output{}
}

func (o *Output) Name() string             { return "output" }
func (o *Output) CellsPerInstance() uint64  { return 1 }
func (o *Output) Base() memory.Relocatable  { return o.base }

func (o *Output) InitializeSegments(segments *memory.MemorySegmentManager) {
	o.base = segments.AddSegment()
}

func (o *Output) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(o.base)}
}

func (o *Output) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	return nil, nil
}

func (o *Output) AddValidationRule(mem *memory.Memory) {}
