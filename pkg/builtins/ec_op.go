package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

const ecOpCellsPerInstance = 7

// ECOp lays out instances as seven consecutive cells (Px, Py, Qx, Qy, m,
// Rx, Ry); Rx/Ry auto-deduce as R = P + m*Q once P, Q and m are known
// (spec §4.8).
type ECOp struct {
	base memory.Relocatable
}

func NewECOp() *ECOp {
	return &ECOp{}
}

func (e *ECOp) Name() string            { return "ec_op" }
func (e *ECOp) CellsPerInstance() uint64 { return ecOpCellsPerInstance }
func (e *ECOp) Base() memory.Relocatable { return e.base }

func (e *ECOp) InitializeSegments(segments *memory.MemorySegmentManager) {
	e.base = segments.AddSegment()
}

func (e *ECOp) InitialStack() []memory.MaybeRelocatable {
	return []memory.MaybeRelocatable{memory.NewMaybeRelocatableRelocatable(e.base)}
}

func (e *ECOp) DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error) {
	if addr.SegmentIndex != e.base.SegmentIndex {
		return nil, nil
	}
	index := addr.Offset % ecOpCellsPerInstance
	if index != 5 && index != 6 {
		return nil, nil
	}
	instanceBase := addr.Offset - index
	cell := func(off uint64) memory.Relocatable {
		return memory.Relocatable{SegmentIndex: addr.SegmentIndex, Offset: instanceBase + off}
	}
	px, err := mem.GetFelt(cell(0))
	if err != nil {
		return nil, nil
	}
	py, err := mem.GetFelt(cell(1))
	if err != nil {
		return nil, nil
	}
	qx, err := mem.GetFelt(cell(2))
	if err != nil {
		return nil, nil
	}
	qy, err := mem.GetFelt(cell(3))
	if err != nil {
		return nil, nil
	}
	m, err := mem.GetFelt(cell(4))
	if err != nil {
		return nil, nil
	}

	p := curvePoint{x: px, y: py}
	q := curvePoint{x: qx, y: qy}
	r := pointAdd(p, pointMulFelt(q, m))

	var result memory.Felt
	if index == 5 {
		result = r.x
	} else {
		result = r.y
	}
	mr := memory.NewMaybeRelocatableFelt(result)
	return &mr, nil
}

func (e *ECOp) AddValidationRule(mem *memory.Memory) {}
