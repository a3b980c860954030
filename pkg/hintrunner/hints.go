package hintrunner

import (
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// AllocSegmentHint implements the common "memory[dst] = segments.add()"
// hint cairo0 code emits ahead of using a scratch buffer with no
// builtin of its own.
type AllocSegmentHint struct {
	Dst hinter.Reference
}

func (h AllocSegmentHint) String() string { return "alloc_segment" }

func (h AllocSegmentHint) Execute(machine *vm.VirtualMachine, scopes *hinter.ExecutionScopes) error {
	addr, err := h.Dst.Get(machine)
	if err != nil {
		return err
	}
	seg := machine.Segments.AddSegment()
	return machine.Memory().Set(addr, memory.NewMaybeRelocatableRelocatable(seg))
}

// TestLessThanHint implements "memory[dst] = 1 if lhs < rhs else 0",
// comparing as signed integers the way cairo0's is_le/is_lt hints do.
type TestLessThanHint struct {
	Dst, Lhs, Rhs hinter.Reference
}

func (h TestLessThanHint) String() string { return "test_less_than" }

func (h TestLessThanHint) Execute(machine *vm.VirtualMachine, scopes *hinter.ExecutionScopes) error {
	lv, err := h.Lhs.Resolve(machine)
	if err != nil {
		return err
	}
	rv, err := h.Rhs.Resolve(machine)
	if err != nil {
		return err
	}
	lf, ok := lv.GetFelt()
	if !ok {
		return newErr(HintExecutionFailed, "test_less_than: lhs is not a felt")
	}
	rf, ok := rv.GetFelt()
	if !ok {
		return newErr(HintExecutionFailed, "test_less_than: rhs is not a felt")
	}
	result := memory.FeltZero()
	if lf.AsInt().Cmp(rf.AsInt()) < 0 {
		result = memory.FeltOne()
	}
	addr, err := h.Dst.Get(machine)
	if err != nil {
		return err
	}
	return machine.Memory().Set(addr, memory.NewMaybeRelocatableFelt(result))
}

// AssertNotZeroHint implements "assert memory[target] != 0", a pure
// check with no memory write of its own.
type AssertNotZeroHint struct {
	Target hinter.Reference
}

func (h AssertNotZeroHint) String() string { return "assert_not_zero" }

func (h AssertNotZeroHint) Execute(machine *vm.VirtualMachine, scopes *hinter.ExecutionScopes) error {
	v, err := h.Target.Resolve(machine)
	if err != nil {
		return err
	}
	if v.IsZero() {
		return newErr(HintExecutionFailed, "assert_not_zero: value at %s is zero", h.Target)
	}
	return nil
}
