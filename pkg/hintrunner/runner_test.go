package hintrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

func newTestVM(t *testing.T) (*vm.VirtualMachine, memory.Relocatable) {
	sm := memory.NewMemorySegmentManager()
	program := sm.AddSegment()
	execution := sm.AddSegment()
	ctx := vm.NewRunContext(program, execution, execution)
	return vm.NewVirtualMachine(ctx, sm, vm.VirtualMachineConfig{}), execution
}

func TestAllocSegmentHintWritesNewSegmentBase(t *testing.T) {
	machine, execution := newTestVM(t)
	h := AllocSegmentHint{Dst: hinter.ApCellRef(0)}
	require.NoError(t, h.Execute(machine, hinter.NewExecutionScopes()))

	cell, err := execution.AddOffset(0)
	require.NoError(t, err)
	v, ok := machine.Memory().Get(cell)
	require.True(t, ok)
	reloc, ok := v.GetRelocatable()
	require.True(t, ok)
	assert.Equal(t, int64(2), reloc.SegmentIndex)
}

func TestTestLessThanHintWritesOneWhenLhsSmaller(t *testing.T) {
	machine, execution := newTestVM(t)
	lhsCell, err := execution.AddUint(0)
	require.NoError(t, err)
	rhsCell, err := execution.AddUint(1)
	require.NoError(t, err)
	require.NoError(t, machine.Memory().Set(lhsCell, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(3))))
	require.NoError(t, machine.Memory().Set(rhsCell, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(9))))

	h := TestLessThanHint{Dst: hinter.ApCellRef(2), Lhs: hinter.ApCellRef(0), Rhs: hinter.ApCellRef(1)}
	require.NoError(t, h.Execute(machine, hinter.NewExecutionScopes()))

	dst, err := execution.AddUint(2)
	require.NoError(t, err)
	v, ok := machine.Memory().Get(dst)
	require.True(t, ok)
	f, ok := v.GetFelt()
	require.True(t, ok)
	assert.True(t, f.Equal(memory.FeltOne()))
}

func TestAssertNotZeroHintFailsOnZero(t *testing.T) {
	machine, execution := newTestVM(t)
	cell, err := execution.AddUint(0)
	require.NoError(t, err)
	require.NoError(t, machine.Memory().Set(cell, memory.NewMaybeRelocatableFelt(memory.FeltZero())))

	h := AssertNotZeroHint{Target: hinter.ApCellRef(0)}
	err = h.Execute(machine, hinter.NewExecutionScopes())
	require.Error(t, err)
}

func TestHintRunnerDispatchesByProgramOffset(t *testing.T) {
	machine, execution := newTestVM(t)
	cell, err := execution.AddUint(0)
	require.NoError(t, err)

	runner := NewNonExtensive(map[uint64][]Hint{
		0: {AllocSegmentHint{Dst: hinter.ApCellRef(0)}},
	})

	require.NoError(t, runner.RunHint(machine))

	v, ok := machine.Memory().Get(cell)
	require.True(t, ok)
	_, ok = v.GetRelocatable()
	assert.True(t, ok)
}

func TestHintRunnerSkipsPcOutsideProgramSegment(t *testing.T) {
	machine, _ := newTestVM(t)
	machine.Context.Pc = memory.Relocatable{SegmentIndex: vm.ExecutionSegment, Offset: 0}

	runner := NewNonExtensive(map[uint64][]Hint{
		0: {AssertNotZeroHint{Target: hinter.Immediate(memory.FeltZero())}},
	})

	assert.NoError(t, runner.RunHint(machine))
}
