package hinter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

func newTestVM(t *testing.T) (*vm.VirtualMachine, memory.Relocatable, memory.Relocatable) {
	sm := memory.NewMemorySegmentManager()
	program := sm.AddSegment()
	execution := sm.AddSegment()
	ctx := vm.NewRunContext(program, execution, execution)
	return vm.NewVirtualMachine(ctx, sm, vm.VirtualMachineConfig{}), program, execution
}

func TestApCellRefResolvesRelativeToAp(t *testing.T) {
	machine, _, execution := newTestVM(t)
	cell, err := execution.AddUint(3)
	require.NoError(t, err)
	require.NoError(t, machine.Memory().Set(cell, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(7))))

	ref := ApCellRef(3)
	v, err := ref.Resolve(machine)
	require.NoError(t, err)
	f, ok := v.GetFelt()
	require.True(t, ok)
	assert.True(t, f.Equal(memory.FeltFromUint64(7)))
}

func TestDerefReadsThroughInnerReference(t *testing.T) {
	machine, _, execution := newTestVM(t)
	ptrCell, err := execution.AddUint(0)
	require.NoError(t, err)
	target, err := execution.AddUint(5)
	require.NoError(t, err)
	require.NoError(t, machine.Memory().Set(ptrCell, memory.NewMaybeRelocatableRelocatable(target)))
	require.NoError(t, machine.Memory().Set(target, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(99))))

	ref := Deref{Deref: ApCellRef(0)}
	v, err := ref.Resolve(machine)
	require.NoError(t, err)
	r, ok := v.GetRelocatable()
	require.True(t, ok)
	assert.True(t, r.Equal(target))
}

func TestBinaryOpAddsTwoImmediates(t *testing.T) {
	machine, _, _ := newTestVM(t)
	op := BinaryOp{Operator: Add, Lhs: Immediate(memory.FeltFromUint64(2)), Rhs: Immediate(memory.FeltFromUint64(3))}
	v, err := op.Resolve(machine)
	require.NoError(t, err)
	f, ok := v.GetFelt()
	require.True(t, ok)
	assert.True(t, f.Equal(memory.FeltFromUint64(5)))
}

func TestApCellRefApplyApTrackingSameGroup(t *testing.T) {
	ref := ApCellRef(2)
	adjusted := ref.ApplyApTracking(ApTracking{Group: 1, Offset: 5}, ApTracking{Group: 1, Offset: 3})
	assert.Equal(t, ApCellRef(4), adjusted)
}

func TestApCellRefApplyApTrackingDifferentGroupIsNoOp(t *testing.T) {
	ref := ApCellRef(2)
	adjusted := ref.ApplyApTracking(ApTracking{Group: 2, Offset: 5}, ApTracking{Group: 1, Offset: 3})
	assert.Equal(t, ApCellRef(2), adjusted)
}
