package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

func TestValidateOrderAcceptsCanonicalSubsequence(t *testing.T) {
	assert.NoError(t, ValidateOrder([]string{"output", "bitwise", "poseidon"}))
}

func TestValidateOrderRejectsOutOfOrder(t *testing.T) {
	err := ValidateOrder([]string{"bitwise", "output"})
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, DisorderedBuiltins, berr.Kind)
}

func TestValidateOrderRejectsUnknownName(t *testing.T) {
	err := ValidateOrder([]string{"not_a_builtin"})
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, UnknownBuiltin, berr.Kind)
}

func TestBuiltinSetDeduceDelegatesToOwningBuiltin(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	set, err := NewBuiltinSet([]string{"output", "bitwise"})
	require.NoError(t, err)
	set.InitializeSegments(sm)

	bw, _ := set.Get("bitwise")
	base := bw.Base()
	require.NoError(t, sm.Memory.Set(base, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(6))))
	xAddr, _ := base.AddUint(1)
	require.NoError(t, sm.Memory.Set(xAddr, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(3))))

	andAddr, _ := base.AddUint(2)
	deduce := set.Deduce(sm.Memory)
	v, ok, err := deduce(andAddr)
	require.NoError(t, err)
	require.True(t, ok)
	f, _ := v.GetFelt()
	assert.True(t, f.Equal(memory.FeltFromUint64(2)))
}

func TestVerifyAutoDeductionsCatchesTamperedCell(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	set, err := NewBuiltinSet([]string{"bitwise"})
	require.NoError(t, err)
	set.InitializeSegments(sm)

	bw, _ := set.Get("bitwise")
	base := bw.Base()
	require.NoError(t, sm.Memory.Set(base, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(6))))
	xAddr, _ := base.AddUint(1)
	require.NoError(t, sm.Memory.Set(xAddr, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(3))))
	andAddr, _ := base.AddUint(2)
	// Write a deliberately wrong value for x&y (should be 2) straight
	// into memory, bypassing the builtin's own deduction path.
	require.NoError(t, sm.Memory.Set(andAddr, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(99))))

	err = set.VerifyAutoDeductions(sm.Memory)
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, InconsistentAutoDeduction, berr.Kind)
}
