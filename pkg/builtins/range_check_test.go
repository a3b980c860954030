package builtins

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

func TestRangeCheckAcceptsValueBelowBound(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	rc := NewRangeCheck()
	rc.InitializeSegments(sm)
	rc.AddValidationRule(sm.Memory)

	err := sm.Memory.Set(rc.Base(), memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(42)))
	assert.NoError(t, err)
}

func TestRangeCheckRejectsValueAtOrAboveBound(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	rc := NewRangeCheck()
	rc.InitializeSegments(sm)
	rc.AddValidationRule(sm.Memory)

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 128)
	err := sm.Memory.Set(rc.Base(), memory.NewMaybeRelocatableFelt(memory.FeltFromBigInt(tooLarge)))
	require.Error(t, err)
	var rcErr *Error
	require.ErrorAs(t, err, &rcErr)
	assert.Equal(t, RangeCheckOutOfRange, rcErr.Kind)
}

func TestRangeCheckRejectsRelocatable(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	rc := NewRangeCheck()
	rc.InitializeSegments(sm)
	rc.AddValidationRule(sm.Memory)

	other := sm.AddSegment()
	err := sm.Memory.Set(rc.Base(), memory.NewMaybeRelocatableRelocatable(other))
	require.Error(t, err)
	var rcErr *Error
	require.ErrorAs(t, err, &rcErr)
	assert.Equal(t, RangeCheckOutOfRange, rcErr.Kind)
}
