package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

func TestBitwiseDeducesAndOrXor(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	bw := NewBitwise()
	bw.InitializeSegments(sm)

	base := bw.Base()
	require.NoError(t, sm.Memory.Set(base, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(0b1100))))
	xAddr, err := base.AddUint(1)
	require.NoError(t, err)
	require.NoError(t, sm.Memory.Set(xAddr, memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(0b1010))))

	andAddr, _ := base.AddUint(2)
	xorAddr, _ := base.AddUint(3)
	orAddr, _ := base.AddUint(4)

	and, err := bw.DeduceMemoryCell(andAddr, sm.Memory)
	require.NoError(t, err)
	require.NotNil(t, and)
	f, ok := and.GetFelt()
	require.True(t, ok)
	assert.True(t, f.Equal(memory.FeltFromUint64(0b1000)))

	xor, err := bw.DeduceMemoryCell(xorAddr, sm.Memory)
	require.NoError(t, err)
	f, _ = xor.GetFelt()
	assert.True(t, f.Equal(memory.FeltFromUint64(0b0110)))

	or, err := bw.DeduceMemoryCell(orAddr, sm.Memory)
	require.NoError(t, err)
	f, _ = or.GetFelt()
	assert.True(t, f.Equal(memory.FeltFromUint64(0b1110)))
}

func TestBitwiseNoDeductionBeforeInputsKnown(t *testing.T) {
	sm := memory.NewMemorySegmentManager()
	bw := NewBitwise()
	bw.InitializeSegments(sm)

	andAddr, _ := bw.Base().AddUint(2)
	v, err := bw.DeduceMemoryCell(andAddr, sm.Memory)
	require.NoError(t, err)
	assert.Nil(t, v)
}
