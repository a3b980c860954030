package zero

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zprog "github.com/NethermindEth/cairo-vm-go/pkg/parsers/zero"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// Bit positions mirror pkg/vm/instruction.go's flag layout (spec §3);
// duplicated here because that package keeps them unexported.
const (
	destRegBit    = 0
	op0RegBit     = 1
	op1FpBit      = 3
	pcJumpAbsBit  = 7
	opcodeRetBit  = 13
)

const offsetBias = 1 << 15

func encodeWord(off0, off1, off2 int16, bits ...uint) uint64 {
	word := uint64(uint16(off0)+offsetBias) | uint64(uint16(off1)+offsetBias)<<16 | uint64(uint16(off2)+offsetBias)<<32
	var flags uint64
	for _, b := range bits {
		flags |= 1 << b
	}
	return word | flags<<48
}

// retProgram is a single "ret" instruction: dst = [fp-2] (the caller's
// fp), op0 = op1 = [fp-1] (the return address), matching the stack
// initializeEntrypoint sets up with no arguments (spec §6).
func retProgram(t *testing.T) *zprog.Program {
	t.Helper()
	word := encodeWord(-2, -1, -1, destRegBit, op0RegBit, op1FpBit, pcJumpAbsBit, opcodeRetBit)
	main := uint64(0)
	return &zprog.Program{
		Data:     []memory.MaybeRelocatable{memory.NewMaybeRelocatableFelt(memory.FeltFromUint64(word))},
		Builtins: nil,
		Main:     &main,
	}
}

func TestNewRunnerAllocatesProgramAndExecutionSegments(t *testing.T) {
	r, err := NewRunner(retProgram(t), false, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.programBase.SegmentIndex)
	assert.Equal(t, int64(1), r.executionBase.SegmentIndex)
	assert.Empty(t, r.Builtins.All())
}

func TestZeroRunnerExecutionModeRunsToRet(t *testing.T) {
	r, err := NewRunner(retProgram(t), false, 1000)
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.Equal(t, uint64(1), r.VM.Step)
	assert.True(t, r.runFinished)
}

func TestZeroRunnerRejectsSecondRun(t *testing.T) {
	r, err := NewRunner(retProgram(t), false, 1000)
	require.NoError(t, err)
	require.NoError(t, r.Run())

	err = r.Run()
	require.Error(t, err)
	var zErr *Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, EndRunAlreadyCalled, zErr.Kind)
}

func TestZeroRunnerMissingMainFails(t *testing.T) {
	program := retProgram(t)
	program.Main = nil
	r, err := NewRunner(program, false, 1000)
	require.NoError(t, err)

	err = r.Run()
	require.Error(t, err)
	var zErr *Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, MissingMain, zErr.Kind)
}

func TestZeroRunnerProofModeWithoutLabelsFails(t *testing.T) {
	r, err := NewRunner(retProgram(t), true, 1000)
	require.NoError(t, err)

	err = r.Run()
	require.Error(t, err)
	var zErr *Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, NoProgramStart, zErr.Kind)
}

func TestZeroRunnerMaxStepsExceeded(t *testing.T) {
	r, err := NewRunner(retProgram(t), false, 0)
	require.NoError(t, err)

	err = r.Run()
	require.Error(t, err)
}

func TestZeroRunnerBuildProofAfterExecutionRun(t *testing.T) {
	r, err := NewRunner(retProgram(t), false, 1000)
	require.NoError(t, err)
	require.NoError(t, r.Run())

	traceBytes, memoryBytes, err := r.BuildProof()
	require.NoError(t, err)
	assert.Empty(t, traceBytes)
	assert.NotEmpty(t, memoryBytes)
}

func TestEncodeDecodeTraceRoundTrip(t *testing.T) {
	trace := []vm.RelocatedTraceEntry{
		{Pc: memory.FeltFromUint64(1), Ap: memory.FeltFromUint64(5), Fp: memory.FeltFromUint64(5)},
		{Pc: memory.FeltFromUint64(3), Ap: memory.FeltFromUint64(6), Fp: memory.FeltFromUint64(5)},
	}
	encoded, err := EncodeTrace(trace)
	require.NoError(t, err)
	assert.Equal(t, trace, DecodeTrace(encoded))
}

func TestEncodeDecodeMemoryRoundTrip(t *testing.T) {
	mem := vm.RelocatedMemory{
		1: memory.FeltFromUint64(5),
		2: memory.FeltFromUint64(7),
		9: memory.FeltFromUint64(42),
	}
	encoded := EncodeMemory(mem)
	assert.Equal(t, mem, DecodeMemory(encoded))
}
