package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeWord builds an instruction word from the same bit layout
// DecodeInstruction expects, used only by these tests to construct
// known-good fixtures without depending on externally sourced bytecode.
func encodeWord(off0, off1, off2 int16, bits ...uint) uint64 {
	word := uint64(uint16(off0)+offsetBias) | uint64(uint16(off1)+offsetBias)<<16 | uint64(uint16(off2)+offsetBias)<<32
	var flags uint64
	for _, b := range bits {
		flags |= 1 << b
	}
	return word | flags<<48
}

func TestDecodeInstructionRoundTrips(t *testing.T) {
	word := encodeWord(0, -1, 1, op1ImmBit, apAdd1Bit, opcodeAeqBit)
	instr, err := DecodeInstruction(word)
	require.NoError(t, err)
	assert.Equal(t, int16(0), instr.OffDest)
	assert.Equal(t, int16(-1), instr.OffOp0)
	assert.Equal(t, int16(1), instr.OffOp1)
	assert.Equal(t, Imm, instr.Op1Source)
	assert.Equal(t, Add1, instr.ApUpdate)
	assert.Equal(t, AssertEq, instr.Opcode)
	assert.Equal(t, uint64(2), instr.Size())
}

func TestInstructionSizeMatchesImmFlag(t *testing.T) {
	imm, err := DecodeInstruction(encodeWord(0, -1, 1, op1ImmBit, opcodeAeqBit))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), imm.Size())

	noImm, err := DecodeInstruction(encodeWord(0, -1, -1, opcodeAeqBit))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), noImm.Size())
}

func TestDecodeRejectsImmWithNonUnitOffset(t *testing.T) {
	_, err := DecodeInstruction(encodeWord(0, -1, 5, op1ImmBit))
	require.Error(t, err)
}

func TestDecodeDefaultOp1SourceIsOp0(t *testing.T) {
	instr, err := DecodeInstruction(encodeWord(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, Op0, instr.Op1Source)
}

func TestDecodeCallForcesAp2AndRejectsExplicitApUpdate(t *testing.T) {
	_, err := DecodeInstruction(encodeWord(0, -1, 1, op1ImmBit, apAddBit, opcodeCallBit))
	require.Error(t, err)

	instr, err := DecodeInstruction(encodeWord(0, -1, 1, op1ImmBit, opcodeCallBit))
	require.NoError(t, err)
	assert.Equal(t, Add2, instr.ApUpdate)
	assert.Equal(t, APPlus2, instr.FpUpdate)
}
