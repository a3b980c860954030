package vm

import "fmt"

// Register selects which run-context register an offset is relative to.
type Register uint8

const (
	Ap Register = iota
	Fp
)

// Op1Src selects where op1's address comes from (spec §3).
type Op1Src uint8

const (
	Op0 Op1Src = iota
	Imm
	FpPlusOffOp1
	ApPlusOffOp1
)

// ResLogic selects how `res` is derived from op0/op1 (spec §3).
type ResLogic uint8

const (
	Op1 ResLogic = iota
	AddOperands
	MulOperands
	Unconstrained
)

// PcUpdate selects how PC advances after a step (spec §3).
type PcUpdate uint8

const (
	NextInstr PcUpdate = iota
	Jump
	JumpRel
	Jnz
)

// ApUpdate selects how AP advances after a step (spec §3).
type ApUpdate uint8

const (
	SameAp ApUpdate = iota
	AddImm
	Add1
	Add2
)

// FpUpdate selects how FP advances after a step (spec §3).
type FpUpdate uint8

const (
	SameFp FpUpdate = iota
	APPlus2
	Dst
)

// Opcode is the instruction's semantic class (spec §3).
type Opcode uint8

const (
	NOp Opcode = iota
	AssertEq
	Call
	Ret
)

// Instruction is a fully decoded Cairo instruction word (spec §3). The
// field names and flag semantics below follow the Cairo whitepaper's
// instruction layout, covering the full register/update enum space
// named in the spec (Op1Src gains its Op0 base case, FpUpdate its Dst
// case, and the opcode set gains NOp).
type Instruction struct {
	OffDest int16
	OffOp0  int16
	OffOp1  int16

	DstRegister Register
	Op0Register Register
	Op1Source   Op1Src

	Res      ResLogic
	PcUpdate PcUpdate
	ApUpdate ApUpdate
	FpUpdate FpUpdate
	Opcode   Opcode
}

// Size is 2 when the instruction carries an immediate (it occupies the
// next memory cell too), 1 otherwise (spec §3, §8 property 3).
func (i *Instruction) Size() uint64 {
	if i.Op1Source == Imm {
		return 2
	}
	return 1
}

const (
	destRegBit    = 0
	op0RegBit     = 1
	op1ImmBit     = 2
	op1FpBit      = 3
	op1ApBit      = 4
	resAddBit     = 5
	resMulBit     = 6
	pcJumpAbsBit  = 7
	pcJumpRelBit  = 8
	pcJnzBit      = 9
	apAddBit      = 10
	apAdd1Bit     = 11
	opcodeCallBit = 12
	opcodeRetBit  = 13
	opcodeAeqBit  = 14

	offsetBias = 1 << 15
	offsetMask = 1<<16 - 1
)

func bit(flags uint64, n uint) bool {
	return flags&(1<<n) != 0
}

// DecodeInstruction decodes a 63 bit instruction word into its fields
// (spec §3). Offsets are stored biased by 2^15 in the low 48 bits
// (16 bits each); the high 15 bits are one-hot flag groups.
func DecodeInstruction(word uint64) (*Instruction, error) {
	if word>>63 != 0 {
		return nil, newVMErr(InstructionEncodingError, "high bit of instruction word must be zero")
	}

	off0 := int16(int64(word&offsetMask) - offsetBias)
	off1 := int16(int64((word>>16)&offsetMask) - offsetBias)
	off2 := int16(int64((word>>32)&offsetMask) - offsetBias)
	flags := word >> 48

	instr := &Instruction{OffDest: off0, OffOp0: off1, OffOp1: off2}

	if bit(flags, destRegBit) {
		instr.DstRegister = Fp
	} else {
		instr.DstRegister = Ap
	}
	if bit(flags, op0RegBit) {
		instr.Op0Register = Fp
	} else {
		instr.Op0Register = Ap
	}

	switch {
	case bit(flags, op1ImmBit):
		instr.Op1Source = Imm
	case bit(flags, op1FpBit):
		instr.Op1Source = FpPlusOffOp1
	case bit(flags, op1ApBit):
		instr.Op1Source = ApPlusOffOp1
	default:
		instr.Op1Source = Op0
	}
	if instr.Op1Source == Imm && off2 != 1 {
		return nil, newVMErr(InstructionEncodingError, "op1_src=Imm requires off2 == 1, got %d", off2)
	}

	switch {
	case bit(flags, resAddBit):
		instr.Res = AddOperands
	case bit(flags, resMulBit):
		instr.Res = MulOperands
	default:
		instr.Res = Op1
	}

	switch {
	case bit(flags, pcJumpAbsBit):
		instr.PcUpdate = Jump
	case bit(flags, pcJumpRelBit):
		instr.PcUpdate = JumpRel
	case bit(flags, pcJnzBit):
		instr.PcUpdate = Jnz
	default:
		instr.PcUpdate = NextInstr
	}
	if instr.PcUpdate == Jnz && instr.Res != Unconstrained && !bit(flags, resAddBit) && !bit(flags, resMulBit) {
		// Jnz leaves res unconstrained unless explicitly set by res flags.
		instr.Res = Unconstrained
	}

	switch {
	case bit(flags, apAddBit):
		instr.ApUpdate = AddImm
	case bit(flags, apAdd1Bit):
		instr.ApUpdate = Add1
	default:
		instr.ApUpdate = SameAp
	}

	switch {
	case bit(flags, opcodeCallBit):
		instr.Opcode = Call
		instr.FpUpdate = APPlus2
	case bit(flags, opcodeRetBit):
		instr.Opcode = Ret
		instr.FpUpdate = Dst
	case bit(flags, opcodeAeqBit):
		instr.Opcode = AssertEq
		instr.FpUpdate = SameFp
	default:
		instr.Opcode = NOp
		instr.FpUpdate = SameFp
	}

	if instr.Opcode == Call {
		if instr.ApUpdate != SameAp {
			return nil, newVMErr(InstructionEncodingError, "opcode Call requires ap_update = Regular")
		}
		instr.ApUpdate = Add2
	}

	return instr, nil
}

func (i *Instruction) String() string {
	return fmt.Sprintf(
		"Instruction{off0:%d off1:%d off2:%d dst:%v op0:%v op1src:%v res:%v pc:%v ap:%v fp:%v opcode:%v}",
		i.OffDest, i.OffOp0, i.OffOp1, i.DstRegister, i.Op0Register, i.Op1Source,
		i.Res, i.PcUpdate, i.ApUpdate, i.FpUpdate, i.Opcode,
	)
}
