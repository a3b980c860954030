package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// RunContext holds the three registers driving the fetch-decode-execute
// cycle (spec §3, §4.3). Ap and Fp stay full Relocatable values
// throughout rather than bare uint64 offsets into segment 1, per the
// spec's explicit design note that Relocatable must not be folded into
// a flat integer before relocation time (spec §9).
type RunContext struct {
	Pc memory.Relocatable
	Ap memory.Relocatable
	Fp memory.Relocatable
}

func NewRunContext(pc, ap, fp memory.Relocatable) RunContext {
	return RunContext{Pc: pc, Ap: ap, Fp: fp}
}

func (ctx *RunContext) regBase(reg Register) memory.Relocatable {
	if reg == Fp {
		return ctx.Fp
	}
	return ctx.Ap
}

// ComputeDstAddr returns dst's address: [dst_reg] + off_dst (spec §4.3).
func (ctx *RunContext) ComputeDstAddr(instr *Instruction) (memory.Relocatable, error) {
	base := ctx.regBase(instr.DstRegister)
	addr, err := base.AddOffset(instr.OffDest)
	if err != nil {
		return memory.Relocatable{}, newVMErr(InstructionEncodingError, "computing dst address: %s", err)
	}
	return addr, nil
}

// ComputeOp0Addr returns op0's address: [op0_reg] + off_op0 (spec §4.3).
func (ctx *RunContext) ComputeOp0Addr(instr *Instruction) (memory.Relocatable, error) {
	base := ctx.regBase(instr.Op0Register)
	addr, err := base.AddOffset(instr.OffOp0)
	if err != nil {
		return memory.Relocatable{}, newVMErr(InstructionEncodingError, "computing op0 address: %s", err)
	}
	return addr, nil
}

// ComputeOp1Addr returns op1's address, which depends on op1_src (spec
// §4.3): Op0 bases off the already-resolved op0 operand (which must be
// a relocatable — e.g. a pointer loaded from memory), Imm bases off
// pc (decoding requires off_op1 == 1 for Imm, so the address is pc+1),
// FpPlusOffOp1/ApPlusOffOp1 base off fp/ap directly.
func (ctx *RunContext) ComputeOp1Addr(instr *Instruction, op0 *memory.MaybeRelocatable) (memory.Relocatable, error) {
	var base memory.Relocatable
	switch instr.Op1Source {
	case Imm:
		base = ctx.Pc
	case FpPlusOffOp1:
		base = ctx.Fp
	case ApPlusOffOp1:
		base = ctx.Ap
	case Op0:
		if op0 == nil {
			return memory.Relocatable{}, newVMErr(NoOp0, "op1_src=Op0 requires op0 to already be known")
		}
		r, ok := op0.GetRelocatable()
		if !ok {
			return memory.Relocatable{}, newVMErr(NoOp1, "op1_src=Op0 requires op0 to be a relocatable, got %s", op0)
		}
		base = r
	default:
		return memory.Relocatable{}, newVMErr(InstructionEncodingError, "unknown op1_src %d", instr.Op1Source)
	}
	addr, err := base.AddOffset(instr.OffOp1)
	if err != nil {
		return memory.Relocatable{}, newVMErr(InstructionEncodingError, "computing op1 address: %s", err)
	}
	return addr, nil
}
