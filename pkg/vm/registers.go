package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// OpcodeAssertions checks the invariants an instruction's opcode
// imposes on already-computed operands (spec §4.5). It never mutates
// memory — every write-back happened inside ComputeOperands.
func OpcodeAssertions(ctx *RunContext, instr *Instruction, ops *Operands) error {
	switch instr.Opcode {
	case AssertEq:
		if !ops.HasRes {
			return newVMErr(DiffAssertValues, "res is unconstrained, cannot assert against dst")
		}
		if !assertEqual(ops.Res, ops.Dst) {
			return newVMErr(DiffAssertValues, "assertion failed: %s != %s", ops.Res, ops.Dst)
		}
	case Call:
		callee, err := ctx.Pc.AddUint(instr.Size())
		if err != nil {
			return newVMErr(FailedToComputeOperands, "computing return pc: %s", err)
		}
		if !ops.Op0.Equal(memory.NewMaybeRelocatableRelocatable(callee)) {
			return newVMErr(InvalidOpcode, "call: op0 (%s) must equal return pc (%s)", ops.Op0, callee)
		}
		if !ops.Dst.Equal(memory.NewMaybeRelocatableRelocatable(ctx.Fp)) {
			return newVMErr(InvalidOpcode, "call: dst (%s) must equal fp (%s)", ops.Dst, ctx.Fp)
		}
	case Ret, NOp:
		// no assertion
	}
	return nil
}

// assertEqual compares res and dst either as field elements or, when
// both are relocatables, by segment and offset (spec §4.5).
func assertEqual(a, b memory.MaybeRelocatable) bool {
	return a.Equal(b)
}

// UpdateRegisters computes the next (Pc, Ap, Fp) after a step (spec
// §4.6): separate updatePc/updateAp/updateFp steps over
// Relocatable-valued registers and the full update-kind enum.
func UpdateRegisters(ctx *RunContext, instr *Instruction, ops *Operands) (RunContext, error) {
	next := *ctx

	nextAp, err := updateAp(ctx, instr, ops)
	if err != nil {
		return RunContext{}, err
	}
	next.Ap = nextAp

	nextFp, err := updateFp(ctx, instr, ops, nextAp)
	if err != nil {
		return RunContext{}, err
	}
	next.Fp = nextFp

	nextPc, err := updatePc(ctx, instr, ops)
	if err != nil {
		return RunContext{}, err
	}
	next.Pc = nextPc

	return next, nil
}

func updateAp(ctx *RunContext, instr *Instruction, ops *Operands) (memory.Relocatable, error) {
	if instr.Opcode == Call {
		return ctx.Ap.AddUint(2)
	}
	switch instr.ApUpdate {
	case SameAp:
		return ctx.Ap, nil
	case AddImm:
		if !ops.HasRes {
			return memory.Relocatable{}, newVMErr(InvalidApUpdate, "ap_update=Add requires res to be known")
		}
		switch {
		case ops.Res.IsFelt():
			f, _ := ops.Res.GetFelt()
			return ctx.Ap.AddFelt(f)
		default:
			r, _ := ops.Res.GetRelocatable()
			off, err := r.SubRelocatable(ctx.Ap)
			if err != nil {
				return memory.Relocatable{}, newVMErr(InvalidApUpdate, "ap_update=Add with relocatable res: %s", err)
			}
			return ctx.Ap.AddUint(off)
		}
	case Add1:
		return ctx.Ap.AddUint(1)
	case Add2:
		return ctx.Ap.AddUint(2)
	default:
		return memory.Relocatable{}, newVMErr(InvalidApUpdate, "unknown ap_update %d", instr.ApUpdate)
	}
}

func updateFp(ctx *RunContext, instr *Instruction, ops *Operands, nextAp memory.Relocatable) (memory.Relocatable, error) {
	if instr.Opcode == Call {
		return nextAp, nil
	}
	switch instr.FpUpdate {
	case SameFp:
		return ctx.Fp, nil
	case APPlus2:
		return nextAp, nil
	case Dst:
		if ops.Dst.IsRelocatable() {
			r, _ := ops.Dst.GetRelocatable()
			return r, nil
		}
		f, ok := ops.Dst.GetFelt()
		if !ok {
			return memory.Relocatable{}, newVMErr(InvalidOpcode, "fp_update=Dst requires dst to be known")
		}
		return ctx.Fp.AddFelt(f)
	default:
		return memory.Relocatable{}, newVMErr(InvalidOpcode, "unknown fp_update %d", instr.FpUpdate)
	}
}

func updatePc(ctx *RunContext, instr *Instruction, ops *Operands) (memory.Relocatable, error) {
	switch instr.PcUpdate {
	case NextInstr:
		return ctx.Pc.AddUint(instr.Size())
	case Jump:
		if !ops.HasRes {
			return memory.Relocatable{}, newVMErr(InvalidPcUpdate, "pc_update=Jump requires res to be known")
		}
		r, ok := ops.Res.GetRelocatable()
		if !ok {
			return memory.Relocatable{}, newVMErr(InvalidPcUpdate, "pc_update=Jump requires res to be relocatable, got %s", ops.Res)
		}
		return r, nil
	case JumpRel:
		if !ops.HasRes {
			return memory.Relocatable{}, newVMErr(InvalidPcUpdate, "pc_update=JumpRel requires res to be known")
		}
		f, ok := ops.Res.GetFelt()
		if !ok {
			return memory.Relocatable{}, newVMErr(InvalidPcUpdate, "pc_update=JumpRel requires res to be a felt, got %s", ops.Res)
		}
		return ctx.Pc.AddFelt(f)
	case Jnz:
		if ops.Dst.IsZero() {
			return ctx.Pc.AddUint(instr.Size())
		}
		f, ok := ops.Op1.GetFelt()
		if !ok {
			return memory.Relocatable{}, newVMErr(JnzNotFelt, "pc_update=Jnz requires op1 to be a felt when dst != 0, got %s", ops.Op1)
		}
		return ctx.Pc.AddFelt(f)
	default:
		return memory.Relocatable{}, newVMErr(InvalidPcUpdate, "unknown pc_update %d", instr.PcUpdate)
	}
}
