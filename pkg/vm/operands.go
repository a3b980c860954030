package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// Operands is the result of ComputeOperands: the four operand values
// plus addresses and a "deduced" record used by the step loop to know
// which cells were freshly written rather than read (spec §4.4).
type Operands struct {
	Dst memory.MaybeRelocatable
	Op0 memory.MaybeRelocatable
	Op1 memory.MaybeRelocatable
	Res memory.MaybeRelocatable
	HasRes bool

	DstAddr memory.Relocatable
	Op0Addr memory.Relocatable
	Op1Addr memory.Relocatable

	DstDeduced bool
	Op0Deduced bool
	Op1Deduced bool
}

// DeduceMemoryCellFn is how the VM consults builtin auto-deduction for
// a given address without pkg/vm importing pkg/builtins directly (spec
// §4.8); a nil function, or one that always returns ok=false, disables
// builtin auto-deduction entirely (no builtin segments bound).
type DeduceMemoryCellFn func(addr memory.Relocatable) (memory.MaybeRelocatable, bool, error)

// ComputeOperands runs the central operand-engine algorithm (spec
// §4.4): a fixed op0-then-op1-then-res order plus a builtin
// auto-deduction hook, forming the full ordered algorithm the spec
// describes, including builtin consultation at both op0 and op1.
//
// op1's address only depends on op0 when instr.Op1Source == Op0; in
// every other case it can be computed up front, which lets deduceOp0's
// Add/Mul branches (which need a known op1) see it before op0 itself
// is resolved, matching the "cell at op1_addr if known" wording in
// spec §4.4 step 4.
func ComputeOperands(ctx *RunContext, mem *memory.Memory, instr *Instruction, deduce DeduceMemoryCellFn) (*Operands, error) {
	ops := &Operands{}

	dstAddr, err := ctx.ComputeDstAddr(instr)
	if err != nil {
		return nil, err
	}
	ops.DstAddr = dstAddr
	dst, dstKnown := mem.Get(dstAddr)

	op0Addr, err := ctx.ComputeOp0Addr(instr)
	if err != nil {
		return nil, err
	}
	ops.Op0Addr = op0Addr
	op0, op0Known := mem.Get(op0Addr)

	if !op0Known && deduce != nil {
		if v, ok, derr := deduce(op0Addr); derr != nil {
			return nil, derr
		} else if ok {
			op0, op0Known = v, true
			ops.Op0Deduced = true
		}
	}

	var earlyOp1 memory.MaybeRelocatable
	var earlyOp1Known bool
	if instr.Op1Source != Op0 {
		addr, err := ctx.ComputeOp1Addr(instr, nil)
		if err != nil {
			return nil, err
		}
		earlyOp1, earlyOp1Known = mem.Get(addr)
	}

	var res memory.MaybeRelocatable
	var resKnown bool

	if !op0Known {
		switch instr.Opcode {
		case Call:
			callee, err := ctx.Pc.AddUint(instr.Size())
			if err != nil {
				return nil, newVMErr(FailedToComputeOperands, "deducing call op0: %s", err)
			}
			op0, op0Known = memory.NewMaybeRelocatableRelocatable(callee), true
			ops.Op0Deduced = true
		case AssertEq:
			if d, r, ok, err := deduceOp0(instr, dst, dstKnown, earlyOp1, earlyOp1Known); err != nil {
				return nil, err
			} else if ok {
				op0, op0Known = d, true
				ops.Op0Deduced = true
				res, resKnown = r, true
			}
		}
	}
	if op0Known {
		ops.Op0 = op0
		if ops.Op0Deduced {
			if err := mem.Set(op0Addr, op0); err != nil {
				return nil, newVMErr(FailedToComputeOperands, "writing deduced op0: %s", err)
			}
		}
	}

	var op0Ptr *memory.MaybeRelocatable
	if op0Known {
		op0Ptr = &op0
	}
	op1Addr, err := ctx.ComputeOp1Addr(instr, op0Ptr)
	if err != nil {
		return nil, err
	}
	ops.Op1Addr = op1Addr
	var op1 memory.MaybeRelocatable
	var op1Known bool
	if earlyOp1Known {
		op1, op1Known = earlyOp1, true
	} else {
		op1, op1Known = mem.Get(op1Addr)
	}

	if !op1Known {
		if d, r, ok, err := deduceOp1(instr, dst, dstKnown, op0, op0Known); err != nil {
			return nil, err
		} else if ok {
			op1, op1Known = d, true
			ops.Op1Deduced = true
			res, resKnown = r, true
		}
	}
	if !op1Known && deduce != nil {
		if v, ok, derr := deduce(op1Addr); derr != nil {
			return nil, derr
		} else if ok {
			op1, op1Known = v, true
			ops.Op1Deduced = true
		}
	}
	if op1Known {
		ops.Op1 = op1
		if ops.Op1Deduced {
			if err := mem.Set(op1Addr, op1); err != nil {
				return nil, newVMErr(FailedToComputeOperands, "writing deduced op1: %s", err)
			}
		}
	}

	if !resKnown && op0Known && op1Known {
		r, ok, err := computeRes(instr, op0, op1)
		if err != nil {
			return nil, err
		}
		res, resKnown = r, ok
	}
	if resKnown {
		ops.Res = res
		ops.HasRes = true
	}

	if !dstKnown {
		switch instr.Opcode {
		case AssertEq:
			if !resKnown {
				return nil, newVMErr(NoDst, "cannot deduce dst: res is unconstrained for AssertEq")
			}
			dst, dstKnown = res, true
		case Call:
			dst, dstKnown = memory.NewMaybeRelocatableRelocatable(ctx.Fp), true
		}
		if dstKnown {
			ops.DstDeduced = true
		}
	}
	if !dstKnown {
		return nil, newVMErr(NoDst, "could not determine dst at %s", dstAddr)
	}
	ops.Dst = dst
	if ops.DstDeduced {
		if err := mem.Set(dstAddr, dst); err != nil {
			return nil, newVMErr(FailedToComputeOperands, "writing deduced dst: %s", err)
		}
	}
	if !op0Known {
		return nil, newVMErr(NoOp0, "could not determine op0 at %s", op0Addr)
	}
	if !op1Known {
		return nil, newVMErr(NoOp1, "could not determine op1 at %s", op1Addr)
	}

	return ops, nil
}

// deduceOp0 implements spec §4.4 step 4 for opcode AssertEq: arithmetic
// deduction of op0 from dst and (if known) op1.
func deduceOp0(instr *Instruction, dst memory.MaybeRelocatable, dstKnown bool, op1 memory.MaybeRelocatable, op1Known bool) (memory.MaybeRelocatable, memory.MaybeRelocatable, bool, error) {
	if !dstKnown || !op1Known {
		return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
	}
	switch instr.Res {
	case AddOperands:
		v, err := dst.Sub(op1)
		if err != nil {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		return v, dst, true, nil
	case MulOperands:
		f1, ok := op1.GetFelt()
		if !ok || f1.IsZero() {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		f0, ok := dst.GetFelt()
		if !ok {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		return memory.NewMaybeRelocatableFelt(f0.Div(f1)), dst, true, nil
	default:
		return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
	}
}

// deduceOp1 implements spec §4.4 step 7: arithmetic deduction of op1
// from the instruction, dst and (if known) op0.
func deduceOp1(instr *Instruction, dst memory.MaybeRelocatable, dstKnown bool, op0 memory.MaybeRelocatable, op0Known bool) (memory.MaybeRelocatable, memory.MaybeRelocatable, bool, error) {
	if !dstKnown {
		return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
	}
	switch instr.Res {
	case Op1:
		return dst, dst, true, nil
	case AddOperands:
		if !op0Known {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		v, err := dst.Sub(op0)
		if err != nil {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		return v, dst, true, nil
	case MulOperands:
		if !op0Known {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		f0, ok := op0.GetFelt()
		if !ok || f0.IsZero() {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		fd, ok := dst.GetFelt()
		if !ok {
			return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
		}
		return memory.NewMaybeRelocatableFelt(fd.Div(f0)), dst, true, nil
	default:
		return memory.MaybeRelocatable{}, memory.MaybeRelocatable{}, false, nil
	}
}

// computeRes implements spec §4.4 step 9.
func computeRes(instr *Instruction, op0, op1 memory.MaybeRelocatable) (memory.MaybeRelocatable, bool, error) {
	switch instr.Res {
	case Op1:
		return op1, true, nil
	case AddOperands:
		v, err := op0.Add(op1)
		if err != nil {
			return memory.MaybeRelocatable{}, false, newVMErr(InvalidRes, "res=Add: %s", err)
		}
		return v, true, nil
	case MulOperands:
		v, err := op0.Mul(op1)
		if err != nil {
			return memory.MaybeRelocatable{}, false, newVMErr(InvalidRes, "res=Mul: %s", err)
		}
		return v, true, nil
	case Unconstrained:
		return memory.MaybeRelocatable{}, false, nil
	default:
		return memory.MaybeRelocatable{}, false, newVMErr(InvalidRes, "unknown res logic %d", instr.Res)
	}
}
