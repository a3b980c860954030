// Package hinter models the operand references a compiled hint uses to
// read and write VM memory: cell references relative to ap/fp,
// dereferences, double dereferences, immediates and simple binary
// arithmetic over them. Grounded on
// _examples/other_examples/90de842d_TAdev0-cairo-vm-go-nethermind__pkg-hintrunner-hinter-operand.go.go,
// adapted so ApCellRef/FpCellRef compute addresses directly off the
// VM's full Relocatable Ap/Fp registers instead of that fork's flat,
// execution-segment-only offsets.
package hinter

import (
	"fmt"

	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// ApTracking records the ap-tracking group and offset a compiled hint
// was generated against (spec §6), used by ApplyApTracking to adjust a
// reference captured at compile time for how far ap has since moved.
type ApTracking struct {
	Group  uint64
	Offset uint64
}

// Reference is anything a hint can resolve to a memory address and/or
// value.
type Reference interface {
	fmt.Stringer
	Get(vm *vm.VirtualMachine) (memory.Relocatable, error)
	Resolve(vm *vm.VirtualMachine) (memory.MaybeRelocatable, error)
	ApplyApTracking(hint, ref ApTracking) Reference
}

// CellRefer is implemented by the two flat cell references (Ap/FpCellRef)
// so DoubleDeref can adjust an inner reference's offset uniformly.
type CellRefer interface {
	AddOffset(int16) CellRefer
}

// ApCellRef is "[ap + offset]".
type ApCellRef int16

func (r ApCellRef) AddOffset(o int16) CellRefer { return r + ApCellRef(o) }

func (r ApCellRef) String() string { return fmt.Sprintf("[ap + %d]", int16(r)) }

func (r ApCellRef) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return v.Context.Ap.AddOffset(int16(r))
}

func (r ApCellRef) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	addr, err := r.Get(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	val, ok := v.Memory().Get(addr)
	if !ok {
		return memory.MaybeRelocatable{}, newErr(UnknownValue, "no value at %s", addr)
	}
	return val, nil
}

// ApplyApTracking adjusts r by how far ap has moved since the hint was
// compiled, but only within the same tracking group — a group change
// means ap's relationship to the reference is no longer known
// statically, so the reference is left unchanged.
func (r ApCellRef) ApplyApTracking(hint, ref ApTracking) Reference {
	if hint.Group != ref.Group {
		return r
	}
	delta := int64(hint.Offset) - int64(ref.Offset)
	return r + ApCellRef(delta)
}

// FpCellRef is "[fp + offset]". Unlike ap, fp is stable across a
// tracking group change (it only moves on Call/Ret), so ApplyApTracking
// is a no-op.
type FpCellRef int16

func (r FpCellRef) AddOffset(o int16) CellRefer { return r + FpCellRef(o) }

func (r FpCellRef) String() string { return fmt.Sprintf("[fp + %d]", int16(r)) }

func (r FpCellRef) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return v.Context.Fp.AddOffset(int16(r))
}

func (r FpCellRef) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	addr, err := r.Get(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	val, ok := v.Memory().Get(addr)
	if !ok {
		return memory.MaybeRelocatable{}, newErr(UnknownValue, "no value at %s", addr)
	}
	return val, nil
}

func (r FpCellRef) ApplyApTracking(hint, ref ApTracking) Reference { return r }

// Deref is "[inner]": read the memory cell inner points to.
type Deref struct {
	Deref Reference
}

func (d Deref) String() string { return fmt.Sprintf("[%s]", d.Deref) }

func (d Deref) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return d.Deref.Get(v)
}

func (d Deref) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	addr, err := d.Deref.Get(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	val, ok := v.Memory().Get(addr)
	if !ok {
		return memory.MaybeRelocatable{}, newErr(UnknownValue, "no value at %s", addr)
	}
	return val, nil
}

func (d Deref) ApplyApTracking(hint, ref ApTracking) Reference {
	return Deref{Deref: d.Deref.ApplyApTracking(hint, ref)}
}

// DoubleDeref is "[[inner] + offset]": inner must resolve to an address
// (the cell it points to must itself hold a relocatable), which is then
// offset and read again.
type DoubleDeref struct {
	Deref  Deref
	Offset int16
}

func (d DoubleDeref) String() string { return fmt.Sprintf("[[%s] + %d]", d.Deref.Deref, d.Offset) }

func (d DoubleDeref) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	lhs, err := d.Deref.Resolve(v)
	if err != nil {
		return memory.Relocatable{}, err
	}
	addr, ok := lhs.GetRelocatable()
	if !ok {
		return memory.Relocatable{}, newErr(NotARelocatable, "double deref inner value %s is not an address", lhs)
	}
	return addr.AddOffset(d.Offset)
}

func (d DoubleDeref) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	addr, err := d.Get(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	val, ok := v.Memory().Get(addr)
	if !ok {
		return memory.MaybeRelocatable{}, newErr(UnknownValue, "no value at %s", addr)
	}
	return val, nil
}

func (d DoubleDeref) ApplyApTracking(hint, ref ApTracking) Reference {
	return DoubleDeref{Deref: d.Deref.ApplyApTracking(hint, ref).(Deref), Offset: d.Offset}
}

// Immediate is a compile-time constant felt.
type Immediate memory.Felt

func (i Immediate) String() string { return memory.Felt(i).String() }

func (i Immediate) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return memory.Relocatable{}, newErr(NotAnAddress, "immediate %s has no address", memory.Felt(i))
}

func (i Immediate) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	return memory.NewMaybeRelocatableFelt(memory.Felt(i)), nil
}

func (i Immediate) ApplyApTracking(hint, ref ApTracking) Reference { return i }

// Operator selects BinaryOp's combination rule.
type Operator uint8

const (
	Add Operator = iota
	Mul
	Sub
)

// BinaryOp resolves Lhs and Rhs and combines them with Operator; it has
// no address of its own.
type BinaryOp struct {
	Operator Operator
	Lhs, Rhs Reference
}

func (b BinaryOp) String() string {
	sym := map[Operator]string{Add: "+", Mul: "*", Sub: "-"}[b.Operator]
	return fmt.Sprintf("(%s %s %s)", b.Lhs, sym, b.Rhs)
}

func (b BinaryOp) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return memory.Relocatable{}, newErr(NotAnAddress, "binary op %s has no address", b)
}

func (b BinaryOp) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	lhs, err := b.Lhs.Resolve(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	rhs, err := b.Rhs.Resolve(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	switch b.Operator {
	case Add:
		return lhs.Add(rhs)
	case Mul:
		return lhs.Mul(rhs)
	case Sub:
		return lhs.Sub(rhs)
	default:
		return memory.MaybeRelocatable{}, newErr(UnknownOperator, "unknown binary operator %d", b.Operator)
	}
}

func (b BinaryOp) ApplyApTracking(hint, ref ApTracking) Reference {
	return BinaryOp{Operator: b.Operator, Lhs: b.Lhs.ApplyApTracking(hint, ref), Rhs: b.Rhs.ApplyApTracking(hint, ref)}
}
