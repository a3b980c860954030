package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// RelocatedMemory is the flat, 1-indexed address space produced by
// relocation (spec §4.9 step 3): index 0 is always unused, index
// base[seg]+off holds the relocated value once stored at
// (seg, off).
type RelocatedMemory map[uint64]memory.Felt

// Relocate computes segment bases, resolves every temporary-segment
// relocation rule, and flattens both memory and (if proof mode is on)
// the trace into the 1-D address space the spec describes (§4.9). It
// keeps no record of having run: a second call does not fail, it
// recomputes the same output from the unchanged memory and trace.
func Relocate(vm *VirtualMachine) (RelocatedMemory, []RelocatedTraceEntry, error) {
	if err := vm.Segments.ComputeEffectiveSizes(false); err != nil {
		return nil, nil, err
	}
	bases, err := vm.Segments.RelocateSegments()
	if err != nil {
		return nil, nil, err
	}

	mem := vm.Memory()
	relocRules := mem.RelocationRules()

	relocated := make(RelocatedMemory)
	for seg := 0; seg < vm.Segments.Memory.NumSegments(); seg++ {
		cells, err := mem.CellsOf(int64(seg))
		if err != nil {
			return nil, nil, err
		}
		for _, addr := range cells {
			v, ok := mem.Get(addr)
			if !ok {
				continue
			}
			resolved, err := v.Relocate(relocRules)
			if err != nil {
				return nil, nil, err
			}
			flatAddr := bases[seg] + addr.Offset
			relocated[flatAddr] = flattenValue(resolved, bases)
		}
	}

	var relocatedTrace []RelocatedTraceEntry
	if vm.Config.ProofMode {
		relocatedTrace, err = vm.RelocateTrace(bases)
		if err != nil {
			return nil, nil, err
		}
	}

	return relocated, relocatedTrace, nil
}

// flattenValue reduces a (already rule-resolved) MaybeRelocatable to a
// single Felt per spec §4.9 step 3: felts pass through, relocatables
// become base[seg]+off.
func flattenValue(v memory.MaybeRelocatable, bases []uint64) memory.Felt {
	if f, ok := v.GetFelt(); ok {
		return f
	}
	r, _ := v.GetRelocatable()
	if r.IsTemporary() {
		// An unresolved temporary reference surviving to this point means
		// the surrounding value is never dereferenced by a verifier; the
		// spec allows this to pass through unrelocated (§4.9 step 6).
		return memory.FeltFromUint64(r.Offset)
	}
	return memory.FeltFromUint64(bases[r.SegmentIndex] + r.Offset)
}
