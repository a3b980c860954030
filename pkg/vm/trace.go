package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// TraceEntry is one (PC, AP, FP) snapshot appended once per step when
// tracing is enabled (spec §4.7 step 5). Registers stay Relocatable
// here too, rather than as bare uint64 offsets into segment 1, so a
// trace entry can reference any segment.
type TraceEntry struct {
	Pc memory.Relocatable
	Ap memory.Relocatable
	Fp memory.Relocatable
}

// RelocatedTraceEntry is a TraceEntry after flat relocation (spec
// §4.9 step 4): every register becomes a single Felt, base[seg]+off.
type RelocatedTraceEntry struct {
	Pc memory.Felt
	Ap memory.Felt
	Fp memory.Felt
}

func relocateRegister(r memory.Relocatable, bases []uint64) (memory.Felt, error) {
	if r.IsTemporary() {
		return memory.Felt{}, newVMErr(SecurityCheckFailed, "cannot relocate a register still pointing at a temporary segment: %s", r)
	}
	if int(r.SegmentIndex) >= len(bases) {
		return memory.Felt{}, newVMErr(SecurityCheckFailed, "no relocation base for segment %d", r.SegmentIndex)
	}
	flat := bases[r.SegmentIndex] + r.Offset
	return memory.FeltFromUint64(flat), nil
}

// RelocateTrace relocates every entry of trace using bases, the table
// produced by MemorySegmentManager.RelocateSegments (spec §4.9 step 4).
func RelocateTrace(trace []TraceEntry, bases []uint64) ([]RelocatedTraceEntry, error) {
	out := make([]RelocatedTraceEntry, len(trace))
	for i, e := range trace {
		pc, err := relocateRegister(e.Pc, bases)
		if err != nil {
			return nil, err
		}
		ap, err := relocateRegister(e.Ap, bases)
		if err != nil {
			return nil, err
		}
		fp, err := relocateRegister(e.Fp, bases)
		if err != nil {
			return nil, err
		}
		out[i] = RelocatedTraceEntry{Pc: pc, Ap: ap, Fp: fp}
	}
	return out, nil
}
