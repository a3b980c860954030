package zero

import (
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner"
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	zprog "github.com/NethermindEth/cairo-vm-go/pkg/parsers/zero"
)

// Recognized hint code templates. Spec §6 treats hint strings as
// opaque to the core; every real cairo0 hint processor bridges that
// opacity by whitelisting a fixed set of known code strings and mapping
// each to concrete behavior. Only enough templates to exercise segment
// allocation, comparison and assertion are recognized here — building
// out cairo0's full common-library hint whitelist is the hint-processor
// implementation work spec's Non-goals explicitly keep out of this repo.
const (
	hintCodeAllocSegment  = "memory[ap] = segments.add()"
	hintCodeTestLessThan  = "memory[ap] = 1 if (ids.a - ids.b) < 0 else 0"
	hintCodeAssertNotZero = "assert ids.value != 0, 'value is zero'"
)

// compileHints turns a program's raw, code-string hints into concrete
// hintrunner.Hint values, silently dropping (not failing the run on)
// any hint code this package's whitelist doesn't recognize — such a
// hint simply never runs, which is only wrong if the program's
// correctness actually depends on it, a limitation documented in
// DESIGN.md rather than hidden.
func compileHints(program *zprog.Program) map[uint64][]hintrunner.Hint {
	compiled := make(map[uint64][]hintrunner.Hint, len(program.Hints))
	for offset, raws := range program.Hints {
		var hints []hintrunner.Hint
		for _, raw := range raws {
			if h, ok := compileHint(program, raw); ok {
				hints = append(hints, h)
			}
		}
		if len(hints) > 0 {
			compiled[offset] = hints
		}
	}
	return compiled
}

func compileHint(program *zprog.Program, h zprog.CompiledHint) (hintrunner.Hint, bool) {
	switch h.Code {
	case hintCodeAllocSegment:
		return hintrunner.AllocSegmentHint{Dst: hinter.ApCellRef(0)}, true
	case hintCodeTestLessThan:
		a, ok1 := resolveHintRef(program, h, "a")
		b, ok2 := resolveHintRef(program, h, "b")
		if !ok1 || !ok2 {
			return nil, false
		}
		return hintrunner.TestLessThanHint{Dst: hinter.ApCellRef(0), Lhs: a, Rhs: b}, true
	case hintCodeAssertNotZero:
		v, ok := resolveHintRef(program, h, "value")
		if !ok {
			return nil, false
		}
		return hintrunner.AssertNotZeroHint{Target: v}, true
	default:
		return nil, false
	}
}

// resolveHintRef looks up a hint-local variable name (as cairo0 would
// write it, "ids.<name>") in the compiled hint's reference-id table,
// scoped to the innermost accessible scope, and applies ap-tracking to
// the reference manager's entry for it.
func resolveHintRef(program *zprog.Program, h zprog.CompiledHint, name string) (hinter.Reference, bool) {
	scope := ""
	if len(h.AccessibleScopes) > 0 {
		scope = h.AccessibleScopes[len(h.AccessibleScopes)-1]
	}
	idx, ok := h.ReferenceIDs[scope+"."+name]
	if !ok || idx < 0 || idx >= len(program.References) {
		return nil, false
	}
	ref := program.References[idx]
	if ref.Resolved == nil {
		return nil, false
	}
	return ref.Resolved.ApplyApTracking(h.APTracking, ref.APTracking), true
}
