package zero

import (
	"regexp"
	"strconv"

	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// cellRefPattern matches a reference manager value expression of the
// shape "[cast(ap + (-3), felt*)]" or "cast(fp + 5, felt)", the two
// forms cairo0 emits for a plain ap/fp-relative cell. Anything else
// (struct member access, binary expressions over two references,
// double dereferences through a non-literal offset) is left
// unresolved; this is a deliberately narrow recognizer, not a general
// Cairo expression parser, per spec's external-collaborator boundary
// for reference parsing.
var cellRefPattern = regexp.MustCompile(`^(\[)?cast\(\s*(ap|fp)\s*\+\s*\(?(-?\d+)\)?\s*,[^)]*\)(\])?$`)

// doubleDerefPattern matches "[cast([fp + (-3)] + 1, felt*)]".
var doubleDerefPattern = regexp.MustCompile(`^\[cast\(\[\s*(ap|fp)\s*\+\s*\(?(-?\d+)\)?\s*\]\s*\+\s*(-?\d+)\s*,[^)]*\)\]$`)

// parseReferenceValue attempts to resolve a reference manager value
// string to a concrete hinter.Reference. ok is false when the
// expression doesn't match one of the recognized shapes.
func parseReferenceValue(value string) (ref hinter.Reference, ok bool) {
	if m := doubleDerefPattern.FindStringSubmatch(value); m != nil {
		offset, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, false
		}
		inner, ok := cellRef(m[1], m[2])
		if !ok {
			return nil, false
		}
		return hinter.DoubleDeref{Deref: hinter.Deref{Deref: inner}, Offset: int16(offset)}, true
	}

	if m := cellRefPattern.FindStringSubmatch(value); m != nil {
		inner, ok := cellRef(m[2], m[3])
		if !ok {
			return nil, false
		}
		dereferenced := m[1] == "[" && m[4] == "]"
		if dereferenced {
			return inner, true
		}
		// No outer brackets: the expression names an address itself
		// (a pointer local), not a cell value to read through.
		return addressRef{inner: inner}, true
	}

	return nil, false
}

func cellRef(register, offsetStr string) (hinter.Reference, bool) {
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		return nil, false
	}
	switch register {
	case "ap":
		return hinter.ApCellRef(offset), true
	case "fp":
		return hinter.FpCellRef(offset), true
	default:
		return nil, false
	}
}

// addressRef wraps a plain ap/fp cell reference so Resolve yields the
// computed address itself rather than reading through it — the
// un-bracketed "cast(ap + N, T*)" shape, used for pointer-typed locals.
type addressRef struct {
	inner hinter.Reference
}

func (a addressRef) String() string { return a.inner.String() }

func (a addressRef) Get(v *vm.VirtualMachine) (memory.Relocatable, error) {
	return a.inner.Get(v)
}

func (a addressRef) Resolve(v *vm.VirtualMachine) (memory.MaybeRelocatable, error) {
	addr, err := a.inner.Get(v)
	if err != nil {
		return memory.MaybeRelocatable{}, err
	}
	return memory.NewMaybeRelocatableRelocatable(addr), nil
}

func (a addressRef) ApplyApTracking(hint, ref hinter.ApTracking) hinter.Reference {
	return addressRef{inner: a.inner.ApplyApTracking(hint, ref)}
}
