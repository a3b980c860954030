// Package builtins implements the nine builtin runners named in spec
// §4.8 (output, bitwise, range_check, pedersen, ecdsa, ec_op, keccak,
// poseidon, segment_arena): each owns one contiguous memory segment,
// contributes an auto-deduction rule and/or validation rule for its
// cells, and lists its initial stack pointer. The shared BuiltinRunner
// interface is grounded on the pack's own builtin-runner abstraction
// (_examples/greged93-cairo-vm.go/pkg/builtins/builtin_runner.go),
// adapted here to this module's own pkg/vm/memory types instead of
// that fork's.
package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// BuiltinRunner is implemented by every builtin runner.
type BuiltinRunner interface {
	// Name is the canonical program-JSON name ("output", "bitwise", ...).
	Name() string
	// Base is the builtin's segment base, valid only after
	// InitializeSegments has been called.
	Base() memory.Relocatable
	// CellsPerInstance is the number of memory cells one builtin
	// "instance" occupies (spec §4.8's per-builtin cell layout).
	CellsPerInstance() uint64
	// InitializeSegments allocates the builtin's segment.
	InitializeSegments(segments *memory.MemorySegmentManager)
	// InitialStack is what gets pushed onto the stack frame that calls
	// into the program, in the builtin's canonical position.
	InitialStack() []memory.MaybeRelocatable
	// DeduceMemoryCell implements auto-deduction for addr (spec §4.4
	// steps 3/8): nil, nil means "no deduction available", not an error.
	DeduceMemoryCell(addr memory.Relocatable, mem *memory.Memory) (*memory.MaybeRelocatable, error)
	// AddValidationRule registers any validation rule the builtin needs
	// (e.g. range_check's "must fit in 2^128").
	AddValidationRule(mem *memory.Memory)
}

// CanonicalOrder is the closed, ordered builtin name set a compiled
// program's builtins list must respect (spec §4.8, §6): a program that
// lists them out of this relative order is rejected with
// DisorderedBuiltins before it ever runs.
var CanonicalOrder = []string{
	"output",
	"pedersen",
	"range_check",
	"ecdsa",
	"bitwise",
	"ec_op",
	"keccak",
	"poseidon",
	"segment_arena",
}

// New constructs the builtin runner named by name, or (nil, false) if
// name is not one of CanonicalOrder.
func New(name string) (BuiltinRunner, bool) {
	switch name {
	case "output":
		return NewOutput(), true
	case "pedersen":
		return NewPedersen(), true
	case "range_check":
		return NewRangeCheck(), true
	case "ecdsa":
		return NewECDSA(), true
	case "bitwise":
		return NewBitwise(), true
	case "ec_op":
		return NewECOp(), true
	case "keccak":
		return NewKeccak(), true
	case "poseidon":
		return NewPoseidon(), true
	case "segment_arena":
		return NewSegmentArena(), true
	default:
		return nil, false
	}
}

// ValidateOrder checks that names appear in the same relative order as
// CanonicalOrder, failing with DisorderedBuiltins otherwise (spec §6).
func ValidateOrder(names []string) error {
	pos := make(map[string]int, len(CanonicalOrder))
	for i, n := range CanonicalOrder {
		pos[n] = i
	}
	last := -1
	for _, n := range names {
		idx, ok := pos[n]
		if !ok {
			return newErr(UnknownBuiltin, "unknown builtin %q", n)
		}
		if idx < last {
			return newErr(DisorderedBuiltins, "builtin %q appears out of canonical order", n)
		}
		last = idx
	}
	return nil
}
