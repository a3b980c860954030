package builtins

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

// BuiltinSet holds every builtin a program requested, in canonical
// order (spec §6). It is the seam between this package and pkg/vm:
// BuiltinSet.Deduce(mem) returns a function with the exact shape of
// vm.DeduceMemoryCellFn, so a caller binds it with
// machine.BindDeducer(builtinSet.Deduce(mem)) without this package ever
// importing pkg/vm (spec §4.8, §4.4 steps 3/8).
type BuiltinSet struct {
	ordered []BuiltinRunner
	byName  map[string]BuiltinRunner
}

// NewBuiltinSet constructs a BuiltinSet from an already order-validated
// name list (see ValidateOrder), failing with UnknownBuiltin if any
// name is not recognized.
func NewBuiltinSet(names []string) (*BuiltinSet, error) {
	set := &BuiltinSet{byName: make(map[string]BuiltinRunner, len(names))}
	for _, n := range names {
		b, ok := New(n)
		if !ok {
			return nil, newErr(UnknownBuiltin, "unknown builtin %q", n)
		}
		set.ordered = append(set.ordered, b)
		set.byName[n] = b
	}
	return set, nil
}

// Get returns the builtin runner named name, if present.
func (s *BuiltinSet) Get(name string) (BuiltinRunner, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// All returns every bound builtin, in canonical order.
func (s *BuiltinSet) All() []BuiltinRunner {
	return s.ordered
}

// InitializeSegments allocates one segment per bound builtin, in
// canonical order, so later segment indices (hence relocation bases)
// are deterministic given the program's builtin list.
func (s *BuiltinSet) InitializeSegments(segments *memory.MemorySegmentManager) {
	for _, b := range s.ordered {
		b.InitializeSegments(segments)
		b.AddValidationRule(segments.Memory)
	}
}

// InitialStack concatenates every bound builtin's initial stack value,
// in canonical order, for the entrypoint's stack frame setup (spec §6).
func (s *BuiltinSet) InitialStack() []memory.MaybeRelocatable {
	var out []memory.MaybeRelocatable
	for _, b := range s.ordered {
		out = append(out, b.InitialStack()...)
	}
	return out
}

// Deduce closes over mem (the same *memory.Memory the whole run shares)
// and returns a function matching vm.DeduceMemoryCellFn's signature
// exactly, so callers bind it as vm.BindDeducer(builtinSet.Deduce(mem))
// without this package importing pkg/vm.
func (s *BuiltinSet) Deduce(mem *memory.Memory) func(memory.Relocatable) (memory.MaybeRelocatable, bool, error) {
	return func(addr memory.Relocatable) (memory.MaybeRelocatable, bool, error) {
		for _, b := range s.ordered {
			if b.Base().SegmentIndex != addr.SegmentIndex {
				continue
			}
			v, err := b.DeduceMemoryCell(addr, mem)
			if err != nil {
				return memory.MaybeRelocatable{}, false, err
			}
			if v != nil {
				return *v, true, nil
			}
			return memory.MaybeRelocatable{}, false, nil
		}
		return memory.MaybeRelocatable{}, false, nil
	}
}

// VerifyAutoDeductions re-runs DeduceMemoryCell over every already-set
// cell of every bound builtin's segment and compares it against what is
// actually stored there, failing with InconsistentAutoDeduction on the
// first mismatch (spec §4.8, §8 testable property 6: "builtin cells are
// deterministic").
func (s *BuiltinSet) VerifyAutoDeductions(mem *memory.Memory) error {
	for _, b := range s.ordered {
		cells, err := mem.CellsOf(b.Base().SegmentIndex)
		if err != nil {
			return err
		}
		for _, addr := range cells {
			deduced, err := b.DeduceMemoryCell(addr, mem)
			if err != nil {
				return err
			}
			if deduced == nil {
				continue
			}
			actual, ok := mem.Get(addr)
			if !ok {
				continue
			}
			if !actual.Equal(*deduced) {
				return newErr(InconsistentAutoDeduction, "cell %s holds %s but builtin %q deduces %s", addr, actual, b.Name(), *deduced)
			}
		}
	}
	return nil
}
