package hintrunner

import (
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// HintRunner implements vm.HintRunner, dispatching the hints compiled
// for the current pc and running them in order against one shared,
// owned ExecutionScopes stack that survives across steps.
//
// Two lookup modes mirror vm.HintDispatchMode: NonExtensiveHints keys
// by the hint's offset into the program segment (the classic cairo0
// layout, where every hint lives at some instruction in segment 0),
// ExtensiveHints keys by the full pc (segment and offset), needed once
// a program can carry hints outside the main program segment.
type HintRunner struct {
	mode     vm.HintDispatchMode
	byOffset map[uint64][]Hint
	byPc     map[memory.Relocatable][]Hint
	Scopes   *hinter.ExecutionScopes
}

// NewNonExtensive builds a HintRunner keyed by program-segment offset.
func NewNonExtensive(hints map[uint64][]Hint) *HintRunner {
	return &HintRunner{
		mode:     vm.NonExtensiveHints,
		byOffset: hints,
		Scopes:   hinter.NewExecutionScopes(),
	}
}

// NewExtensive builds a HintRunner keyed by full pc.
func NewExtensive(hints map[memory.Relocatable][]Hint) *HintRunner {
	return &HintRunner{
		mode:   vm.ExtensiveHints,
		byPc:   hints,
		Scopes: hinter.NewExecutionScopes(),
	}
}

// RunHint looks up the hints compiled for the VM's current pc and runs
// them in order. A pc with no compiled hints is not an error: most
// instructions have none.
func (r *HintRunner) RunHint(machine *vm.VirtualMachine) error {
	var hints []Hint
	switch r.mode {
	case vm.NonExtensiveHints:
		if machine.Context.Pc.SegmentIndex != vm.ProgramSegment {
			return nil
		}
		hints = r.byOffset[machine.Context.Pc.Offset]
	case vm.ExtensiveHints:
		hints = r.byPc[machine.Context.Pc]
	}
	for _, h := range hints {
		if err := h.Execute(machine, r.Scopes); err != nil {
			return newErr(HintExecutionFailed, "%s: %s", h, err)
		}
	}
	return nil
}
