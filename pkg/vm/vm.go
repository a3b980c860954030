package vm

import "github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"

const (
	ProgramSegment   = 0
	ExecutionSegment = 1
)

// HintDispatchMode selects how a HintRunner looks up which hints apply
// to the current PC (spec §4.7): Extensive keys hint ranges by the
// full relocatable PC (code loaded at arbitrary segments); NonExtensive
// keys them by offset into the program segment. It is fixed at VM
// construction and never changes during a run.
type HintDispatchMode uint8

const (
	NonExtensiveHints HintDispatchMode = iota
	ExtensiveHints
)

// HintRunner is defined as an external component of the VM so any
// caller can supply its own (spec §4.7 step 1). PC is a full
// Relocatable rather than a bare program-segment offset.
type HintRunner interface {
	RunHint(vm *VirtualMachine) error
}

// ResourceTracker bounds the number of steps a run may take (spec §5,
// §4.7 step 8). A VM with no tracker bound runs until EndOfProgram or
// an error.
type ResourceTracker interface {
	ConsumeStep() bool
}

// VirtualMachineConfig holds the run-time knobs the step loop needs:
// whether the run is in proof mode, and which hint dispatch mode binds
// compiled hints to steps.
type VirtualMachineConfig struct {
	ProofMode        bool
	HintDispatchMode HintDispatchMode
}

// VirtualMachine is the fetch-decode-execute engine (spec §4.7). It
// owns the run context, the segment manager (memory plus segment
// bookkeeping), the trace buffer, and an instruction decode cache
// keyed by the full PC rather than a bare program-segment offset,
// since PC can live in any segment.
type VirtualMachine struct {
	Context  RunContext
	Segments *memory.MemorySegmentManager
	Step     uint64
	Trace    []TraceEntry
	Config   VirtualMachineConfig

	deduce DeduceMemoryCellFn

	resourceTracker ResourceTracker
	instructions    map[memory.Relocatable]*Instruction
}

func NewVirtualMachine(ctx RunContext, segments *memory.MemorySegmentManager, config VirtualMachineConfig) *VirtualMachine {
	var trace []TraceEntry
	if config.ProofMode {
		trace = make([]TraceEntry, 0)
	}
	return &VirtualMachine{
		Context:      ctx,
		Segments:     segments,
		Trace:        trace,
		Config:       config,
		instructions: make(map[memory.Relocatable]*Instruction),
	}
}

// Memory is a convenience accessor for vm.Segments.Memory.
func (vm *VirtualMachine) Memory() *memory.Memory {
	return vm.Segments.Memory
}

// BindDeducer registers the function the operand engine consults for
// builtin auto-deduction (spec §4.4 step 3, 8; §4.8). Typically backed
// by a builtin runner set assembled by the caller (pkg/builtins).
func (vm *VirtualMachine) BindDeducer(fn DeduceMemoryCellFn) {
	vm.deduce = fn
}

// BindResourceTracker attaches a step budget (spec §5, §4.7 step 8).
func (vm *VirtualMachine) BindResourceTracker(rt ResourceTracker) {
	vm.resourceTracker = rt
}

func (vm *VirtualMachine) decodeAt(pc memory.Relocatable) (*Instruction, error) {
	if instr, ok := vm.instructions[pc]; ok {
		return instr, nil
	}
	f, err := vm.Memory().GetFelt(pc)
	if err != nil {
		return nil, newVMErr(EndOfProgram, "reading instruction at %s: %s", pc, err)
	}
	word, err := f.ToU64()
	if err != nil {
		return nil, newVMErr(InstructionEncodingError, "instruction word at %s does not fit in 63 bits: %s", pc, err)
	}
	instr, err := DecodeInstruction(word)
	if err != nil {
		return nil, err
	}
	vm.instructions[pc] = instr
	return instr, nil
}

// RunStep executes one fetch-decode-execute cycle (spec §4.7).
func (vm *VirtualMachine) RunStep(hintRunner HintRunner) error {
	if hintRunner != nil {
		if err := hintRunner.RunHint(vm); err != nil {
			return newVMErr(HintDataMismatch, "running hints at %s: %s", vm.Context.Pc, err)
		}
	}

	instr, err := vm.decodeAt(vm.Context.Pc)
	if err != nil {
		return err
	}

	ops, err := ComputeOperands(&vm.Context, vm.Memory(), instr, vm.deduce)
	if err != nil {
		return err
	}

	if err := OpcodeAssertions(&vm.Context, instr, ops); err != nil {
		return err
	}

	if vm.Config.ProofMode {
		vm.Trace = append(vm.Trace, TraceEntry{Pc: vm.Context.Pc, Ap: vm.Context.Ap, Fp: vm.Context.Fp})
	}

	vm.Memory().MarkAccessed(ops.DstAddr)
	vm.Memory().MarkAccessed(ops.Op0Addr)
	vm.Memory().MarkAccessed(ops.Op1Addr)

	next, err := UpdateRegisters(&vm.Context, instr, ops)
	if err != nil {
		return err
	}
	vm.Context = next

	vm.Step++
	if vm.resourceTracker != nil && !vm.resourceTracker.ConsumeStep() {
		return newVMErr(ResourceExhausted, "resource tracker exhausted after %d steps", vm.Step)
	}
	return nil
}

// RunUntilPc executes steps until Context.Pc reaches target.
func (vm *VirtualMachine) RunUntilPc(target memory.Relocatable, hintRunner HintRunner) error {
	for !vm.Context.Pc.Equal(target) {
		if err := vm.RunStep(hintRunner); err != nil {
			return err
		}
	}
	return nil
}

// RelocateTrace relocates vm.Trace once computed segment bases are
// known (spec §4.9 step 4). It is only meaningful in proof mode.
func (vm *VirtualMachine) RelocateTrace(bases []uint64) ([]RelocatedTraceEntry, error) {
	if !vm.Config.ProofMode {
		return nil, newVMErr(SecurityCheckFailed, "proof mode is off, no trace was recorded")
	}
	return RelocateTrace(vm.Trace, bases)
}
