// Package zero drives a decoded cairo0 program (pkg/parsers/zero)
// through a vm.VirtualMachine, wiring up the builtin set and hint
// runner and implementing the three run modes of spec §6: execution,
// proof (canonical) and proof (cairo1).
package zero

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/NethermindEth/cairo-vm-go/pkg/builtins"
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner"
	zprog "github.com/NethermindEth/cairo-vm-go/pkg/parsers/zero"
	"github.com/NethermindEth/cairo-vm-go/pkg/safemath"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// ZeroRunner owns every piece a cairo0 run needs: the segment manager,
// the VM itself, the bound builtin set and the hint runner.
type ZeroRunner struct {
	program  *zprog.Program
	Segments *memory.MemorySegmentManager
	VM       *vm.VirtualMachine
	Builtins *builtins.BuiltinSet
	Hints    *hintrunner.HintRunner

	proofMode bool
	maxSteps  uint64

	programBase, executionBase memory.Relocatable
	runFinished                bool
}

// NewRunner allocates the program and execution segments, binds
// builtin auto-deduction, loads the program's bytecode and compiles
// its recognized hints.
func NewRunner(program *zprog.Program, proofMode bool, maxSteps uint64) (*ZeroRunner, error) {
	segments := memory.NewMemorySegmentManager()
	programBase := segments.AddSegment()
	executionBase := segments.AddSegment()

	builtinSet, err := builtins.NewBuiltinSet(program.Builtins)
	if err != nil {
		return nil, newErr(DisorderedBuiltins, "building builtin set: %s", err)
	}
	builtinSet.InitializeSegments(segments)

	if _, err := segments.LoadData(programBase, program.Data); err != nil {
		return nil, newErr(MemoryInitializationError, "loading program bytecode: %s", err)
	}

	ctx := vm.NewRunContext(programBase, executionBase, executionBase)
	config := vm.VirtualMachineConfig{ProofMode: proofMode, HintDispatchMode: vm.NonExtensiveHints}
	machine := vm.NewVirtualMachine(ctx, segments, config)
	machine.BindDeducer(builtinSet.Deduce(segments.Memory))

	return &ZeroRunner{
		program:       program,
		Segments:      segments,
		VM:            machine,
		Builtins:      builtinSet,
		Hints:         hintrunner.NewNonExtensive(compileHints(program)),
		proofMode:     proofMode,
		maxSteps:      maxSteps,
		programBase:   programBase,
		executionBase: executionBase,
	}, nil
}

// Run executes the program's main entrypoint to completion (spec §6),
// padding the trace to a power-of-two step count in proof mode, then
// verifies every builtin's auto-deductions held throughout the run
// (spec §4.8).
func (r *ZeroRunner) Run() error {
	if r.runFinished {
		return newErr(EndRunAlreadyCalled, "cannot re-run using the same runner")
	}

	end, err := r.InitializeMainEntrypoint()
	if err != nil {
		return fmt.Errorf("initializing main entrypoint: %w", err)
	}

	if err := r.RunUntilPc(end); err != nil {
		return err
	}

	if r.proofMode {
		if err := r.RunFor(r.VM.Step + 1); err != nil {
			return err
		}
		if err := r.RunFor(safemath.NextPowerOfTwo(r.VM.Step)); err != nil {
			return err
		}
	}

	if err := r.Builtins.VerifyAutoDeductions(r.VM.Memory()); err != nil {
		return err
	}

	r.runFinished = true
	return nil
}

// InitializeMainEntrypoint sets up the initial stack and registers for
// the program's main function, per the configured run mode, and
// returns the pc the run must reach to be done.
func (r *ZeroRunner) InitializeMainEntrypoint() (memory.Relocatable, error) {
	if r.program.Main == nil {
		return memory.Relocatable{}, newErr(MissingMain, "program has no main entrypoint")
	}
	mainPC := *r.program.Main
	builtinStack := r.Builtins.InitialStack()

	if r.proofMode {
		return r.initializeProofMode(builtinStack)
	}

	returnFpSegment := r.Segments.AddSegment()
	returnFp := memory.NewMaybeRelocatableRelocatable(returnFpSegment)
	return r.initializeEntrypoint(mainPC, builtinStack, returnFp)
}

// InitializeEntrypoint sets up a call to an arbitrary function (not
// necessarily main), for CLI entrypoint selection.
func (r *ZeroRunner) InitializeEntrypoint(funcName string, arguments []memory.MaybeRelocatable) (memory.Relocatable, error) {
	pc, err := r.program.Entrypoint(funcName)
	if err != nil {
		return memory.Relocatable{}, newErr(MissingMain, "entrypoint %q: %s", funcName, err)
	}
	returnFpSegment := r.Segments.AddSegment()
	returnFp := memory.NewMaybeRelocatableRelocatable(returnFpSegment)
	return r.initializeEntrypoint(pc, arguments, returnFp)
}

// initializeEntrypoint is execution mode's stack setup (spec §6): push
// arguments, then the return-fp sentinel and an end sentinel, and run
// until pc reaches that sentinel's address.
func (r *ZeroRunner) initializeEntrypoint(pc uint64, args []memory.MaybeRelocatable, returnFp memory.MaybeRelocatable) (memory.Relocatable, error) {
	end := r.Segments.AddSegment()

	stackTop, err := r.Segments.LoadData(r.executionBase, args)
	if err != nil {
		return memory.Relocatable{}, newErr(MemoryInitializationError, "writing entrypoint arguments: %s", err)
	}
	stackTop, err = r.Segments.LoadData(stackTop, []memory.MaybeRelocatable{returnFp, memory.NewMaybeRelocatableRelocatable(end)})
	if err != nil {
		return memory.Relocatable{}, newErr(MemoryInitializationError, "writing return fp/end: %s", err)
	}

	progPC, err := r.programBase.AddUint(pc)
	if err != nil {
		return memory.Relocatable{}, err
	}

	r.VM.Context.Pc = progPC
	r.VM.Context.Ap = stackTop
	r.VM.Context.Fp = stackTop

	return end, nil
}

// initializeProofMode is proof mode (canonical)'s stack setup (spec
// §6): stack prefix [execution_base+2, 0, ...builtin_initial_stacks],
// initial ap = initial fp = execution_base+2, run until program_base +
// the "__end__" label's offset.
func (r *ZeroRunner) initializeProofMode(builtinStack []memory.MaybeRelocatable) (memory.Relocatable, error) {
	startPC, err := r.program.Label("__start__")
	if err != nil {
		return memory.Relocatable{}, newErr(NoProgramStart, "start label not found, recompile with proof mode: %s", err)
	}
	endOffset, err := r.program.Label("__end__")
	if err != nil {
		return memory.Relocatable{}, newErr(NoProgramEnd, "end label not found, recompile with proof mode: %s", err)
	}

	initialFp, err := r.executionBase.AddUint(2)
	if err != nil {
		return memory.Relocatable{}, err
	}
	dummyReturnFp := memory.NewMaybeRelocatableRelocatable(initialFp)
	dummyReturnPc := memory.NewMaybeRelocatableFelt(memory.FeltZero())

	stackPrefix := append([]memory.MaybeRelocatable{dummyReturnFp, dummyReturnPc}, builtinStack...)
	if _, err := r.Segments.LoadData(r.executionBase, stackPrefix); err != nil {
		return memory.Relocatable{}, newErr(MemoryInitializationError, "writing proof mode stack prefix: %s", err)
	}

	r.VM.Context.Pc = memory.Relocatable{SegmentIndex: r.programBase.SegmentIndex, Offset: startPC}
	r.VM.Context.Ap = initialFp
	r.VM.Context.Fp = initialFp

	end, err := r.programBase.AddUint(endOffset)
	if err != nil {
		return memory.Relocatable{}, err
	}
	return end, nil
}

// InitializeMainEntrypointCairo1 is proof mode (cairo1)'s variant (spec
// §6): target_offset = len(stack)+2, and real (rather than dummy)
// return-fp/end sentinels are pushed, as in execution mode.
func (r *ZeroRunner) InitializeMainEntrypointCairo1() (memory.Relocatable, error) {
	if r.program.Main == nil {
		return memory.Relocatable{}, newErr(MissingMain, "program has no main entrypoint")
	}
	builtinStack := r.Builtins.InitialStack()

	returnFpSegment := r.Segments.AddSegment()
	returnFp := memory.NewMaybeRelocatableRelocatable(returnFpSegment)
	end := r.Segments.AddSegment()

	stackTop, err := r.Segments.LoadData(r.executionBase, builtinStack)
	if err != nil {
		return memory.Relocatable{}, newErr(MemoryInitializationError, "writing builtin stack: %s", err)
	}
	stackTop, err = r.Segments.LoadData(stackTop, []memory.MaybeRelocatable{returnFp, memory.NewMaybeRelocatableRelocatable(end)})
	if err != nil {
		return memory.Relocatable{}, newErr(MemoryInitializationError, "writing return fp/end: %s", err)
	}

	progPC, err := r.programBase.AddUint(*r.program.Main)
	if err != nil {
		return memory.Relocatable{}, err
	}

	r.VM.Context.Pc = progPC
	r.VM.Context.Ap = stackTop
	r.VM.Context.Fp = stackTop

	return end, nil
}

// RunUntilPc steps the VM until its pc reaches target.
func (r *ZeroRunner) RunUntilPc(target memory.Relocatable) error {
	for !r.VM.Context.Pc.Equal(target) {
		if r.VM.Step >= r.maxSteps {
			return newErr(MaxStepsExceeded, "pc %s step %d: max step limit exceeded (%d)", r.VM.Context.Pc, r.VM.Step, r.maxSteps)
		}
		if err := r.VM.RunStep(r.Hints); err != nil {
			return fmt.Errorf("pc %s step %d: %w", r.VM.Context.Pc, r.VM.Step, err)
		}
	}
	return nil
}

// RunFor steps the VM until its absolute step count reaches target.
func (r *ZeroRunner) RunFor(target uint64) error {
	for r.VM.Step < target {
		if r.VM.Step >= r.maxSteps {
			return newErr(MaxStepsExceeded, "pc %s step %d: max step limit exceeded (%d)", r.VM.Context.Pc, r.VM.Step, r.maxSteps)
		}
		if err := r.VM.RunStep(r.Hints); err != nil {
			return fmt.Errorf("pc %s step %d: %w", r.VM.Context.Pc, r.VM.Step, err)
		}
	}
	return nil
}

// BuildProof relocates memory and trace and serializes both to the
// persisted state layout (spec §6).
func (r *ZeroRunner) BuildProof() (traceBytes []byte, memoryBytes []byte, err error) {
	relocatedMemory, relocatedTrace, err := vm.Relocate(r.VM)
	if err != nil {
		return nil, nil, err
	}
	traceBytes, err = EncodeTrace(relocatedTrace)
	if err != nil {
		return nil, nil, err
	}
	memoryBytes = EncodeMemory(relocatedMemory)
	return traceBytes, memoryBytes, nil
}

const traceEntrySize = 3 * 8

// EncodeTrace packs a relocated trace as (ap, fp, pc) little-endian
// uint64 triples, one per step, in step order (spec §6).
func EncodeTrace(trace []vm.RelocatedTraceEntry) ([]byte, error) {
	content := make([]byte, 0, len(trace)*traceEntrySize)
	for _, entry := range trace {
		ap, err := entry.Ap.ToU64()
		if err != nil {
			return nil, newErr(MemoryInitializationError, "relocated ap does not fit in a u64: %s", err)
		}
		fp, err := entry.Fp.ToU64()
		if err != nil {
			return nil, newErr(MemoryInitializationError, "relocated fp does not fit in a u64: %s", err)
		}
		pc, err := entry.Pc.ToU64()
		if err != nil {
			return nil, newErr(MemoryInitializationError, "relocated pc does not fit in a u64: %s", err)
		}
		content = binary.LittleEndian.AppendUint64(content, ap)
		content = binary.LittleEndian.AppendUint64(content, fp)
		content = binary.LittleEndian.AppendUint64(content, pc)
	}
	return content, nil
}

// DecodeTrace is EncodeTrace's inverse.
func DecodeTrace(content []byte) []vm.RelocatedTraceEntry {
	trace := make([]vm.RelocatedTraceEntry, 0, len(content)/traceEntrySize)
	for i := 0; i < len(content); i += traceEntrySize {
		trace = append(trace, vm.RelocatedTraceEntry{
			Ap: memory.FeltFromUint64(binary.LittleEndian.Uint64(content[i : i+8])),
			Fp: memory.FeltFromUint64(binary.LittleEndian.Uint64(content[i+8 : i+16])),
			Pc: memory.FeltFromUint64(binary.LittleEndian.Uint64(content[i+16 : i+24])),
		})
	}
	return trace
}

const addrSize = 8
const feltSize = 32

// EncodeMemory serializes a relocated memory map as ascending
// (addr: u64 LE, value: 32-byte LE felt) pairs. Index 0 is reserved
// and is never present in a RelocatedMemory map, so it is never
// written (spec §6).
func EncodeMemory(mem vm.RelocatedMemory) []byte {
	addrs := make([]uint64, 0, len(mem))
	for addr := range mem {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	content := make([]byte, 0, len(addrs)*(addrSize+feltSize))
	for _, addr := range addrs {
		content = binary.LittleEndian.AppendUint64(content, addr)
		bytes := mem[addr].BytesLE()
		content = append(content, bytes[:]...)
	}
	return content
}

// DecodeMemory is EncodeMemory's inverse.
func DecodeMemory(content []byte) vm.RelocatedMemory {
	mem := make(vm.RelocatedMemory, len(content)/(addrSize+feltSize))
	for i := 0; i < len(content); i += addrSize + feltSize {
		addr := binary.LittleEndian.Uint64(content[i : i+addrSize])
		var buf [32]byte
		copy(buf[:], content[i+addrSize:i+addrSize+feltSize])
		mem[addr] = memory.FeltFromBytesLE(buf)
	}
	return mem
}

