package vm

import "fmt"

// Kind enumerates the VM/runner/resource error taxonomy from the spec
// (§7, "VM errors", "Runner errors", "Resource errors"), mirroring the
// Kind-per-package pattern used by pkg/vm/memory.
type Kind int

const (
	InstructionEncodingError Kind = iota
	NoDst
	NoOp0
	NoOp1
	FailedToComputeOperands
	InvalidRes
	Unconstrained
	DiffAssertValues
	CannotSubRelocatableFromInt
	JnzNotFelt
	EndOfProgram
	ResourceExhausted
	InvalidApUpdate
	InvalidPcUpdate
	InvalidOpcode
	HintDataMismatch
	UnknownHintVariable
	RunnerNotInitialized
	InvalidEntrypoint
	MissingMainEntrypoint
	BuiltinNotFound
	InvalidBuiltinOrder
	SecurityCheckFailed
)

func (k Kind) String() string {
	switch k {
	case InstructionEncodingError:
		return "InstructionEncodingError"
	case NoDst:
		return "NoDst"
	case NoOp0:
		return "NoOp0"
	case NoOp1:
		return "NoOp1"
	case FailedToComputeOperands:
		return "FailedToComputeOperands"
	case InvalidRes:
		return "InvalidRes"
	case Unconstrained:
		return "Unconstrained"
	case DiffAssertValues:
		return "DiffAssertValues"
	case CannotSubRelocatableFromInt:
		return "CannotSubRelocatableFromInt"
	case JnzNotFelt:
		return "JnzNotFelt"
	case EndOfProgram:
		return "EndOfProgram"
	case ResourceExhausted:
		return "ResourceExhausted"
	case InvalidApUpdate:
		return "InvalidApUpdate"
	case InvalidPcUpdate:
		return "InvalidPcUpdate"
	case InvalidOpcode:
		return "InvalidOpcode"
	case HintDataMismatch:
		return "HintDataMismatch"
	case UnknownHintVariable:
		return "UnknownHintVariable"
	case RunnerNotInitialized:
		return "RunnerNotInitialized"
	case InvalidEntrypoint:
		return "InvalidEntrypoint"
	case MissingMainEntrypoint:
		return "MissingMainEntrypoint"
	case BuiltinNotFound:
		return "BuiltinNotFound"
	case InvalidBuiltinOrder:
		return "InvalidBuiltinOrder"
	case SecurityCheckFailed:
		return "SecurityCheckFailed"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type for every failure raised by pkg/vm
// itself; pkg/vm/memory, pkg/builtins and pkg/runners/zero each define
// their own Error type.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newVMErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
