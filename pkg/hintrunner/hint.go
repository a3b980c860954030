// Package hintrunner implements the hint executor the VM calls into at
// every step (spec §4.7 step 1, §6's hint executor interface), keyed
// either by program-segment offset (NonExtensiveHints) or full PC
// (ExtensiveHints) per vm.HintDispatchMode. A HintRunner holds a hint
// table and implements vm.HintRunner, dispatching against this
// module's own reference model in pkg/hintrunner/hinter.
package hintrunner

import (
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
)

// Hint is one compiled hint body. Execute runs it against the live VM
// and the shared execution-scope stack.
type Hint interface {
	Execute(vm *vm.VirtualMachine, scopes *hinter.ExecutionScopes) error
	String() string
}
