// Package zero decodes the cairo0 compiled-program JSON artifact into
// the structures the rest of the VM needs to run it: bytecode, builtin
// list, compiled hints, and a best-effort resolution of the reference
// manager's cell-reference expressions. A full Cairo expression parser
// is a compiler front-end in its own right, so this package covers only
// the subset needed to drive the VM end to end, leaving anything it
// cannot confidently resolve as opaque data rather than guessing.
// Decoding uses plain encoding/json, matching the program input's fixed
// wire format rather than any particular serde library choice.
package zero

import (
	"encoding/json"
	"fmt"

	"github.com/NethermindEth/cairo-vm-go/pkg/builtins"
	"github.com/NethermindEth/cairo-vm-go/pkg/hintrunner/hinter"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

type rawProgram struct {
	Prime            string                     `json:"prime"`
	Data             []string                   `json:"data"`
	Builtins         []string                   `json:"builtins"`
	MainScope        string                     `json:"main_scope"`
	Identifiers      map[string]json.RawMessage `json:"identifiers"`
	Hints            map[string][]rawHint       `json:"hints"`
	ReferenceManager rawReferenceManager        `json:"reference_manager"`
	Attributes       []json.RawMessage          `json:"attributes"`
}

type rawHint struct {
	Code             string          `json:"code"`
	AccessibleScopes []string        `json:"accessible_scopes"`
	FlowTrackingData rawFlowTracking `json:"flow_tracking_data"`
}

type rawFlowTracking struct {
	APTracking   rawApTracking  `json:"ap_tracking"`
	ReferenceIDs map[string]int `json:"reference_ids"`
}

type rawApTracking struct {
	Group  uint64 `json:"group"`
	Offset uint64 `json:"offset"`
}

type rawReferenceManager struct {
	References []rawReference `json:"references"`
}

type rawReference struct {
	APTrackingData rawApTracking `json:"ap_tracking_data"`
	PC             uint64        `json:"pc"`
	Value          string        `json:"value"`
}

type rawIdentifier struct {
	Type  string `json:"type"`
	PC    *uint64 `json:"pc"`
	Value *string `json:"value"`
}

// CompiledHint is one hint attached to a program offset. Code is kept
// opaque: per spec, the hint-processor's job of turning code into
// executable behavior belongs to an external collaborator, not to this
// package.
type CompiledHint struct {
	Code             string
	AccessibleScopes []string
	APTracking       hinter.ApTracking
	ReferenceIDs     map[string]int
}

// Reference is one entry of the reference manager, with Resolved set
// when the value expression matched one of the limited patterns this
// package understands (plain or double ap/fp cell references). An
// unresolved reference still carries its raw Value for diagnostics.
type Reference struct {
	APTracking hinter.ApTracking
	PC         uint64
	Value      string
	Resolved   hinter.Reference
}

// Program is the decoded form of a cairo0 compiled-program JSON
// artifact (spec §6's "Program input").
type Program struct {
	Prime       string
	Data        []memory.MaybeRelocatable
	Builtins    []string
	Main        *uint64
	Constants   map[string]memory.Felt
	Hints       map[uint64][]CompiledHint
	References  []Reference
	Identifiers map[string]json.RawMessage
	MainScope   string
}

// Load decodes a compiled-program JSON document.
func Load(data []byte) (*Program, error) {
	var raw rawProgram
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newErr(MalformedProgramJSON, "decoding program json: %s", err)
	}

	if err := builtins.ValidateOrder(raw.Builtins); err != nil {
		return nil, newErr(MalformedProgramJSON, "builtins: %s", err)
	}

	bytecode := make([]memory.MaybeRelocatable, len(raw.Data))
	for i, entry := range raw.Data {
		f, err := parseFelt(entry)
		if err != nil {
			return nil, newErr(InvalidDataEntry, "data[%d] %q: %s", i, entry, err)
		}
		bytecode[i] = memory.NewMaybeRelocatableFelt(f)
	}

	constants := map[string]memory.Felt{}
	for name, raw := range raw.Identifiers {
		var ident rawIdentifier
		if err := json.Unmarshal(raw, &ident); err != nil {
			continue
		}
		if ident.Type == "const" && ident.Value != nil {
			f, err := parseFelt(*ident.Value)
			if err != nil {
				return nil, newErr(InvalidConstant, "constant %q: %s", name, err)
			}
			constants[name] = f
		}
	}

	hints := map[uint64][]CompiledHint{}
	for offsetStr, rawHints := range raw.Hints {
		var offset uint64
		if _, err := fmt.Sscanf(offsetStr, "%d", &offset); err != nil {
			return nil, newErr(MalformedProgramJSON, "hint offset %q is not a number", offsetStr)
		}
		compiled := make([]CompiledHint, len(rawHints))
		for i, h := range rawHints {
			compiled[i] = CompiledHint{
				Code:             h.Code,
				AccessibleScopes: h.AccessibleScopes,
				APTracking:       hinter.ApTracking{Group: h.FlowTrackingData.APTracking.Group, Offset: h.FlowTrackingData.APTracking.Offset},
				ReferenceIDs:     h.FlowTrackingData.ReferenceIDs,
			}
		}
		hints[offset] = compiled
	}

	references := make([]Reference, len(raw.ReferenceManager.References))
	for i, r := range raw.ReferenceManager.References {
		resolved, _ := parseReferenceValue(r.Value)
		references[i] = Reference{
			APTracking: hinter.ApTracking{Group: r.APTrackingData.Group, Offset: r.APTrackingData.Offset},
			PC:         r.PC,
			Value:      r.Value,
			Resolved:   resolved,
		}
	}

	program := &Program{
		Prime:       raw.Prime,
		Data:        bytecode,
		Builtins:    raw.Builtins,
		Constants:   constants,
		Hints:       hints,
		References:  references,
		Identifiers: raw.Identifiers,
		MainScope:   raw.MainScope,
	}

	if main, err := program.findFunctionPC(raw.MainScope + ".main"); err == nil {
		program.Main = &main
	}

	return program, nil
}

// findFunctionPC resolves an identifier name to its pc, failing unless
// the identifier exists and is a function.
func (p *Program) findFunctionPC(name string) (uint64, error) {
	return p.findPC(name, "function")
}

func (p *Program) findPC(name, wantType string) (uint64, error) {
	raw, ok := p.Identifiers[name]
	if !ok {
		return 0, newErr(UnknownIdentifier, "identifier %q not found", name)
	}
	var ident rawIdentifier
	if err := json.Unmarshal(raw, &ident); err != nil {
		return 0, newErr(MalformedProgramJSON, "identifier %q: %s", name, err)
	}
	if ident.Type != wantType || ident.PC == nil {
		return 0, newErr(MissingMain, "identifier %q is not a %s", name, wantType)
	}
	return *ident.PC, nil
}

// Entrypoint resolves a fully-qualified function name's pc, for
// selecting a non-main entrypoint (the CLI's entrypoint-selection flag).
func (p *Program) Entrypoint(name string) (uint64, error) {
	return p.findFunctionPC(name)
}

// Label resolves a compiler-emitted label's pc, e.g. "__start__"/"__end__"
// (proof mode's program bounds, spec §6).
func (p *Program) Label(name string) (uint64, error) {
	return p.findPC(name, "label")
}

func parseFelt(s string) (memory.Felt, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return memory.FeltFromHex(s)
	}
	return memory.FeltFromDecString(s)
}
