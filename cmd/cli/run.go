package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/cairo-vm-go/pkg/builtins"
	zprog "github.com/NethermindEth/cairo-vm-go/pkg/parsers/zero"
	"github.com/NethermindEth/cairo-vm-go/pkg/runners/zero"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm"
	"github.com/NethermindEth/cairo-vm-go/pkg/vm/memory"
)

// maxSteps bounds every run so a malformed or adversarial program
// cannot hang the CLI forever; spec §6 leaves the exact limit to the
// driver rather than naming a flag for it.
const maxSteps = 1 << 26

// layouts maps the CLI's named layouts to the builtins they make
// available, per spec §6's closed `plain|small|dynamic|all_cairo` set.
// `dynamic` places no restriction of its own: whatever the program
// declares is accepted, matching a dynamic layout's real job of sizing
// itself to the program rather than the reverse.
var layouts = map[string][]string{
	"plain":     {},
	"small":     {"output", "pedersen", "range_check", "ecdsa"},
	"dynamic":   nil,
	"all_cairo": builtins.CanonicalOrder,
}

type runOptions struct {
	layout               string
	proofMode            bool
	traceFile            string
	memoryFile           string
	allowMissingBuiltins bool
	entrypoint           string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <program.json>",
		Short: "Run a compiled cairo0 program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.layout, "layout", "plain", "builtin layout: plain|small|dynamic|all_cairo")
	flags.BoolVar(&opts.proofMode, "proof-mode", false, "run in proof mode")
	flags.StringVar(&opts.traceFile, "trace-file", "", "relocated trace output path")
	flags.StringVar(&opts.memoryFile, "memory-file", "", "relocated memory output path")
	flags.BoolVar(&opts.allowMissingBuiltins, "allow-missing-builtins", false, "skip the layout/builtin compatibility check")
	flags.StringVar(&opts.entrypoint, "entrypoint", "main", "function name to run")
	return cmd
}

func runProgram(path string, opts *runOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	program, err := zprog.Load(data)
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	if !opts.allowMissingBuiltins {
		if err := checkLayout(opts.layout, program.Builtins); err != nil {
			return err
		}
	}

	runner, err := zero.NewRunner(program, opts.proofMode, maxSteps)
	if err != nil {
		return fmt.Errorf("initializing runner: %w", err)
	}

	if err := run(runner, opts); err != nil {
		return err
	}

	if opts.proofMode || opts.traceFile != "" || opts.memoryFile != "" {
		traceBytes, memoryBytes, err := runner.BuildProof()
		if err != nil {
			return fmt.Errorf("building proof: %w", err)
		}
		if opts.traceFile != "" {
			if err := os.WriteFile(opts.traceFile, traceBytes, 0o644); err != nil {
				return fmt.Errorf("writing trace file: %w", err)
			}
		}
		if opts.memoryFile != "" {
			if err := os.WriteFile(opts.memoryFile, memoryBytes, 0o644); err != nil {
				return fmt.Errorf("writing memory file: %w", err)
			}
		}
	}

	return nil
}

// run dispatches to the main entrypoint's run (spec §6's proof modes,
// and execution mode's default path) or a selected non-main entrypoint.
// Entrypoint selection is only meaningful outside proof mode: proof
// mode's stack shape is fixed to main by construction (§6).
func run(runner *zero.ZeroRunner, opts *runOptions) error {
	if opts.entrypoint != "" && opts.entrypoint != "main" {
		if opts.proofMode {
			return errors.New("--entrypoint is only supported outside --proof-mode")
		}
		end, err := runner.InitializeEntrypoint(opts.entrypoint, nil)
		if err != nil {
			return fmt.Errorf("initializing entrypoint %q: %w", opts.entrypoint, err)
		}
		if err := runner.RunUntilPc(end); err != nil {
			return err
		}
		return runner.Builtins.VerifyAutoDeductions(runner.VM.Memory())
	}
	return runner.Run()
}

func checkLayout(layoutName string, declared []string) error {
	allowed, ok := layouts[layoutName]
	if !ok {
		return fmt.Errorf("unknown layout %q", layoutName)
	}
	if allowed == nil {
		return nil
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, b := range allowed {
		allowedSet[b] = true
	}
	for _, b := range declared {
		if !allowedSet[b] {
			return fmt.Errorf("builtin %q is not available in layout %q", b, layoutName)
		}
	}
	return nil
}

// exitCode maps an error to a process exit status, categorizing by
// error-taxonomy package per spec §7 rather than returning a bare 1 for
// everything.
func exitCode(err error) int {
	var progErr *zprog.Error
	var builtinErr *builtins.Error
	var runnerErr *zero.Error
	var vmErr *vm.Error
	var memErr *memory.Error
	switch {
	case errors.As(err, &progErr):
		return 2
	case errors.As(err, &builtinErr):
		return 3
	case errors.As(err, &runnerErr):
		return 4
	case errors.As(err, &vmErr):
		return 5
	case errors.As(err, &memErr):
		return 6
	default:
		return 1
	}
}
