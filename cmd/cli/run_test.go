package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zprog "github.com/NethermindEth/cairo-vm-go/pkg/parsers/zero"
	"github.com/NethermindEth/cairo-vm-go/pkg/runners/zero"
)

func TestCheckLayoutRejectsBuiltinOutsidePlain(t *testing.T) {
	err := checkLayout("plain", []string{"output"})
	require.Error(t, err)
}

func TestCheckLayoutAcceptsSmallBuiltins(t *testing.T) {
	err := checkLayout("small", []string{"output", "pedersen"})
	assert.NoError(t, err)
}

func TestCheckLayoutDynamicAcceptsAnything(t *testing.T) {
	err := checkLayout("dynamic", []string{"keccak", "poseidon", "segment_arena"})
	assert.NoError(t, err)
}

func TestCheckLayoutRejectsUnknownName(t *testing.T) {
	err := checkLayout("nonexistent", nil)
	require.Error(t, err)
}

func TestExitCodeCategorizesByPackage(t *testing.T) {
	_, parseErr := zprog.Load([]byte("not json"))
	require.Error(t, parseErr)
	assert.Equal(t, 2, exitCode(parseErr))

	program := &zprog.Program{Builtins: []string{"no-such-builtin"}}
	_, runnerErr := zero.NewRunner(program, false, 1000)
	require.Error(t, runnerErr)
	assert.Equal(t, 4, exitCode(runnerErr))

	assert.Equal(t, 1, exitCode(assertionError{}))
}

type assertionError struct{}

func (assertionError) Error() string { return "boom" }
