package zero

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProgram = `{
	"prime": "0x800000000000011000000000000000000000000000000000000000000000001",
	"data": [
		"0x480680017fff8000",
		"0x2",
		"0x208b7fff7fff7ffe"
	],
	"builtins": ["output", "range_check"],
	"main_scope": "__main__",
	"identifiers": {
		"__main__.main": {"type": "function", "pc": 0},
		"__main__.SIZE": {"type": "const", "value": "10"}
	},
	"hints": {
		"0": [
			{
				"code": "memory[ap] = segments.add()",
				"accessible_scopes": ["__main__"],
				"flow_tracking_data": {
					"ap_tracking": {"group": 0, "offset": 0},
					"reference_ids": {}
				}
			}
		]
	},
	"reference_manager": {
		"references": [
			{"ap_tracking_data": {"group": 0, "offset": 0}, "pc": 0, "value": "[cast(fp + (-3), felt)]"},
			{"ap_tracking_data": {"group": 0, "offset": 0}, "pc": 0, "value": "cast(ap + 2, felt*)"}
		]
	}
}`

func TestLoadDecodesBytecodeAndBuiltins(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	assert.Equal(t, []string{"output", "range_check"}, p.Builtins)
	assert.Len(t, p.Data, 3)
	require.NotNil(t, p.Main)
	assert.Equal(t, uint64(0), *p.Main)
}

func TestLoadExtractsConstants(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	v, ok := p.Constants["__main__.SIZE"]
	require.True(t, ok)
	assert.Equal(t, "10", v.String())
}

func TestLoadCollectsHintsByOffset(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	hints, ok := p.Hints[0]
	require.True(t, ok)
	require.Len(t, hints, 1)
	assert.Equal(t, "memory[ap] = segments.add()", hints[0].Code)
}

func TestLoadResolvesPlainCellReferences(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	require.Len(t, p.References, 2)
	assert.NotNil(t, p.References[0].Resolved)
	assert.NotNil(t, p.References[1].Resolved)
}

func TestLoadRejectsDisorderedBuiltins(t *testing.T) {
	bad := `{"prime":"0x1","data":[],"builtins":["range_check","output"],"main_scope":"__main__","identifiers":{},"hints":{},"reference_manager":{"references":[]}}`
	_, err := Load([]byte(bad))
	require.Error(t, err)
}

func TestEntrypointResolvesFunctionPC(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	pc, err := p.Entrypoint("__main__.main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pc)
}

func TestEntrypointFailsForUnknownName(t *testing.T) {
	p, err := Load([]byte(sampleProgram))
	require.NoError(t, err)
	_, err = p.Entrypoint("__main__.missing")
	require.Error(t, err)
}
