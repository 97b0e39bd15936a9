package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/accounts.yaml")
	require.NoError(t, err)

	assert.Equal(t, "accounts", scenario.Name)
	assert.Equal(t, []string{filepath.Join("testdata", "models")}, scenario.Models)
	assert.Empty(t, scenario.Declarations)
	assert.Nil(t, scenario.Options)
	require.Len(t, scenario.Cases, 6)
	assert.Equal(t, "defaults fill absent amount", scenario.Cases[0].Name)
	assert.Equal(t, "Account", scenario.Cases[0].Model)
	require.Len(t, scenario.Assertions, 5)
	assert.Equal(t, AssertSchema, scenario.Assertions[4].Type)
}

func TestLoadScenarioInlineModel(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/strict_numbers.yaml")
	require.NoError(t, err)

	assert.Empty(t, scenario.Models)
	require.Len(t, scenario.Declarations, 1)
	assert.Equal(t, "Price", scenario.Declarations[0].Name)
	require.Len(t, scenario.Declarations[0].Fields, 2)

	require.NotNil(t, scenario.Options)
	require.NotNil(t, scenario.Options.CoerceTypes)
	assert.False(t, *scenario.Options.CoerceTypes)
	assert.Nil(t, scenario.Options.UseDefaults)
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "models: [m]\ncases:\n  - {name: a, model: A}\n",
			wantErr: "name is required",
		},
		{
			name:    "typo in key",
			content: "name: s\nmodels: [m]\ncase:\n  - {name: a, model: A}\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "no models",
			content: "name: s\ncases:\n  - {name: a, model: A}\n",
			wantErr: "models or an inline model section is required",
		},
		{
			name:    "no cases",
			content: "name: s\nmodels: [m]\n",
			wantErr: "at least one case is required",
		},
		{
			name:    "duplicate case",
			content: "name: s\nmodels: [m]\ncases:\n  - {name: a, model: A}\n  - {name: a, model: A}\n",
			wantErr: `duplicate case name "a"`,
		},
		{
			name:    "case without model",
			content: "name: s\nmodels: [m]\ncases:\n  - {name: a}\n",
			wantErr: "cases[0]: model is required",
		},
		{
			name:    "unknown assertion",
			content: "name: s\nmodels: [m]\ncases:\n  - {name: a, model: A}\nassertions:\n  - {type: vibes}\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "violation count on unknown case",
			content: "name: s\nmodels: [m]\ncases:\n  - {name: a, model: A}\nassertions:\n  - {type: violation_count, case: b, count: 1}\n",
			wantErr: `unknown case "b"`,
		},
		{
			name:    "schema without expect",
			content: "name: s\nmodels: [m]\ncases:\n  - {name: a, model: A}\nassertions:\n  - {type: schema, model: A}\n",
			wantErr: "expect is required for schema",
		},
		{
			name:    "invalid inline model",
			content: "name: s\nmodel:\n  A:\n    fields:\n      x: {type: string, shout: true}\ncases:\n  - {name: a, model: A}\n",
			wantErr: "invalid inline models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "accounts.yaml"),
		filepath.Join("testdata", "scenarios", "strict_numbers.yaml"),
	}, paths)

	_, err = FindScenarios(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
