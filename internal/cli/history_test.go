package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRuns validates inputs against Account, recording each run in dbPath.
func recordRuns(t *testing.T, dbPath string, inputs ...string) {
	t.Helper()
	dir := accountDir(t)
	for _, input := range inputs {
		cmd := NewValidateCommand(&RootOptions{Format: "text"})
		_, err := execute(cmd, dir, "Account", writeInput(t, input), "--db", dbPath)
		require.NotEqual(t, ExitCommandError, GetExitCode(err))
	}
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, `{"name": "Ann"}`, `{"amount": 12}`, `{"name": "Bob"}`)

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)

	// Newest first.
	assert.Equal(t, int64(3), resp.Data[0].Seq)
	assert.True(t, resp.Data[0].Valid)
	assert.False(t, resp.Data[1].Valid)
	assert.Equal(t, 2, resp.Data[1].Violations)
	assert.Equal(t, "data should have required property 'name', data/amount should be <= 11", resp.Data[1].Errors)
	assert.Equal(t, "cli", resp.Data[1].Source)
	assert.Len(t, resp.Data[1].InputHash, 64)
}

func TestHistoryCommandFilters(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, `{"name": "Ann"}`, `{"amount": 12}`, `{"name": "Bob"}`)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"only invalid", []string{"--only", "invalid"}, 1},
		{"only valid", []string{"--only", "valid"}, 2},
		{"limit", []string{"--limit", "1"}, 1},
		{"other model", []string{"--model", "User"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", dbPath}, tt.args...)
			out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), args...)
			require.NoError(t, err)

			var resp struct {
				Data []HistoryEntry `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Len(t, resp.Data, tt.want)
		})
	}
}

func TestHistoryCommandText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	recordRuns(t, dbPath, `{"name": "Ann"}`)
	out, err = execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "Account")
}

func TestHistoryCommandErrors(t *testing.T) {
	_, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err, "--db is required")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "runs.db"), "--only", "maybe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInvalidInput+"]")
}
