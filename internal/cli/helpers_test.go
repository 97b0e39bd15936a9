package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const accountModel = `model:
  Account:
    description: An account
    fields:
      amount: {type: number, max: 11, default: 2}
      name: {type: string, required: true, trim: true}
`

const brokenModel = `model:
  Broken:
    fields:
      x: {type: string, item: string}
`

// writeModels creates a models directory holding files.
func writeModels(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func accountDir(t *testing.T) string {
	return writeModels(t, map[string]string{"account.yaml": accountModel})
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
