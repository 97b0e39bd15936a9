package cli

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molder/internal/metrics"
)

func TestServeBuilder(t *testing.T) {
	c := metrics.NewWithRegistry(prometheus.NewRegistry())

	build := serveBuilder(&RootOptions{}, accountDir(t), nil, c, true)
	m, err := build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Account"}, m.Registry().Models())

	// Warm start compiled the model through the recorder.
	assert.Equal(t, 1, testutil.CollectAndCount(c.Compilations))

	instance, err := m.Validate("Account", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": 2.0, "name": "Ann"}, instance)
}

func TestServeBuilderErrors(t *testing.T) {
	broken := writeModels(t, map[string]string{"broken.yaml": brokenModel})

	// Without warm start the anomaly waits for first use.
	_, err := serveBuilder(&RootOptions{}, broken, nil, nil, false)()
	require.NoError(t, err)

	_, err = serveBuilder(&RootOptions{}, broken, nil, nil, true)()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm start")

	_, err = serveBuilder(&RootOptions{}, "/nonexistent/models", nil, nil, false)()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models directory not found")
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"addr", "watch", "cache"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "false", serveCmd.Flags().Lookup("watch").DefValue)
}
