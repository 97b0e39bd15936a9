package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molder/internal/metrics"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	require.NotNil(t, m)

	// Vectors only show up once observed; the plain gauges are always there.
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "molder_http_requests_in_flight")
	assert.Contains(t, names, "molder_reloads_total")
	assert.Contains(t, names, "molder_models")
}

func TestObserveCompile(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveCompile("Account", 2*time.Millisecond, false)
	m.ObserveCompile("Account", 0, true)
	m.ObserveCompile("Account", 0, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compilations.WithLabelValues("Account", "compiler")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Compilations.WithLabelValues("Account", "cache")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CompileDuration))
}

func TestObserveValidation(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveValidation("Account", time.Microsecond, 0)
	m.ObserveValidation("Account", time.Microsecond, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("Account", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("Account", "invalid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Violations.WithLabelValues("Account")))
}

func TestRecordReload(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.RecordReload(4, nil)
	m.RecordReload(0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Models))
	assert.Greater(t, testutil.ToFloat64(m.LastReload), 0.0)
}

func TestCollectorAsRecorder(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	reg := rules.NewRegistry()
	reg.Model("Account").Field("name", rules.String, rules.Required())
	mo := molder.New(reg, molder.WithRecorder(m))

	_, err := mo.Validate("Account", map[string]any{})
	require.Error(t, err)
	_, err = mo.Validate("Account", map[string]any{"name": "ekonoo"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compilations.WithLabelValues("Account", "compiler")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("Account", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("Account", "valid")))
}
