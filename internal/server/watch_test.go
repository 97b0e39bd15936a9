package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/metrics"
	"github.com/roach88/molder/pkg/molder"
)

func dirBuilder(dir string) BuildFunc {
	return func() (*molder.Molder, error) {
		result, errs := loader.LoadDir(dir, loader.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		reg, err := result.Registry()
		if err != nil {
			return nil, err
		}
		return molder.New(reg), nil
	}
}

func writeModel(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReloaderReload(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "user.yaml", "model:\n  User:\n    fields:\n      name: string\n")

	reg := prometheus.NewRegistry()
	c := metrics.NewWithRegistry(reg)
	s := New(accountMolder(), Options{})
	r := NewReloader(dir, dirBuilder(dir), s, c, zerolog.Nop())

	require.NoError(t, r.Reload())
	assert.Equal(t, []string{"User"}, s.Molder().Registry().Models())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Reloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Models))

	// A broken file keeps the models already served.
	writeModel(t, dir, "bad.yaml", "model:\n  Bad:\n    fields:\n      x: {type: string, shout: true}\n")
	err := r.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload models")
	assert.Equal(t, []string{"User"}, s.Molder().Registry().Models())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ReloadErrors))
}

func TestReloaderWatch(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "user.yaml", "model:\n  User:\n    fields:\n      name: string\n")

	s := New(accountMolder(), Options{})
	r := NewReloader(dir, dirBuilder(dir), s, nil, zerolog.Nop())
	require.NoError(t, r.Watch())
	t.Cleanup(r.Stop)

	writeModel(t, dir, "notes.txt", "ignored")
	writeModel(t, dir, "account.yaml", "model:\n  Account:\n    fields:\n      amount: number\n")

	require.Eventually(t, func() bool {
		return s.Molder().Registry().Has("Account") && s.Molder().Registry().Has("User")
	}, 5*time.Second, 20*time.Millisecond)

	r.Stop()
	r.Stop()
}

func TestReloaderWatchMissingDir(t *testing.T) {
	s := New(accountMolder(), Options{})
	r := NewReloader(filepath.Join(t.TempDir(), "nope"), nil, s, nil, zerolog.Nop())
	err := r.Watch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch directory")
	r.Stop()
}

func TestIsModelFile(t *testing.T) {
	assert.True(t, isModelFile("a/b.cue"))
	assert.True(t, isModelFile("b.yaml"))
	assert.True(t, isModelFile("b.yml"))
	assert.False(t, isModelFile("b.json"))
	assert.False(t, isModelFile("b.yaml.swp"))
}
