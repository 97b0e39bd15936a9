package server

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/roach88/molder/internal/metrics"
	"github.com/roach88/molder/pkg/molder"
)

// BuildFunc builds a fresh Molder from the models on disk.
type BuildFunc func() (*molder.Molder, error)

// Reloader rebuilds the served Molder when model files change. A failed
// build keeps the previous Molder.
type Reloader struct {
	dir     string
	build   BuildFunc
	server  *Server
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewReloader creates a reloader for the models under dir. c may be nil.
func NewReloader(dir string, build BuildFunc, srv *Server, c *metrics.Collector, logger zerolog.Logger) *Reloader {
	return &Reloader{
		dir:     dir,
		build:   build,
		server:  srv,
		metrics: c,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Reload builds a new Molder and swaps it in.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info().Str("dir", r.dir).Msg("reloading models")

	m, err := r.build()
	if err != nil {
		r.record(0, err)
		r.logger.Error().Err(err).Msg("model reload failed, keeping old models")
		return fmt.Errorf("reload models: %w", err)
	}

	old := r.server.Swap(m)
	models := len(m.Registry().Models())
	r.record(models, nil)

	oldCount := 0
	if old != nil {
		oldCount = len(old.Registry().Models())
	}
	r.logger.Info().Int("old", oldCount).Int("new", models).Msg("models reloaded")
	return nil
}

func (r *Reloader) record(models int, err error) {
	if r.metrics != nil {
		r.metrics.RecordReload(models, err)
	}
}

// Watch starts watching dir and its subdirectories. Changes to model files
// trigger Reload.
func (r *Reloader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	r.watcher = watcher

	go r.watchLoop()

	r.logger.Info().Str("dir", r.dir).Msg("watching models for changes")
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.watcher != nil {
			r.watcher.Close()
			<-r.doneCh
		}
	})
}

func (r *Reloader) watchLoop() {
	defer close(r.doneCh)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !isModelFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			r.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("model file changed")

			if err := r.Reload(); err != nil {
				r.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("file watcher error")

		case <-r.stopCh:
			return
		}
	}
}

func isModelFile(path string) bool {
	switch filepath.Ext(path) {
	case ".cue", ".yaml", ".yml":
		return true
	}
	return false
}
