package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/metrics"
	"github.com/roach88/molder/internal/server"
	"github.com/roach88/molder/internal/store"
	"github.com/roach88/molder/pkg/molder"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr  string
	Watch bool
	Cache string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve [models-dir]",
		Short: "Serve validation over HTTP",
		Long: `Serve the models of a directory over HTTP.

The directory defaults to MOLDER_MODELS_DIR. Models are compiled at startup
when MOLDER_WARM is set or AWS_LAMBDA_INITIALIZATION_TYPE is
provisioned-concurrency. SIGHUP reloads the models; with --watch they are
also reloaded whenever a model file changes. A failed reload keeps the
models already served.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.Config().ModelsDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runServe(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from MOLDER_HTTP_ADDR)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload models when files change")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "schema cache database (default from MOLDER_CACHE_PATH)")

	return cmd
}

func runServe(opts *ServeOptions, modelsDir string, cmd *cobra.Command) error {
	cfg := opts.Config()
	logger := opts.Logger()

	addr := opts.Addr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	cachePath := opts.Cache
	if cachePath == "" {
		cachePath = cfg.CachePath
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewWithRegistry(reg)

	var cache molder.Cache
	if cachePath != "" {
		st, err := store.Open(cachePath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open schema cache", err)
		}
		defer st.Close()
		cache = st.Cache()
	}

	build := serveBuilder(opts.RootOptions, modelsDir, cache, collector, cfg.WarmStart())
	m, err := build()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load models", err)
	}
	collector.Models.Set(float64(len(m.Registry().Models())))

	srv := server.New(m, server.Options{
		Addr:         addr,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      collector,
		Gatherer:     reg,
		Logger:       logger,
	})
	reloader := server.NewReloader(modelsDir, build, srv, collector, logger)
	if opts.Watch {
		if err := reloader.Watch(); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch models", err)
		}
		defer reloader.Stop()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				// Reload logs and counts its own failures.
				_ = reloader.Reload()
			}
		}
	}()

	logger.Info().
		Str("addr", addr).
		Str("dir", modelsDir).
		Int("models", len(m.Registry().Models())).
		Bool("watch", opts.Watch).
		Msg("serving models")

	if err := srv.ListenAndServe(ctx); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}

// serveBuilder returns the function building a Molder from modelsDir. With
// warm set every model is compiled and anomalies fail the build.
func serveBuilder(opts *RootOptions, modelsDir string, cache molder.Cache, rec molder.Recorder, warm bool) server.BuildFunc {
	return func() (*molder.Molder, error) {
		models, errs := LoadModels(modelsDir, loader.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		extra := []molder.Option{molder.WithRecorder(rec)}
		if cache != nil {
			extra = append(extra, molder.WithCache(cache))
		}
		m := opts.NewMolder(models, extra...)
		if warm {
			if err := m.Warm(); err != nil {
				return nil, fmt.Errorf("warm start: %w", err)
			}
		}
		return m, nil
	}
}
