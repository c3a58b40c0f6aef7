package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"edgegen/internal/backend/llamacpp"
	"edgegen/internal/config"
	"edgegen/internal/httpapi"
	"edgegen/internal/manager"
	"edgegen/internal/registry"
	"edgegen/internal/session"
)

func newServeCmd(a *app) *cobra.Command {
	var genTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), genTimeout)
		},
	}
	f := cmd.Flags()
	f.String("addr", config.DefaultAddr, "HTTP listen address, e.g. :8080 (env EDGEGEN_ADDR)")
	f.String("default-model", "", "Default model id when a request omits model")
	f.Int("max-queue-depth", config.DefaultMaxQueueDepth, "Callers allowed to wait for the engine")
	f.String("max-wait", config.DefaultMaxWait.String(), "How long a caller may wait for the engine")
	f.String("cors-origins", "", "Comma-separated allowed origins; enables CORS")
	f.DurationVar(&genTimeout, "generate-timeout", 0, "Per-request generation timeout (0 = none)")
	return cmd
}

func (a *app) serve(parent context.Context, genTimeout time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := a.cfg
	log := a.log

	store, err := registry.NewStore(cfg.ModelsDir)
	if err != nil {
		return err
	}
	sess := session.New(llamacpp.New(), cfg.Engine)
	sess.SetLogger(log.With().Str("component", "session").Logger())
	mlog := log.With().Str("component", "manager").Logger()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Session:       sess,
		Store:         store,
		DefaultModel:  cfg.DefaultModel,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWaitDuration(),
		BackendBuilt:  llamacpp.Built,
		Publisher:     manager.LogPublisher{Log: mlog},
		Logger:        &mlog,
	})
	defer mgr.Close()

	if rep := mgr.SanityCheck(); rep.Error != "" {
		log.Warn().Str("backend", rep.Backend).Bool("built", rep.BackendBuilt).Str("error", rep.Error).Msg("inference backend not ready; generation will fail until it is")
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeout(genTimeout)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	if cfg.DefaultModel != "" {
		go func() {
			if err := mgr.EnsureModel(ctx, ""); err != nil {
				log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("preload default model")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", store.Dir).Bool("backend_built", llamacpp.Built).Msg("edgegen listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// running generations see the base context end and stop at the next token
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}
