package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/strategist/internal/agent"
	"example.com/strategist/internal/auth"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
	"example.com/strategist/internal/recorder"
	spg "example.com/strategist/internal/storage/postgres"
	transport "example.com/strategist/internal/transport/http"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	strategist, err := agent.New(cfg.Agent, log)
	if err != nil {
		return err
	}
	log.Info("agent configured", "provider", cfg.Agent.Provider, "timeout", cfg.Agent.Timeout.String())

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.DefaultUserID)
	if !verifier.Enabled() {
		log.Warn("JWT_SECRET not set, trusting X-User-ID header", "default_user_id", cfg.DefaultUserID)
	}

	deps := &transport.ServerDeps{
		Cfg:      cfg,
		Agent:    strategist,
		Verifier: verifier,
		Defaults: domain.SystemDefaults(),
		Log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
	}

	g, gctx := errgroup.WithContext(ctx)
	// The recorder outlives the server so requests still in flight during
	// shutdown can hand over their records.
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	if cfg.PostgresDSN != "" {
		db, err := spg.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
		log.Info("db: migrations applied")

		rc := recorder.New(spg.NewWriter(db), cfg.QueueMaxSize, cfg.BatchMaxSize, cfg.BatchMaxWait, log)
		g.Go(func() error { return rc.Run(recCtx) })
		log.Info("recorder started", "queue", cfg.QueueMaxSize, "batch", cfg.BatchMaxSize, "wait", cfg.BatchMaxWait.String())

		deps.Recorder = rc
		deps.Store = db
	} else {
		log.Info("POSTGRES_DSN not set, strategies are not persisted")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Agent.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopRecorder()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
