package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/loot-draft-backend/internal/archive"
	"github.com/DoyleJ11/loot-draft-backend/internal/config"
	"github.com/DoyleJ11/loot-draft-backend/internal/httpapi"
	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
	"github.com/DoyleJ11/loot-draft-backend/internal/logging"
	"github.com/DoyleJ11/loot-draft-backend/internal/presenter"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:          "loot-draft-server",
		Short:        "Serve snake-draft loot sessions over HTTP and websockets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	config.BindFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	presenters := presenter.Multi{presenter.NewLog(log.Named("presenter"))}

	var history httpapi.History
	var recorder *archive.Recorder
	if cfg.DatabaseURL != "" {
		var store *archive.Store
		store, err = archive.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		recorder = archive.NewRecorder(store, log.Named("archive"), 0)
		presenters = append(presenters, recorder)
		history = store
		log.Info("archive enabled")
	} else {
		log.Info("archive disabled, no database url")
	}

	h := hub.NewHub(hub.Config{
		IdleTimeout:   cfg.IdleTimeout,
		SweepInterval: cfg.SweepInterval,
		EvictAfter:    cfg.EvictAfter,
		Limits:        cfg.Limits(),
	}, lobby.Presenter(presenters), hub.WithLogger(log.Named("hub")))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, history, log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return h.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs := srv.Shutdown(shutdownCtx)
		h.Shutdown()
		if recorder != nil {
			errs = multierr.Append(errs, recorder.Close(shutdownCtx))
		}
		return errs
	})
	return g.Wait()
}
