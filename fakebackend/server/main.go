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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"temporal-fiscal-request/config"
	"temporal-fiscal-request/fakebackend"
	"temporal-fiscal-request/logging"
)

func main() {
	var pollsUntilDone int

	cmd := &cobra.Command{
		Use:   "fake-backend",
		Short: "Serve the document and fiscal backends in memory for local runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("polls-until-done") {
				cfg.FakeBackend.PollsUntilDone = pollsUntilDone
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&pollsUntilDone, "polls-until-done", 2, "reads a request stays Criado before it concludes")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	store := fakebackend.NewStore(cfg.FakeBackend.PollsUntilDone)
	router := fakebackend.NewRouter(store, logger)

	// Both backends share one store so uploaded documents are visible to
	// request validation.
	addrs := []string{cfg.FakeBackend.Addr}
	if cfg.FakeBackend.DocumentsAddr != "" && cfg.FakeBackend.DocumentsAddr != cfg.FakeBackend.Addr {
		addrs = append(addrs, cfg.FakeBackend.DocumentsAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Fake backend listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("Fake backend stopped")
	return err
}
