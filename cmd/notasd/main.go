package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/notas-reader/internal/app"
	"github.com/joseph-ayodele/notas-reader/internal/async"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/export"
	"github.com/joseph-ayodele/notas-reader/internal/server"
	"github.com/joseph-ayodele/notas-reader/internal/services/extraction"
	"github.com/joseph-ayodele/notas-reader/internal/services/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewManager(cfg.Session.TTL, logger)
	orch := app.NewOrchestrator(cfg, logger)
	runs := extraction.NewService(sessions, orch, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithRunTimeout(cfg.Queue.RunTimeout),
	)

	api := server.NewAPI(
		sessions,
		ingest.NewService(sessions, logger),
		runs,
		export.NewService(logger),
		server.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
		logger,
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthServer := server.NewHealthServer(logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sessions.Janitor(gctx, cfg.Session.SweepInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("http.listen", "addr", cfg.Server.HTTPAddr, "engine", cfg.Converter.Engine, "provider", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc.listen.failed", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return healthServer.Serve(lis) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown.start")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		healthServer.Stop(sctx)
		if err := httpServer.Shutdown(sctx); err != nil {
			logger.Warn("http.shutdown.failed", "error", err)
		}
		runs.Shutdown(sctx)
		logger.Info("shutdown.done")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("notasd.exit", "error", err)
		os.Exit(1)
	}
}
