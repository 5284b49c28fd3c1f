package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/homeprice/api"
	"github.com/rushteam/homeprice/config"
	_ "github.com/rushteam/homeprice/config/builders"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/pkg/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml (default $"+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("error", "text").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("homeprice starting", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	predictor, err := config.Bootstrap(ctx, cfg, &config.Env{Logger: logger})
	if err != nil {
		logger.Error("failed to load resources", "error", err)
		os.Exit(1)
	}

	monitor := feature.NewMemoryFeatureMonitorWithInterval(cfg.Monitor.MaxSamples, cfg.Monitor.RefreshInterval)
	defer monitor.Close()

	gin.SetMode(cfg.Server.GinMode)
	handler := api.NewHandler(predictor, monitor, api.Options{
		MaxBatchSize:     cfg.Server.MaxBatchSize,
		BatchConcurrency: cfg.Server.BatchConcurrency,
		Logger:           logger,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        Version,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := predictor.Close(shutdownCtx); err != nil {
		logger.Error("close model", "error", err)
	}
	logger.Info("server stopped")
}
