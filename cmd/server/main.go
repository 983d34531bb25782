package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/morflash/morflash/internal/api"
	"github.com/morflash/morflash/internal/config"
	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/services"
	"github.com/morflash/morflash/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("morflash server starting")
	log.Info("===========================================")
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("data_dir=%s", cfg.DataDir)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("generator=%s", cfg.Generator)
	log.Debug("export_worker_count=%d", cfg.ExportWorkerCount)
	log.Debug("export_queue_size=%d", cfg.ExportQueueSize)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("failed to create data dir: %v", err)
		os.Exit(1)
	}

	exportPool := worker.NewPool(cfg.ExportWorkerCount, cfg.ExportQueueSize)

	registry := services.NewRegistry()
	deckService := services.NewDeckService(registry, cfg.DataDir, cfg.Generator, exportPool)
	studyService := services.NewStudyService(registry, cfg.SchedulerParams())

	srv := &api.Server{
		Decks: deckService,
		Study: studyService,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportPool.Start(ctx)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Info("listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error: %v", err)
	}

	exportPool.Stop()
	if err := registry.CloseAll(); err != nil {
		log.Error("failed to close open decks: %v", err)
	}
	log.Info("goodbye")
}
