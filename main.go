package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voyageflow/config"
	"voyageflow/hub"
	"voyageflow/ingest"
	"voyageflow/internal/channel"
	"voyageflow/logger"
	"voyageflow/server"
	"voyageflow/store"
	"voyageflow/summary"
	"voyageflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Voyageflow.Name,
		"version": cfg.Voyageflow.Version,
	}).Info("starting voyageflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "", "")
	}

	channels := channel.NewChannels(cfg.Channels.ArchiveBuffer)
	defer channels.Close()

	dataset := store.NewDataset()
	viewers := hub.New()

	var archiveWriter *writer.ArchiveWriter
	var pipeline *ingest.Pipeline

	if cfg.Storage.S3.Enabled {
		archiveWriter, err = writer.NewArchiveWriter(cfg, channels.Archive)
		if err != nil {
			log.WithError(err).Error("failed to create archive writer")
			os.Exit(1)
		}
		pipeline = ingest.NewPipeline(dataset, viewers, channels)
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping archive writer")
		pipeline = ingest.NewPipeline(dataset, viewers, nil)
	}

	summarizer := summary.NewService(cfg.Summary)
	srv := server.New(cfg.Server, dataset, viewers, pipeline, summarizer)

	if archiveWriter != nil {
		if err := archiveWriter.Start(ctx); err != nil {
			log.WithError(err).Error("archive writer failed to start")
			os.Exit(1)
		}
	}

	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Error("HTTP server failed to start")
		os.Exit(1)
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping HTTP server")
	if err := srv.Stop(); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	if archiveWriter != nil {
		log.Info("stopping archive writer")
		archiveWriter.Stop()
	}

	log.Info("voyageflow stopped")
}
