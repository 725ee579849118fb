// Command ingest runs one news ingestion pass and exits. It is meant for cron or a
// container job when the server's built-in scheduler is disabled.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/newsboard/config"
	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

func main() {
	var configPath string
	var timeout time.Duration
	flag.StringVar(&configPath, "config", "config/config.json", "path to config.json")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the run")
	flag.Parse()

	// The session secret only matters to the web server.
	cfg, err := config.LoadFrom(configPath)
	if err != nil && !errors.Is(err, config.ErrMissingSecret) {
		log.Fatalf("config: %v", err)
	}
	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer utils.Logger.Sync()

	db, err := config.OpenDatabase(cfg, models.All()...)
	if err != nil {
		utils.Logger.Fatal("open database", zap.Error(err))
	}

	store := utils.NewStore(utils.NewRedis(cfg))
	events := utils.NewPublisher(cfg, utils.Logger)
	defer events.Close()

	ingester := services.NewNewsIngester(db,
		services.NewHackerNewsClient(cfg.NewsBaseURL, time.Duration(cfg.NewsTimeoutSec)*time.Second),
		services.IngestOptions{
			BatchSize: cfg.NewsBatchSize,
			Workers:   cfg.NewsWorkers,
			Logger:    utils.Logger,
			Events:    events,
			Cache:     utils.NewResponseCache(store, "cache:", 30*time.Second),
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := ingester.IngestLatest(ctx)
	if err != nil {
		utils.Logger.Error("news ingestion failed", zap.Error(err))
		os.Exit(1)
	}
	utils.Logger.Info("news ingestion done",
		zap.Int("requested", res.Requested),
		zap.Int("fetched", res.Fetched),
		zap.Int("skipped", res.Skipped),
		zap.Int("inserted", res.Inserted),
	)
}
