package main

import (
	"context"
	"time"

	"github.com/cppla/newsboard/config"
	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/routes"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(cfg, models.All()...)

	store := utils.NewStore(utils.NewRedis(cfg))
	cache := utils.NewResponseCache(store, "cache:", 30*time.Second)
	events := utils.NewPublisher(cfg, utils.Logger)
	defer events.Close()

	interactions := services.NewInteractionStore(db)
	deps := routes.Deps{
		Config:       cfg,
		DB:           db,
		Sessions:     utils.NewSessionManager(store, cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour),
		States:       utils.NewStateStore(store, 10*time.Minute),
		Cache:        cache,
		Events:       events,
		Identity:     utils.NewOIDCProvider(cfg),
		Feed:         services.NewFeedEngine(db),
		Interactions: interactions,
		Posts:        services.NewPostService(db, interactions, cache, events, utils.Logger),
		Users:        services.NewUserService(db, cfg.IsAdminEmail),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ingester := services.NewNewsIngester(db,
		services.NewHackerNewsClient(cfg.NewsBaseURL, time.Duration(cfg.NewsTimeoutSec)*time.Second),
		services.IngestOptions{
			BatchSize: cfg.NewsBatchSize,
			Workers:   cfg.NewsWorkers,
			Logger:    utils.Logger,
			Events:    events,
			Cache:     cache,
		})
	services.StartIngestScheduler(ctx, ingester, time.Duration(cfg.NewsIngestIntervalMin)*time.Minute, utils.Logger)

	r := routes.SetupRouter(deps)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
