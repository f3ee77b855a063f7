package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"loan-topup/config"
	httpLayer "loan-topup/http"
	"loan-topup/repository"
	"loan-topup/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()
	policy := service.DefaultPolicy().WithOverrides(cfg.Policy)

	var cache repository.CacheRepository = repository.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisCache := repository.NewRedisCache(cfg.RedisAddr, "topup:")
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, caching strategies in memory")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	var store repository.TopUpRepository = repository.NewTopUpRepositoryMemory()
	if cfg.MongoURI != "" {
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to mongodb")
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("error disconnecting mongodb")
			}
		}()
		mongoStore := repository.NewMongoTopUpRepository(client.Database(cfg.MongoDatabase))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("failed to create mongodb indexes")
		}
		store = mongoStore
	} else {
		log.Warn("MONGODB_URI not set, top-up requests are kept in memory")
	}

	strategyService := service.NewStrategyService(policy, cache, cfg.StrategyCacheTTL, log)
	submissionService := service.NewSubmissionService(policy, store, log)
	approvalService := service.NewApprovalService(store, log)
	statsService := service.NewStatsService(store)
	wizardService := service.NewWizardService(strategyService, submissionService, cfg.SessionIdleTTL, log)
	defer wizardService.Stop()

	topUpHandler := httpLayer.NewTopUpHandler(strategyService, approvalService, statsService, log)
	wizardHandler := httpLayer.NewWizardHandler(wizardService, log)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()

	routes := map[string]http.HandlerFunc{
		"/topup/eligibility":              topUpHandler.Eligibility,
		"/topup/strategies":               topUpHandler.Strategies,
		"/topup/comparison":               topUpHandler.Comparison,
		"/topup/stats":                    topUpHandler.Stats,
		"/topup/requests/{id}/steps":      topUpHandler.Steps,
		"/topup/requests/{id}/transition": topUpHandler.Transition,
		"/topup/sessions":                 wizardHandler.Start,
		"/topup/sessions/{id}":            wizardHandler.Session,
		"/topup/sessions/{id}/{action}":   wizardHandler.Action,
	}

	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.Handle(pattern, httpLayer.RateLimitMiddleware(rateLimiter, log, handler))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("top-up API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.WithError(err).Error("error starting server")
		return
	case <-quit:
		log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error during server shutdown")
	}

	log.Info("server exited")
}
