// Command rodin-gateway serves customer price lists from the Rodin B2B API
// with an in-memory cache in front.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/arteq-commerce/rodin-gateway/pkg/config"
	"github.com/arteq-commerce/rodin-gateway/pkg/logging"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricecache"
	"github.com/arteq-commerce/rodin-gateway/pkg/pricelist"
	"github.com/arteq-commerce/rodin-gateway/pkg/server"
	"github.com/arteq-commerce/rodin-gateway/pkg/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := logging.Setup(logging.DefaultConfig())
		fallbackLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	tokens, err := upstream.NewTokenManager(redisClient, upstream.TokenConfig{
		BaseURL:  cfg.RodinBaseURL,
		Username: cfg.RodinUsername,
		Password: cfg.RodinPassword,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token manager")
	}

	rodin, err := upstream.New(upstream.Config{
		BaseURL: cfg.RodinBaseURL,
		Tokens:  tokens,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Rodin client")
	}

	cache := pricecache.New(pricecache.Config{
		MaxEntries:    cfg.CacheMaxEntries,
		TTL:           cfg.CacheTTL,
		EvictFraction: cfg.CacheEvictFraction,
		SweepInterval: cfg.CacheSweepInterval,
	}, logger)
	go cache.Run(ctx)

	prices := pricelist.New(cache, rodin, pricelist.Config{
		EmailRetries:    cfg.EmailRetries,
		CodeRetries:     cfg.CodeRetries,
		FetchTimeout:    cfg.FetchTimeout,
		FallbackTimeout: cfg.FallbackTimeout,
		FallbackLimit:   cfg.FallbackLimit,
		MaxVisibleSKUs:  cfg.MaxVisibleSKUs,
	}, logger)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.ListenAddr()
	srv := server.New(srvCfg, prices, cache, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
		return
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
	logger.Info().Msg("Gateway stopped")
}
