// Package bootstrap assembles the concrete infrastructure shared by the api
// and updater binaries: storage, the provider gateways and their currency
// cache, and the rate service on top of them.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/config"
	"fxrates-aggregator/internal/domain"
	"fxrates-aggregator/internal/infrastructure/httpx"
	"fxrates-aggregator/internal/infrastructure/inmem"
	"fxrates-aggregator/internal/infrastructure/logx"
	"fxrates-aggregator/internal/infrastructure/pg"
	"fxrates-aggregator/internal/infrastructure/provider"
	redisstore "fxrates-aggregator/internal/infrastructure/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store bundles the rate store with its readiness probe.
type Store struct {
	Rates application.RateStore
	Ping  func(ctx context.Context) error
}

// BuildStore connects to postgres and runs migrations. With no DATABASE_URL
// it falls back to the in-memory store, which is only meant for local runs.
func BuildStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	log := logx.L()

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return Store{Rates: inmem.NewStore()}, func() {}, nil
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Store{}, func() {}, fmt.Errorf("connect pg: %w", err)
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Store{}, func() {}, fmt.Errorf("run migrations: %w", err)
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Store{Rates: pg.NewRateRepo(db), Ping: db.Ping}, cleanup, nil
}

// BuildCurrencyCache returns the supported-currency cache. CACHE_BACKEND=none
// disables it, gateways then hit the vendor list endpoints on every lookup.
func BuildCurrencyCache(cfg config.Config) (provider.CurrencyCache, func()) {
	if cfg.CacheBackend != "redis" {
		return provider.NoopCache{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.CacheTTL), func() { _ = client.Close() }
}

// BuildGateways instantiates the configured provider gateways in PROVIDERS
// order, which is also their priority order when rates disagree.
func BuildGateways(cfg config.Config, cache provider.CurrencyCache) []application.ProviderGateway {
	log := logx.L()
	client := &httpx.Client{HTTP: &http.Client{Timeout: cfg.ProviderTimeout}}

	var gateways []application.ProviderGateway
	for _, name := range cfg.Providers {
		switch name {
		case "grandtrunk":
			gateways = append(gateways, provider.NewGrandTrunk(cfg.BaseCurrency, client, cache, log))
		case "currencylayer":
			if cfg.CurrencyLayerAPIKey == "" {
				log.Warn("CURRENCY_LAYER_API_KEY not set, skipping currencylayer")
				continue
			}
			gateways = append(gateways, provider.NewCurrencyLayer(cfg.BaseCurrency, cfg.CurrencyLayerAPIKey, client, cache, log))
		case "fake":
			gateways = append(gateways, provider.NewFake("fake", nil))
		default:
			log.Warn("unknown provider in PROVIDERS, skipping", zap.String("provider", name))
		}
	}
	return gateways
}

// BuildRateService wires the whole graph for one process.
func BuildRateService(ctx context.Context, cfg config.Config) (*application.RateService, Store, func(), error) {
	store, closeStore, err := BuildStore(ctx, cfg)
	if err != nil {
		return nil, Store{}, func() {}, err
	}
	cache, closeCache := BuildCurrencyCache(cfg)
	gateways := BuildGateways(cfg, cache)

	svc := application.NewRateService(store.Rates, gateways, cfg.BaseCurrency,
		domain.NewCurrencySet(cfg.SupportedCurrencies...))

	cleanup := func() {
		closeCache()
		closeStore()
	}
	return svc, store, cleanup, nil
}
