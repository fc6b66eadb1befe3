package main

import (
	"context"
	"os"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/bootstrap"
	"fxrates-aggregator/internal/config"
	"fxrates-aggregator/internal/domain"
	"fxrates-aggregator/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

// The updater runs one refresh and exits; scheduling is left to cron or the
// orchestrator. UPDATE_MODE selects a single day (daily, optionally pinned
// with UPDATE_DATE) or the full backfill from ORIGIN_DATE.
func main() {
	if !run() {
		os.Exit(1)
	}
}

func run() bool {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()

	svc, _, cleanup, err := bootstrap.BuildRateService(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()

	var results []application.UpdateResult
	switch cfg.UpdateMode {
	case "", "daily":
		date := domain.Day(time.Now().UTC())
		if cfg.UpdateDate != "" {
			date, err = time.Parse("2006-01-02", cfg.UpdateDate)
			if err != nil {
				logger.Fatal("invalid UPDATE_DATE", zap.String("value", cfg.UpdateDate), zap.Error(err))
			}
		}
		results = svc.UpdateAllRatesByDate(ctx, date)
	case "historical":
		origin, err := time.Parse("2006-01-02", cfg.OriginDate)
		if err != nil {
			logger.Fatal("invalid ORIGIN_DATE", zap.String("value", cfg.OriginDate), zap.Error(err))
		}
		results = svc.UpdateAllHistoricalRates(ctx, origin)
	default:
		logger.Fatal("unknown UPDATE_MODE", zap.String("value", cfg.UpdateMode))
	}

	ok := true
	for _, res := range results {
		if res.Err != nil {
			ok = false
			logger.Error("provider update finished with error",
				zap.String("provider", res.Provider), zap.Int("inserted", res.Inserted), zap.Error(res.Err))
			continue
		}
		logger.Info("provider update finished",
			zap.String("provider", res.Provider), zap.Int("inserted", res.Inserted))
	}
	return ok
}
