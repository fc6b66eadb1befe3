package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"
	"fxrates-aggregator/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const grandTrunkDefaultBaseURL = "http://currencies.apps.grandtrunk.net"

// GrandTrunk serves day rates based on Federal Reserve and European Central
// Bank data over a plain-text API. Free for low-volume use, so it carries no
// request limit.
type GrandTrunk struct {
	gatewayBase
	BaseURL string
	now     func() time.Time
}

var _ application.ProviderGateway = (*GrandTrunk)(nil)

func NewGrandTrunk(baseCurrency string, client *httpx.Client, cache CurrencyCache, log *zap.Logger) *GrandTrunk {
	return &GrandTrunk{
		gatewayBase: newGatewayBase(baseCurrency, client, cache, log),
		BaseURL:     grandTrunkDefaultBaseURL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (g *GrandTrunk) Name() string          { return "grandtrunk" }
func (g *GrandTrunk) HasRequestLimit() bool { return false }

func (g *GrandTrunk) getText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("grandtrunk: create request: %w", err)
	}
	body, err := g.client.DoText(ctx, req)
	if err != nil {
		return "", fmt.Errorf("grandtrunk: %w", err)
	}
	return body, nil
}

func (g *GrandTrunk) GetSupportedCurrencies(ctx context.Context, date time.Time) (map[string]struct{}, error) {
	return g.cachedCurrencies(ctx, "currencies:grandtrunk", func() ([]string, error) {
		body, err := g.getText(ctx, fmt.Sprintf("%s/currencies/%s", g.BaseURL, domain.DayString(date)))
		if err != nil {
			return nil, err
		}
		var currencies []string
		for _, line := range strings.Split(body, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				currencies = append(currencies, line)
			}
		}
		if len(currencies) == 0 {
			return nil, fmt.Errorf("grandtrunk: no supported currencies returned")
		}
		return currencies, nil
	})
}

func (g *GrandTrunk) GetByDate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, bool, error) {
	body, err := g.getText(ctx, fmt.Sprintf("%s/getrate/%s/%s/%s", g.BaseURL, domain.DayString(date), g.baseCurrency, currency))
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	rate, ok := parseRate(strings.TrimSpace(body))
	return rate, ok, nil
}

func (g *GrandTrunk) GetAllByDate(ctx context.Context, date time.Time, currencies []string) (map[string]decimal.Decimal, error) {
	supported, err := g.GetSupportedCurrencies(ctx, date)
	if err != nil {
		return nil, err
	}
	dayRates := make(map[string]decimal.Decimal)
	for _, currency := range currencies {
		if _, ok := supported[currency]; !ok {
			continue
		}
		rate, ok, err := g.GetByDate(ctx, date, currency)
		if err != nil {
			g.log.Warn("grandtrunk rate request failed",
				zap.String("currency", currency), zap.String("date", domain.DayString(date)), zap.Error(err))
			continue
		}
		if ok {
			dayRates[currency] = rate
		}
	}
	return dayRates, nil
}

func (g *GrandTrunk) GetHistorical(ctx context.Context, origin time.Time, currencies []string) (map[time.Time]map[string]decimal.Decimal, error) {
	today := domain.Day(g.now())
	series := make(map[time.Time]map[string]decimal.Decimal)
	for _, currency := range currencies {
		body, err := g.getText(ctx, fmt.Sprintf("%s/getrange/%s/%s/%s/%s",
			g.BaseURL, domain.DayString(origin), domain.DayString(today), g.baseCurrency, currency))
		if err != nil {
			g.log.Warn("grandtrunk range request failed", zap.String("currency", currency), zap.Error(err))
			continue
		}
		for _, record := range strings.Split(body, "\n") {
			record = strings.TrimSpace(record)
			if record == "" {
				continue
			}
			fields := strings.Fields(record)
			if len(fields) != 2 {
				g.log.Error("grandtrunk: malformed range record", zap.String("record", record))
				continue
			}
			day, err := time.Parse("2006-01-02", fields[0])
			if err != nil {
				g.log.Error("grandtrunk: malformed date in range record", zap.String("record", record), zap.Error(err))
				continue
			}
			rate, ok := parseRate(fields[1])
			if !ok {
				continue
			}
			day = domain.Day(day)
			if series[day] == nil {
				series[day] = make(map[string]decimal.Decimal)
			}
			series[day][currency] = rate
		}
	}
	return series, nil
}
