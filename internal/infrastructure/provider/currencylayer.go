package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"
	"fxrates-aggregator/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	currencyLayerDefaultBaseURL = "http://api.currencylayer.com"

	// vendor error code for an exhausted monthly quota
	currencyLayerCodeQuotaExceeded = 104
)

// CurrencyLayer is a real-time JSON API with a small monthly request quota on
// the free plan, so it is excluded from reactive historical backfill and
// trips its own limit flag when the vendor reports exhaustion.
type CurrencyLayer struct {
	gatewayBase
	BaseURL string
	APIKey  string
	now     func() time.Time
}

var _ application.ProviderGateway = (*CurrencyLayer)(nil)

type currencyLayerResponse struct {
	Success    bool                       `json:"success"`
	Quotes     map[string]decimal.Decimal `json:"quotes"`
	Currencies map[string]string          `json:"currencies"`
	Error      *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func NewCurrencyLayer(baseCurrency, apiKey string, client *httpx.Client, cache CurrencyCache, log *zap.Logger) *CurrencyLayer {
	return &CurrencyLayer{
		gatewayBase: newGatewayBase(baseCurrency, client, cache, log),
		BaseURL:     currencyLayerDefaultBaseURL,
		APIKey:      apiKey,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (c *CurrencyLayer) Name() string          { return "currencylayer" }
func (c *CurrencyLayer) HasRequestLimit() bool { return true }

func (c *CurrencyLayer) getJSON(ctx context.Context, path string, params url.Values) (*currencyLayerResponse, error) {
	if c.isLimitReached() {
		return nil, ErrRequestLimit
	}
	params.Set("access_key", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("currencylayer: create request: %w", err)
	}
	var body currencyLayerResponse
	if err := c.client.DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("currencylayer: %w", err)
	}
	if !body.Success {
		if body.Error != nil {
			if body.Error.Code == currencyLayerCodeQuotaExceeded {
				c.markLimitReached()
				return nil, fmt.Errorf("currencylayer: %w", ErrRequestLimit)
			}
			return nil, fmt.Errorf("currencylayer: %d %s", body.Error.Code, body.Error.Info)
		}
		return nil, fmt.Errorf("currencylayer: unsuccessful response")
	}
	return &body, nil
}

func (c *CurrencyLayer) GetSupportedCurrencies(ctx context.Context, _ time.Time) (map[string]struct{}, error) {
	return c.cachedCurrencies(ctx, "currencies:currencylayer", func() ([]string, error) {
		body, err := c.getJSON(ctx, "/list", url.Values{})
		if err != nil {
			return nil, err
		}
		currencies := make([]string, 0, len(body.Currencies))
		for code := range body.Currencies {
			currencies = append(currencies, code)
		}
		if len(currencies) == 0 {
			return nil, fmt.Errorf("currencylayer: no supported currencies returned")
		}
		return currencies, nil
	})
}

func (c *CurrencyLayer) GetByDate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, bool, error) {
	body, err := c.getJSON(ctx, "/historical", url.Values{
		"date":       []string{domain.DayString(date)},
		"currencies": []string{currency},
	})
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	rate, ok := body.Quotes[c.baseCurrency+currency]
	return rate, ok, nil
}

func (c *CurrencyLayer) GetAllByDate(ctx context.Context, date time.Time, currencies []string) (map[string]decimal.Decimal, error) {
	body, err := c.getJSON(ctx, "/historical", url.Values{
		"date":       []string{domain.DayString(date)},
		"currencies": []string{strings.Join(currencies, ",")},
	})
	if err != nil {
		return nil, err
	}
	return c.quotesToRates(body.Quotes), nil
}

func (c *CurrencyLayer) GetHistorical(ctx context.Context, origin time.Time, currencies []string) (map[time.Time]map[string]decimal.Decimal, error) {
	today := domain.Day(c.now())
	series := make(map[time.Time]map[string]decimal.Decimal)
	for day := domain.Day(origin); day.Before(today); day = day.AddDate(0, 0, 1) {
		dayRates, err := c.GetAllByDate(ctx, day, currencies)
		if err != nil {
			// quota exhaustion mid-series ends the walk; everything fetched
			// so far is still usable
			return series, fmt.Errorf("historical walk stopped at %s: %w", domain.DayString(day), err)
		}
		if len(dayRates) > 0 {
			series[day] = dayRates
		}
	}
	return series, nil
}

func (c *CurrencyLayer) quotesToRates(quotes map[string]decimal.Decimal) map[string]decimal.Decimal {
	dayRates := make(map[string]decimal.Decimal, len(quotes))
	for pair, rate := range quotes {
		currency := strings.TrimPrefix(pair, c.baseCurrency)
		if currency == pair || currency == "" {
			continue
		}
		dayRates[currency] = rate
	}
	return dayRates
}
