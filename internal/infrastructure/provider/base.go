package provider

import (
	"context"
	"errors"
	"sync"

	"fxrates-aggregator/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRequestLimit is returned by quota-bearing gateways once the vendor has
// reported quota exhaustion; callers treat it like any other gateway failure.
var ErrRequestLimit = errors.New("provider request limit reached")

// CurrencyCache stores vendor supported-currency sets. An empty result means
// miss. Implementations are best-effort; gateways fall through to the vendor
// on any cache error.
type CurrencyCache interface {
	GetCurrencies(ctx context.Context, key string) ([]string, error)
	SetCurrencies(ctx context.Context, key string, currencies []string) error
}

// NoopCache disables caching; every supported-currency lookup hits the vendor.
type NoopCache struct{}

func (NoopCache) GetCurrencies(context.Context, string) ([]string, error) { return nil, nil }
func (NoopCache) SetCurrencies(context.Context, string, []string) error   { return nil }

// gatewayBase carries the pieces every vendor gateway shares. The quota flag
// is explicit per-instance state; it is cleared only through
// ResetRequestLimit so gateways never read the clock themselves.
type gatewayBase struct {
	baseCurrency string
	client       *httpx.Client
	cache        CurrencyCache
	log          *zap.Logger

	mu           sync.Mutex
	limitReached bool
}

func newGatewayBase(baseCurrency string, client *httpx.Client, cache CurrencyCache, log *zap.Logger) gatewayBase {
	if client == nil {
		client = httpx.New()
	}
	if cache == nil {
		cache = NoopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return gatewayBase{baseCurrency: baseCurrency, client: client, cache: cache, log: log}
}

func (b *gatewayBase) ResetRequestLimit(firstOfMonth bool) {
	if !firstOfMonth {
		return
	}
	b.mu.Lock()
	b.limitReached = false
	b.mu.Unlock()
}

func (b *gatewayBase) markLimitReached() {
	b.mu.Lock()
	b.limitReached = true
	b.mu.Unlock()
}

func (b *gatewayBase) isLimitReached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limitReached
}

// cachedCurrencies consults the cache before calling fetch and writes the
// fetched set back. Cache failures only cost the round trip.
func (b *gatewayBase) cachedCurrencies(ctx context.Context, key string, fetch func() ([]string, error)) (map[string]struct{}, error) {
	if cached, err := b.cache.GetCurrencies(ctx, key); err == nil && len(cached) > 0 {
		return toSet(cached), nil
	}
	currencies, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := b.cache.SetCurrencies(ctx, key, currencies); err != nil {
		b.log.Warn("caching supported currencies failed", zap.String("key", key), zap.Error(err))
	}
	return toSet(currencies), nil
}

func toSet(currencies []string) map[string]struct{} {
	set := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		set[c] = struct{}{}
	}
	return set
}

func parseRate(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
