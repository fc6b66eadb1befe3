package provider_test

import (
	"context"
	"net/http"
	"testing"

	"fxrates-aggregator/internal/infrastructure/provider"

	"github.com/stretchr/testify/require"
)

const currencyLayerOK = `{
  "success": true,
  "quotes": { "USDEUR": 0.883282, "USDCZK": 24.51 }
}`

const currencyLayerQuota = `{
  "success": false,
  "error": { "code": 104, "info": "monthly usage limit reached" }
}`

func TestCurrencyLayer_GetByDate(t *testing.T) {
	var gotURL string
	cl := provider.NewCurrencyLayer("USD", "test-key", clientFor(func(r *http.Request) *http.Response {
		gotURL = r.URL.String()
		return textResponse(currencyLayerOK, 200)
	}), nil, nil)

	rate, ok, err := cl.GetByDate(context.Background(), feb17, "EUR")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.883282", rate.String())
	require.Contains(t, gotURL, "access_key=test-key")
	require.Contains(t, gotURL, "date=2016-02-17")
}

func TestCurrencyLayer_GetAllByDate(t *testing.T) {
	cl := provider.NewCurrencyLayer("USD", "test-key", clientFor(func(*http.Request) *http.Response {
		return textResponse(currencyLayerOK, 200)
	}), nil, nil)

	rates, err := cl.GetAllByDate(context.Background(), feb17, []string{"EUR", "CZK"})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.Equal(t, "24.51", rates["CZK"].String())
}

func TestCurrencyLayer_QuotaExceededTripsLimit(t *testing.T) {
	var calls int
	cl := provider.NewCurrencyLayer("USD", "test-key", clientFor(func(*http.Request) *http.Response {
		calls++
		return textResponse(currencyLayerQuota, 200)
	}), nil, nil)

	_, _, err := cl.GetByDate(context.Background(), feb17, "EUR")
	require.ErrorIs(t, err, provider.ErrRequestLimit)
	require.Equal(t, 1, calls)

	// the tripped flag prevents further vendor calls
	_, _, err = cl.GetByDate(context.Background(), feb17, "EUR")
	require.ErrorIs(t, err, provider.ErrRequestLimit)
	require.Equal(t, 1, calls)

	// only the first-of-month signal clears it
	cl.ResetRequestLimit(false)
	_, _, err = cl.GetByDate(context.Background(), feb17, "EUR")
	require.ErrorIs(t, err, provider.ErrRequestLimit)
	require.Equal(t, 1, calls)

	cl.ResetRequestLimit(true)
	_, _, _ = cl.GetByDate(context.Background(), feb17, "EUR")
	require.Equal(t, 2, calls)
}

func TestCurrencyLayer_GetSupportedCurrencies(t *testing.T) {
	cl := provider.NewCurrencyLayer("USD", "test-key", clientFor(func(*http.Request) *http.Response {
		return textResponse(`{"success": true, "currencies": {"EUR": "Euro", "CZK": "Czech Koruna"}}`, 200)
	}), nil, nil)

	set, err := cl.GetSupportedCurrencies(context.Background(), feb17)
	require.NoError(t, err)
	require.Contains(t, set, "EUR")
	require.Contains(t, set, "CZK")
}
