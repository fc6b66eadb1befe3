package provider_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"fxrates-aggregator/internal/infrastructure/httpx"
	"fxrates-aggregator/internal/infrastructure/provider"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func textResponse(body string, code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func clientFor(fn roundTripFunc) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{Transport: fn, Timeout: 2 * time.Second}}
}

var feb17 = time.Date(2016, 2, 17, 0, 0, 0, 0, time.UTC)

func TestGrandTrunk_GetByDate(t *testing.T) {
	var gotURL string
	gt := provider.NewGrandTrunk("USD", clientFor(func(r *http.Request) *http.Response {
		gotURL = r.URL.String()
		return textResponse("0.883282\n", 200)
	}), nil, nil)

	rate, ok, err := gt.GetByDate(context.Background(), feb17, "EUR")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.883282", rate.String())
	require.Contains(t, gotURL, "/getrate/2016-02-17/USD/EUR")
}

func TestGrandTrunk_GetByDate_NotANumber(t *testing.T) {
	gt := provider.NewGrandTrunk("USD", clientFor(func(*http.Request) *http.Response {
		return textResponse("n/a", 200)
	}), nil, nil)

	_, ok, err := gt.GetByDate(context.Background(), feb17, "EUR")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGrandTrunk_GetSupportedCurrencies(t *testing.T) {
	gt := provider.NewGrandTrunk("USD", clientFor(func(*http.Request) *http.Response {
		return textResponse("USD\nEUR\nCZK\n", 200)
	}), nil, nil)

	set, err := gt.GetSupportedCurrencies(context.Background(), feb17)
	require.NoError(t, err)
	require.Len(t, set, 3)
	require.Contains(t, set, "CZK")
}

func TestGrandTrunk_GetAllByDate_SkipsUnsupported(t *testing.T) {
	gt := provider.NewGrandTrunk("USD", clientFor(func(r *http.Request) *http.Response {
		if strings.Contains(r.URL.Path, "/currencies/") {
			return textResponse("EUR\n", 200)
		}
		return textResponse("0.88", 200)
	}), nil, nil)

	rates, err := gt.GetAllByDate(context.Background(), feb17, []string{"EUR", "CZK"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, "0.88", rates["EUR"].String())
}

func TestGrandTrunk_GetHistorical_ParsesRange(t *testing.T) {
	body := "2016-02-15 0.88\n2016-02-16 0.89\nbogus line\n2016-02-17 0.90\n"
	gt := provider.NewGrandTrunk("USD", clientFor(func(*http.Request) *http.Response {
		return textResponse(body, 200)
	}), nil, nil)

	series, err := gt.GetHistorical(context.Background(), feb17.AddDate(0, 0, -2), []string{"EUR"})
	require.NoError(t, err)
	require.Len(t, series, 3)
	require.Equal(t, "0.89", series[feb17.AddDate(0, 0, -1)]["EUR"].String())
}
