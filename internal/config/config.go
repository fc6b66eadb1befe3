package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Rates
	BaseCurrency        string
	SupportedCurrencies []string
	// Providers
	Providers           []string
	CurrencyLayerAPIKey string
	ProviderTimeout     time.Duration
	// Updater
	UpdateMode string
	UpdateDate string
	OriginDate string
	// Redis (supported-currency cache)
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const defaultCurrencies = "USD,EUR,GBP,CZK,PLN,CHF,JPY,CAD,AUD,NOK,SEK,DKK,HUF,RON,BGN,HRK,RUB,TRY,BRL,CNY,HKD,IDR,ILS,INR,KRW,MXN,MYR,NZD,PHP,SGD,THB,ZAR"

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                 getEnv("ENV", "local"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		BaseCurrency:        getEnv("BASE_CURRENCY", "USD"),
		SupportedCurrencies: splitCSV(getEnv("SUPPORTED_CURRENCIES", defaultCurrencies)),
		Providers:           splitCSV(getEnv("PROVIDERS", "grandtrunk,currencylayer")),
		CurrencyLayerAPIKey: getEnv("CURRENCY_LAYER_API_KEY", ""),
		ProviderTimeout:     time.Duration(atoiDef(getEnv("PROVIDER_TIMEOUT_MS", "15000"), 15000)) * time.Millisecond,
		UpdateMode:          getEnv("UPDATE_MODE", "daily"),
		UpdateDate:          getEnv("UPDATE_DATE", ""),
		OriginDate:          getEnv("ORIGIN_DATE", "2015-01-01"),
		CacheBackend:        getEnv("CACHE_BACKEND", "redis"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             atoiDef(getEnv("REDIS_DB", "0"), 0),
		CacheTTL:            time.Duration(atoiDef(getEnv("CACHE_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}
