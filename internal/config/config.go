package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/zakah"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Price feed. An empty URL means the static prices below are always used.
	PriceFeedURL       string          `env:"PRICE_FEED_URL"`
	GoldPricePerGram   decimal.Decimal `env:"GOLD_PRICE_PER_GRAM" envDefault:"60"`
	SilverPricePerGram decimal.Decimal `env:"SILVER_PRICE_PER_GRAM" envDefault:"0.8"`
	PriceCurrency      string          `env:"PRICE_CURRENCY" envDefault:"USD"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"8"`

	// Cache
	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL" envDefault:"5m"`

	// Assessment rules
	HawlMonths         int             `env:"HAWL_MONTHS" envDefault:"12"`
	NisabGoldGrams     decimal.Decimal `env:"NISAB_GOLD_GRAMS" envDefault:"85"`
	StandardRate       decimal.Decimal `env:"STANDARD_RATE" envDefault:"0.025"`
	AgriRateNatural    decimal.Decimal `env:"AGRI_RATE_NATURAL" envDefault:"0.10"`
	AgriRateArtificial decimal.Decimal `env:"AGRI_RATE_ARTIFICIAL" envDefault:"0.05"`
	AgriRateMixed      decimal.Decimal `env:"AGRI_RATE_MIXED" envDefault:"0.075"`
	AgriRateDefault    decimal.Decimal `env:"AGRI_RATE_DEFAULT" envDefault:"0.05"`
	MaxBatchSize       int             `env:"MAX_BATCH_SIZE" envDefault:"50"`

	// Observability. An empty endpoint disables trace export.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Auth. An empty secret leaves /v1 open.
	JWTSecret string `env:"API_JWT_SECRET"`
}

// Load reads configuration from environment variables with defaults and
// checks that the resulting rule set is usable.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Rules().Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment rules: %w", err)
	}
	if err := domain.CheckMoney("GOLD_PRICE_PER_GRAM", cfg.GoldPricePerGram); err != nil {
		return nil, err
	}
	if !cfg.GoldPricePerGram.IsPositive() {
		return nil, fmt.Errorf("GOLD_PRICE_PER_GRAM must be positive, got %s", cfg.GoldPricePerGram)
	}
	if err := domain.CheckMoney("SILVER_PRICE_PER_GRAM", cfg.SilverPricePerGram); err != nil {
		return nil, err
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", cfg.MaxBatchSize)
	}
	if cfg.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", cfg.MaxConcurrency)
	}
	return cfg, nil
}

// Rules builds the engine rule set from the configured constants.
func (c *Config) Rules() zakah.Rules {
	return zakah.Rules{
		HawlMonths:     c.HawlMonths,
		NisabGoldGrams: c.NisabGoldGrams,
		StandardRate:   c.StandardRate,
		AgricultureRates: map[domain.IrrigationMethod]decimal.Decimal{
			domain.IrrigationNatural:    c.AgriRateNatural,
			domain.IrrigationArtificial: c.AgriRateArtificial,
			domain.IrrigationMixed:      c.AgriRateMixed,
		},
		DefaultAgricultureRate: c.AgriRateDefault,
	}
}

// StaticPrices is the quote used when no feed is configured or the feed fails.
func (c *Config) StaticPrices() domain.MetalPrices {
	return domain.MetalPrices{
		GoldPerGram:   c.GoldPricePerGram,
		SilverPerGram: c.SilverPricePerGram,
		Currency:      c.PriceCurrency,
	}
}

func parseEnv(target any) error {
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
				return decimal.NewFromString(v)
			},
		},
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
