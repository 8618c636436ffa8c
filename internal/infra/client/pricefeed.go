package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

const priceFeedService = "price-feed"

// PriceFeedClient fetches gold and silver prices from the market price API.
type PriceFeedClient struct {
	httpClient *http.Client
	baseURL    string
	currency   string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewPriceFeedClient creates a new PriceFeedClient. currency is assumed
// when the feed omits it.
func NewPriceFeedClient(httpClient *http.Client, baseURL, currency string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *PriceFeedClient {
	return &PriceFeedClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		currency:   currency,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetPrices fetches the current quote with retry, circuit breaker, and tracing.
func (c *PriceFeedClient) GetPrices(ctx context.Context) (*domain.MetalPrices, error) {
	ctx, span := tracer.Start(ctx, "PriceFeedClient.GetPrices")
	defer span.End()

	result, err := c.cb.Execute(func() (any, error) {
		var quote domain.MetalPrices
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			q, err := c.fetch(ctx)
			if err != nil {
				return err
			}
			quote = *q
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &quote, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		switch {
		case resilience.IsOpen(err):
			return nil, &domain.ErrCircuitOpen{Service: priceFeedService}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &domain.ErrTimeout{Operation: "fetch metal prices"}
		}
		return nil, &domain.ErrExternalService{Service: priceFeedService, Err: err}
	}

	quote := result.(*domain.MetalPrices)
	span.SetAttributes(
		attribute.String("price.gold_per_gram", quote.GoldPerGram.String()),
		attribute.String("price.currency", quote.Currency),
	)
	return quote, nil
}

func (c *PriceFeedClient) fetch(ctx context.Context) (*domain.MetalPrices, error) {
	url := fmt.Sprintf("%s/v1/prices/metals", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, resilience.Permanent(fmt.Errorf("price API returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var quote domain.MetalPrices
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode price quote: %w", err))
	}
	if err := domain.CheckMoney("goldPerGram", quote.GoldPerGram); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("price API returned unusable quote: %w", err))
	}
	if err := domain.CheckMoney("silverPerGram", quote.SilverPerGram); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("price API returned unusable quote: %w", err))
	}
	if !quote.GoldPerGram.IsPositive() {
		return nil, resilience.Permanent(fmt.Errorf("price API returned non-positive gold price %s", quote.GoldPerGram))
	}
	if quote.Currency == "" {
		quote.Currency = c.currency
	}
	if quote.AsOf.IsZero() {
		quote.AsOf = time.Now().UTC()
	}
	return &quote, nil
}
