package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/observability"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/zakah-bfa-go/internal/port"
	"github.com/boddenberg/zakah-bfa-go/internal/zakah"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/assessor")

const pricesCacheKey = "metal-prices"

// Assessor resolves market prices and runs the assessment engine.
type Assessor struct {
	engine   *zakah.Engine
	feed     port.PriceFetcher
	fallback port.PriceFetcher
	cache    port.Cache[domain.MetalPrices]
	bulkhead *resilience.Bulkhead
	maxBatch int
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssessor creates the assessment service with all dependencies injected.
// feed may be nil, in which case fallback prices are always used.
func NewAssessor(
	engine *zakah.Engine,
	feed port.PriceFetcher,
	fallback port.PriceFetcher,
	cache port.Cache[domain.MetalPrices],
	bulkhead *resilience.Bulkhead,
	maxBatch int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Assessor {
	return &Assessor{
		engine:   engine,
		feed:     feed,
		fallback: fallback,
		cache:    cache,
		bulkhead: bulkhead,
		maxBatch: maxBatch,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Rules returns the rule set the engine applies.
func (a *Assessor) Rules() zakah.Rules {
	return a.engine.Rules()
}

// HasFeed reports whether a live price feed is configured.
func (a *Assessor) HasFeed() bool {
	return a.feed != nil
}

// Prices returns the current quote: cached if fresh, otherwise from the feed,
// otherwise the configured fallback. A failing feed is logged, not returned.
func (a *Assessor) Prices(ctx context.Context) (*domain.MetalPrices, domain.PriceSource, error) {
	ctx, span := tracer.Start(ctx, "Assessor.Prices")
	defer span.End()

	if cached, ok := a.cache.Get(pricesCacheKey); ok {
		a.metrics.IncrCacheHit("prices")
		a.metrics.IncrPriceSource(domain.PriceSourceCache)
		span.SetAttributes(attribute.String("price.source", string(domain.PriceSourceCache)))
		return &cached, domain.PriceSourceCache, nil
	}
	a.metrics.IncrCacheMiss("prices")

	if a.feed != nil {
		start := time.Now()
		quote, err := a.feed.GetPrices(ctx)
		a.metrics.RecordDuration("price_feed", time.Since(start))
		if err == nil {
			a.cache.Set(pricesCacheKey, *quote)
			a.metrics.IncrPriceSource(domain.PriceSourceFeed)
			span.SetAttributes(attribute.String("price.source", string(domain.PriceSourceFeed)))
			return quote, domain.PriceSourceFeed, nil
		}
		a.metrics.IncrExternalError("price_feed")
		a.logger.Warn("price feed unavailable, using static prices", zap.Error(err))
	}

	quote, err := a.fallback.GetPrices(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fallback prices: %w", err)
	}
	a.metrics.IncrPriceSource(domain.PriceSourceStatic)
	span.SetAttributes(attribute.String("price.source", string(domain.PriceSourceStatic)))
	return quote, domain.PriceSourceStatic, nil
}

// resolvePrices applies an explicit gold price over the price sources.
func (a *Assessor) resolvePrices(ctx context.Context, goldOverride *decimal.Decimal) (*domain.MetalPrices, domain.PriceSource, error) {
	if goldOverride == nil {
		return a.Prices(ctx)
	}
	if err := domain.CheckMoney("goldPricePerGram", *goldOverride); err != nil {
		return nil, "", err
	}
	if !goldOverride.IsPositive() {
		return nil, "", &domain.ErrValidation{Field: "goldPricePerGram", Message: "must be positive"}
	}

	base, err := a.fallback.GetPrices(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fallback prices: %w", err)
	}
	quote := *base
	quote.GoldPerGram = *goldOverride
	a.metrics.IncrPriceSource(domain.PriceSourceOverride)
	return &quote, domain.PriceSourceOverride, nil
}

// Assess validates the snapshot and computes its assessment. goldOverride,
// when set, replaces the market gold price.
func (a *Assessor) Assess(ctx context.Context, snapshot domain.WealthSnapshot, goldOverride *decimal.Decimal) (*domain.AssessmentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Assessor.Assess")
	defer span.End()

	start := time.Now()
	defer func() {
		a.metrics.RecordDuration("assess", time.Since(start))
	}()

	if err := snapshot.Validate(); err != nil {
		a.metrics.IncrRequest("error")
		return nil, err
	}

	prices, source, err := a.resolvePrices(ctx, goldOverride)
	if err != nil {
		a.metrics.IncrRequest("error")
		return nil, err
	}

	result, err := a.assess(snapshot, *prices, source)
	if err != nil {
		a.metrics.IncrRequest("error")
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("zakah.above_nisab", result.Assessment.AboveNisab),
		attribute.String("price.source", string(source)),
	)
	a.metrics.IncrRequest("success")
	return result, nil
}

// AssessBatch assesses several snapshots against a single price quote.
// Results keep the order of the input.
func (a *Assessor) AssessBatch(ctx context.Context, snapshots []domain.WealthSnapshot, goldOverride *decimal.Decimal) ([]domain.AssessmentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Assessor.AssessBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(snapshots)))

	start := time.Now()
	defer func() {
		a.metrics.RecordDuration("assess_batch", time.Since(start))
	}()

	if len(snapshots) == 0 {
		a.metrics.IncrRequest("error")
		return nil, &domain.ErrValidation{Field: "snapshots", Message: "must not be empty"}
	}
	if len(snapshots) > a.maxBatch {
		a.metrics.IncrRequest("error")
		return nil, &domain.ErrBatchTooLarge{Size: len(snapshots), Limit: a.maxBatch}
	}
	for i, s := range snapshots {
		if err := s.Validate(); err != nil {
			a.metrics.IncrRequest("error")
			var v *domain.ErrValidation
			if errors.As(err, &v) {
				return nil, &domain.ErrValidation{Field: fmt.Sprintf("snapshots[%d].%s", i, v.Field), Message: v.Message}
			}
			return nil, err
		}
	}

	prices, source, err := a.resolvePrices(ctx, goldOverride)
	if err != nil {
		a.metrics.IncrRequest("error")
		return nil, err
	}

	results := make([]domain.AssessmentResult, len(snapshots))
	g, gCtx := errgroup.WithContext(ctx)

	for i, s := range snapshots {
		i, s := i, s
		g.Go(func() error {
			if err := a.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer a.bulkhead.Release()

			r, err := a.assess(s, *prices, source)
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", i, err)
			}
			results[i] = *r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.metrics.IncrRequest("error")
		return nil, err
	}
	a.metrics.IncrRequest("success")
	return results, nil
}

// Nisab reports the current threshold and the price it was derived from.
func (a *Assessor) Nisab(ctx context.Context) (*domain.NisabQuote, error) {
	ctx, span := tracer.Start(ctx, "Assessor.Nisab")
	defer span.End()

	prices, source, err := a.Prices(ctx)
	if err != nil {
		return nil, err
	}

	rules := a.engine.Rules()
	return &domain.NisabQuote{
		NisabThreshold:   rules.NisabThreshold(prices.GoldPerGram),
		GoldPricePerGram: prices.GoldPerGram,
		NisabGoldGrams:   rules.NisabGoldGrams,
		Currency:         prices.Currency,
		Source:           source,
		AsOf:             prices.AsOf,
	}, nil
}

// CheckFeed calls the price feed directly, bypassing the cache. It is used
// by the health endpoint.
func (a *Assessor) CheckFeed(ctx context.Context) error {
	if a.feed == nil {
		return nil
	}
	_, err := a.feed.GetPrices(ctx)
	return err
}

func (a *Assessor) assess(snapshot domain.WealthSnapshot, prices domain.MetalPrices, source domain.PriceSource) (*domain.AssessmentResult, error) {
	digest, err := SnapshotDigest(snapshot)
	if err != nil {
		return nil, err
	}

	assessment := a.engine.Assess(snapshot, prices.GoldPerGram)
	a.metrics.RecordAssessment(assessment)

	a.logger.Debug("assessment computed",
		zap.String("snapshot_digest", digest),
		zap.Bool("above_nisab", assessment.AboveNisab),
		zap.String("total_due", assessment.TotalDue.String()),
	)

	return &domain.AssessmentResult{
		ID:             uuid.NewString(),
		SnapshotDigest: digest,
		Prices:         prices,
		PriceSource:    source,
		Assessment:     assessment,
		AssessedAt:     a.now().UTC(),
	}, nil
}
