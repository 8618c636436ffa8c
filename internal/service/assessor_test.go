package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/cache"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/client"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/observability"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/zakah-bfa-go/internal/port"
	"github.com/boddenberg/zakah-bfa-go/internal/service"
	"github.com/boddenberg/zakah-bfa-go/internal/zakah"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockFeed struct {
	quote *domain.MetalPrices
	err   error
	calls atomic.Int32
}

func (m *mockFeed) GetPrices(_ context.Context) (*domain.MetalPrices, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	q := *m.quote
	return &q, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func staticPrices() *client.StaticPrices {
	return client.NewStaticPrices(domain.MetalPrices{
		GoldPerGram:   dec("60"),
		SilverPerGram: dec("0.8"),
		Currency:      "USD",
	})
}

func newAssessor(feed port.PriceFetcher, metrics *observability.Metrics) *service.Assessor {
	return service.NewAssessor(
		zakah.New(zakah.DefaultRules()),
		feed,
		staticPrices(),
		cache.New[domain.MetalPrices](5*time.Minute, cache.WithoutSweeper()),
		resilience.NewBulkhead(4),
		10,
		metrics,
		zap.NewNop(),
	)
}

func cashSnapshot(amount string, months int) domain.WealthSnapshot {
	s := domain.DefaultSnapshot()
	s.Property.Purpose = domain.PurposePersonalResidence
	s.Cash = domain.Cash{Amount: dec(amount), HoldingMonths: months}
	return s
}

// --- Tests ---

func TestAssess_StaticPricesWithoutFeed(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := newAssessor(nil, metrics)

	result, err := svc.Assess(context.Background(), cashSnapshot("5100", 12), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.PriceSource != domain.PriceSourceStatic {
		t.Errorf("expected static source, got %q", result.PriceSource)
	}
	if !result.Assessment.NisabThreshold.Equal(dec("5100")) {
		t.Errorf("expected nisab 5100, got %s", result.Assessment.NisabThreshold)
	}
	if !result.Assessment.TotalDue.Equal(dec("127.5")) {
		t.Errorf("expected total due 127.5, got %s", result.Assessment.TotalDue)
	}
	if result.ID == "" || len(result.SnapshotDigest) != 64 {
		t.Errorf("expected id and 64-char digest, got %q / %q", result.ID, result.SnapshotDigest)
	}
	if metrics.Snapshot().TotalAssessments != 1 {
		t.Errorf("expected 1 recorded assessment")
	}
}

func TestAssess_UsesFeedThenCache(t *testing.T) {
	feed := &mockFeed{quote: &domain.MetalPrices{GoldPerGram: dec("100"), SilverPerGram: dec("1"), Currency: "USD"}}
	svc := newAssessor(feed, observability.NewMetrics())

	first, err := svc.Assess(context.Background(), cashSnapshot("8500", 12), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.PriceSource != domain.PriceSourceFeed {
		t.Errorf("expected feed source, got %q", first.PriceSource)
	}
	if !first.Assessment.NisabThreshold.Equal(dec("8500")) {
		t.Errorf("expected nisab 8500, got %s", first.Assessment.NisabThreshold)
	}

	second, err := svc.Assess(context.Background(), cashSnapshot("8500", 12), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.PriceSource != domain.PriceSourceCache {
		t.Errorf("expected cache source, got %q", second.PriceSource)
	}
	if feed.calls.Load() != 1 {
		t.Errorf("expected 1 feed call, got %d", feed.calls.Load())
	}
}

func TestAssess_FeedFailureFallsBackToStatic(t *testing.T) {
	feed := &mockFeed{err: &domain.ErrCircuitOpen{Service: "price-feed"}}
	metrics := observability.NewMetrics()
	svc := newAssessor(feed, metrics)

	result, err := svc.Assess(context.Background(), cashSnapshot("1000", 12), nil)
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if result.PriceSource != domain.PriceSourceStatic {
		t.Errorf("expected static source, got %q", result.PriceSource)
	}
	if metrics.Snapshot().StaticFallbacks != 1 {
		t.Errorf("expected one static fallback recorded")
	}
}

func TestAssess_GoldOverride(t *testing.T) {
	feed := &mockFeed{quote: &domain.MetalPrices{GoldPerGram: dec("100")}}
	svc := newAssessor(feed, observability.NewMetrics())

	override := dec("50")
	result, err := svc.Assess(context.Background(), cashSnapshot("4250", 12), &override)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.PriceSource != domain.PriceSourceOverride {
		t.Errorf("expected override source, got %q", result.PriceSource)
	}
	if !result.Assessment.AboveNisab {
		t.Error("expected 4250 to meet a nisab of 85 * 50")
	}
	if feed.calls.Load() != 0 {
		t.Errorf("expected feed not to be called, got %d calls", feed.calls.Load())
	}
}

func TestAssess_RejectsNonPositiveOverride(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	zero := decimal.Zero
	_, err := svc.Assess(context.Background(), cashSnapshot("10", 12), &zero)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAssess_ValidationError(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	s := cashSnapshot("10", 12)
	s.Property.Purpose = "timeshare"

	_, err := svc.Assess(context.Background(), s, nil)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAssess_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newAssessor(nil, observability.NewMetrics())

	if _, err := svc.Assess(ctx, cashSnapshot("10", 12), nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestAssess_SameSnapshotSameDigest(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	a, err := svc.Assess(context.Background(), cashSnapshot("5100.00", 12), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Assess(context.Background(), cashSnapshot("5100", 12), nil)
	if err != nil {
		t.Fatal(err)
	}

	if a.SnapshotDigest != b.SnapshotDigest {
		t.Errorf("expected equal digests, got %s and %s", a.SnapshotDigest, b.SnapshotDigest)
	}
	if a.ID == b.ID {
		t.Error("expected distinct result ids")
	}
}

func TestAssessBatch_KeepsOrder(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	snapshots := []domain.WealthSnapshot{
		cashSnapshot("5100", 12),
		cashSnapshot("5100", 11),
		cashSnapshot("20000", 12),
	}

	results, err := svc.AssessBatch(context.Background(), snapshots, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []string{"127.5", "0", "500"}
	for i, w := range want {
		if !results[i].Assessment.TotalDue.Equal(dec(w)) {
			t.Errorf("result %d: expected %s, got %s", i, w, results[i].Assessment.TotalDue)
		}
	}
}

func TestAssessBatch_TooLarge(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	snapshots := make([]domain.WealthSnapshot, 11)
	_, err := svc.AssessBatch(context.Background(), snapshots, nil)

	var tooLarge *domain.ErrBatchTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if tooLarge.Limit != 10 {
		t.Errorf("expected limit 10, got %d", tooLarge.Limit)
	}
}

func TestAssessBatch_Empty(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	_, err := svc.AssessBatch(context.Background(), nil, nil)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAssessBatch_ValidationNamesIndex(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	bad := cashSnapshot("10", 12)
	bad.Liabilities.Debts = dec("-1")

	_, err := svc.AssessBatch(context.Background(), []domain.WealthSnapshot{cashSnapshot("1", 12), bad}, nil)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Field != "snapshots[1].liabilities.debts" {
		t.Errorf("unexpected field %q", validation.Field)
	}
}

func TestNisab(t *testing.T) {
	svc := newAssessor(nil, observability.NewMetrics())

	quote, err := svc.Nisab(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !quote.NisabThreshold.Equal(dec("5100")) {
		t.Errorf("expected 5100, got %s", quote.NisabThreshold)
	}
	if !quote.NisabGoldGrams.Equal(dec("85")) {
		t.Errorf("expected 85 grams, got %s", quote.NisabGoldGrams)
	}
	if quote.Currency != "USD" {
		t.Errorf("expected USD, got %q", quote.Currency)
	}
}

func TestCheckFeed(t *testing.T) {
	if err := newAssessor(nil, observability.NewMetrics()).CheckFeed(context.Background()); err != nil {
		t.Errorf("expected nil without feed, got %v", err)
	}

	feed := &mockFeed{err: errors.New("down")}
	if err := newAssessor(feed, observability.NewMetrics()).CheckFeed(context.Background()); err == nil {
		t.Error("expected feed error")
	}
}
