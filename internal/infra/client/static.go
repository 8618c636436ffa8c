package client

import (
	"context"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
)

// StaticPrices serves a fixed quote from configuration. It is the fallback
// when no feed is configured or the feed is failing.
type StaticPrices struct {
	quote domain.MetalPrices
	now   func() time.Time
}

// NewStaticPrices creates a static price source.
func NewStaticPrices(quote domain.MetalPrices) *StaticPrices {
	return &StaticPrices{quote: quote, now: time.Now}
}

// GetPrices returns the configured quote stamped with the current time.
func (s *StaticPrices) GetPrices(_ context.Context) (*domain.MetalPrices, error) {
	q := s.quote
	q.AsOf = s.now().UTC()
	return &q, nil
}
