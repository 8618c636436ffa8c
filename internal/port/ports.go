// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
)

// PriceFetcher supplies the current gold and silver prices.
type PriceFetcher interface {
	GetPrices(ctx context.Context) (*domain.MetalPrices, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
