package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryValues are the zakatable values left after holding-period gating.
type CategoryValues struct {
	Cash           decimal.Decimal `json:"cash"`
	PreciousMetals decimal.Decimal `json:"preciousMetals"`
	Investments    decimal.Decimal `json:"investments"`
	Property       decimal.Decimal `json:"property"`
	Business       decimal.Decimal `json:"business"`
}

// Total sums every category.
func (c CategoryValues) Total() decimal.Decimal {
	return decimal.Sum(c.Cash, c.PreciousMetals, c.Investments, c.Property, c.Business)
}

// ZakahAssessment is derived entirely from a WealthSnapshot and a gold price.
// It carries no identity of its own.
type ZakahAssessment struct {
	Categories         CategoryValues  `json:"categories"`
	PropertyPurpose    PropertyPurpose `json:"propertyPurpose"`
	TotalAssets        decimal.Decimal `json:"totalAssets"`
	TotalLiabilities   decimal.Decimal `json:"totalLiabilities"`
	NetZakatableWealth decimal.Decimal `json:"netZakatableWealth"`
	NisabThreshold     decimal.Decimal `json:"nisabThreshold"`
	AboveNisab         bool            `json:"aboveNisab"`
	StandardLevy       decimal.Decimal `json:"standardLevy"`
	NetProduce         decimal.Decimal `json:"netProduce"`
	AgricultureRate    decimal.Decimal `json:"agricultureRate"`
	AgricultureLevy    decimal.Decimal `json:"agricultureLevy"`
	TotalDue           decimal.Decimal `json:"totalDue"`
}

// ============================================================
// Prices
// ============================================================

// PriceSource names where a price quote came from.
type PriceSource string

const (
	PriceSourceFeed     PriceSource = "feed"
	PriceSourceCache    PriceSource = "cache"
	PriceSourceStatic   PriceSource = "static"
	PriceSourceOverride PriceSource = "override"
)

// MetalPrices is a quote from the market price collaborator.
type MetalPrices struct {
	GoldPerGram   decimal.Decimal `json:"goldPerGram"`
	SilverPerGram decimal.Decimal `json:"silverPerGram"`
	Currency      string          `json:"currency"`
	AsOf          time.Time       `json:"asOf"`
}

// ============================================================
// Service envelopes
// ============================================================

// AssessmentResult wraps an assessment with the context it was computed in.
type AssessmentResult struct {
	ID             string          `json:"id"`
	SnapshotDigest string          `json:"snapshotDigest"`
	Prices         MetalPrices     `json:"prices"`
	PriceSource    PriceSource     `json:"priceSource"`
	Assessment     ZakahAssessment `json:"assessment"`
	AssessedAt     time.Time       `json:"assessedAt"`
}

// NisabQuote is returned by GET /v1/nisab.
type NisabQuote struct {
	NisabThreshold   decimal.Decimal `json:"nisabThreshold"`
	GoldPricePerGram decimal.Decimal `json:"goldPricePerGram"`
	NisabGoldGrams   decimal.Decimal `json:"nisabGoldGrams"`
	Currency         string          `json:"currency"`
	Source           PriceSource     `json:"source"`
	AsOf             time.Time       `json:"asOf"`
}
