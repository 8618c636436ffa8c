package zakah

import (
	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Engine assesses snapshots against a fixed rule set. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	rules Rules
}

// New creates an engine. The rules are copied, so later changes to the
// caller's map do not affect the engine.
func New(rules Rules) *Engine {
	return &Engine{rules: rules.clone()}
}

// Rules returns a copy of the engine's rule set.
func (e *Engine) Rules() Rules {
	return e.rules.clone()
}

// Assess computes the full assessment of s at the given gold price.
func (e *Engine) Assess(s domain.WealthSnapshot, goldPricePerGram decimal.Decimal) domain.ZakahAssessment {
	r := e.rules

	categories := r.ValueCategories(s)
	assets := categories.Total()
	liabilities := TotalLiabilities(s.Liabilities)
	net := nonNegative(assets.Sub(liabilities))

	threshold := r.NisabThreshold(goldPricePerGram)
	nisab := r.EvaluateNisab(net, threshold)
	agri := r.AssessAgriculture(s.Agriculture)

	return domain.ZakahAssessment{
		Categories:         categories,
		PropertyPurpose:    PropertyBasis(s.Property.Purpose),
		TotalAssets:        assets,
		TotalLiabilities:   liabilities,
		NetZakatableWealth: net,
		NisabThreshold:     threshold,
		AboveNisab:         nisab.AboveThreshold,
		StandardLevy:       nisab.StandardLevy,
		NetProduce:         agri.NetProduce,
		AgricultureRate:    agri.Rate,
		AgricultureLevy:    agri.Levy,
		TotalDue:           Aggregate(nisab.StandardLevy, agri.Levy),
	}
}
