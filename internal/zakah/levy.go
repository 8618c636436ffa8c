package zakah

import (
	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// NisabResult is the outcome of comparing net wealth with the threshold.
type NisabResult struct {
	AboveThreshold bool
	StandardLevy   decimal.Decimal
}

// NisabThreshold is the value of NisabGoldGrams at the given gold price.
func (r Rules) NisabThreshold(goldPricePerGram decimal.Decimal) decimal.Decimal {
	return r.NisabGoldGrams.Mul(nonNegative(goldPricePerGram))
}

// EvaluateNisab levies StandardRate on the whole of net wealth when it
// reaches the threshold, and nothing below it. Negative net wealth is
// clamped to zero first.
func (r Rules) EvaluateNisab(netZakatableWealth, nisabThreshold decimal.Decimal) NisabResult {
	net := nonNegative(netZakatableWealth)
	if net.LessThan(nisabThreshold) {
		return NisabResult{StandardLevy: decimal.Zero}
	}
	return NisabResult{
		AboveThreshold: true,
		StandardLevy:   net.Mul(r.StandardRate),
	}
}

// AgricultureResult is the produce levy and how it was derived.
type AgricultureResult struct {
	NetProduce decimal.Decimal
	Rate       decimal.Decimal
	Levy       decimal.Decimal
}

// AgricultureRate looks up the rate for an irrigation method.
func (r Rules) AgricultureRate(method domain.IrrigationMethod) decimal.Decimal {
	if rate, ok := r.AgricultureRates[method]; ok {
		return rate
	}
	return r.DefaultAgricultureRate
}

// AssessAgriculture computes the produce levy. It ignores nisab and has no
// holding period.
func (r Rules) AssessAgriculture(a domain.Agriculture) AgricultureResult {
	net := nonNegative(nonNegative(a.ProduceValue).Sub(nonNegative(a.FarmingExpenses)))
	rate := r.AgricultureRate(a.IrrigationMethod)
	return AgricultureResult{
		NetProduce: net,
		Rate:       rate,
		Levy:       net.Mul(rate),
	}
}

// Aggregate adds the standard and agricultural levies. They are assessed on
// disjoint pools and never offset each other.
func Aggregate(standardLevy, agricultureLevy decimal.Decimal) decimal.Decimal {
	return standardLevy.Add(agricultureLevy)
}
