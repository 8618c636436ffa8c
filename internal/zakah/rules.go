// Package zakah is the assessment engine: it turns a wealth snapshot and a
// gold price into the levy owed. Every function here is pure and total; no
// input makes it fail, and nothing is cached between calls.
package zakah

import (
	"fmt"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Rules is the jurisdiction-dependent configuration of the engine.
type Rules struct {
	// HawlMonths is the minimum holding period, inclusive.
	HawlMonths int `json:"hawlMonths"`
	// NisabGoldGrams is the weight of gold whose value forms the threshold.
	NisabGoldGrams decimal.Decimal `json:"nisabGoldGrams"`
	// StandardRate applies to net zakatable wealth at or above nisab.
	StandardRate decimal.Decimal `json:"standardRate"`
	// AgricultureRates maps an irrigation method to its produce rate.
	AgricultureRates map[domain.IrrigationMethod]decimal.Decimal `json:"agricultureRates"`
	// DefaultAgricultureRate is used for a method missing from AgricultureRates.
	DefaultAgricultureRate decimal.Decimal `json:"defaultAgricultureRate"`
}

// DefaultRules returns the canonical rule set: a 12 month hawl, 85 grams of
// gold, 2.5% on wealth and 10/5/7.5% on produce.
func DefaultRules() Rules {
	return Rules{
		HawlMonths:     12,
		NisabGoldGrams: decimal.NewFromInt(85),
		StandardRate:   decimal.RequireFromString("0.025"),
		AgricultureRates: map[domain.IrrigationMethod]decimal.Decimal{
			domain.IrrigationNatural:    decimal.RequireFromString("0.10"),
			domain.IrrigationArtificial: decimal.RequireFromString("0.05"),
			domain.IrrigationMixed:      decimal.RequireFromString("0.075"),
		},
		DefaultAgricultureRate: decimal.RequireFromString("0.05"),
	}
}

// Validate rejects a rule set that cannot describe a levy.
func (r Rules) Validate() error {
	if r.HawlMonths < 0 {
		return fmt.Errorf("hawl months must not be negative, got %d", r.HawlMonths)
	}
	if !r.NisabGoldGrams.IsPositive() {
		return fmt.Errorf("nisab gold grams must be positive, got %s", r.NisabGoldGrams)
	}
	if err := checkRate("standard rate", r.StandardRate); err != nil {
		return err
	}
	for _, m := range []domain.IrrigationMethod{domain.IrrigationNatural, domain.IrrigationArtificial, domain.IrrigationMixed} {
		rate, ok := r.AgricultureRates[m]
		if !ok {
			return fmt.Errorf("missing agriculture rate for %q", m)
		}
		if err := checkRate(fmt.Sprintf("agriculture rate %q", m), rate); err != nil {
			return err
		}
	}
	return checkRate("default agriculture rate", r.DefaultAgricultureRate)
}

func (r Rules) clone() Rules {
	rates := make(map[domain.IrrigationMethod]decimal.Decimal, len(r.AgricultureRates))
	for k, v := range r.AgricultureRates {
		rates[k] = v
	}
	r.AgricultureRates = rates
	return r
}

func checkRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1], got %s", name, rate)
	}
	return nil
}

// nonNegative maps negative money to zero.
func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
