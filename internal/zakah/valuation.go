package zakah

import (
	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// Gate applies the hawl: value counts only once it has been held for at
// least HawlMonths. Negative values count as zero.
func (r Rules) Gate(value decimal.Decimal, holdingMonths int) decimal.Decimal {
	if holdingMonths < r.HawlMonths {
		return decimal.Zero
	}
	return nonNegative(value)
}

// ValueCash returns the zakatable cash.
func (r Rules) ValueCash(c domain.Cash) decimal.Decimal {
	return r.Gate(c.Amount, c.HoldingMonths)
}

// ValuePreciousMetals returns the zakatable gold and silver value.
func (r Rules) ValuePreciousMetals(m domain.PreciousMetals) decimal.Decimal {
	return r.Gate(nonNegative(m.GoldValue).Add(nonNegative(m.SilverValue)), m.HoldingMonths)
}

// ValueInvestments returns the zakatable investments. Trading and long-term
// holdings are not distinguished.
func (r Rules) ValueInvestments(i domain.Investments) decimal.Decimal {
	total := decimal.Sum(nonNegative(i.Stocks), nonNegative(i.Crypto), nonNegative(i.Other))
	return r.Gate(total, i.HoldingMonths)
}

// ValueProperty returns the zakatable contribution of a property. A personal
// residence contributes nothing, a property held for resale contributes its
// value, and a rental contributes twelve months of rent instead of its value.
func (r Rules) ValueProperty(p domain.Property) decimal.Decimal {
	switch PropertyBasis(p.Purpose) {
	case domain.PurposePersonalResidence:
		return decimal.Zero
	case domain.PurposeHeldForResale:
		return r.Gate(p.Value, p.HoldingMonths)
	default:
		annual := nonNegative(p.MonthlyRentalIncome).Mul(monthsPerYear)
		return r.Gate(annual, p.HoldingMonths)
	}
}

// PropertyBasis resolves the purpose the engine applies. Anything outside the
// closed set is treated as held for rental.
func PropertyBasis(p domain.PropertyPurpose) domain.PropertyPurpose {
	if p.Valid() {
		return p
	}
	return domain.PurposeHeldForRental
}

// ValueBusiness returns the zakatable business assets.
func (r Rules) ValueBusiness(b domain.BusinessAssets) decimal.Decimal {
	total := decimal.Sum(
		nonNegative(b.Inventory),
		nonNegative(b.RawMaterials),
		nonNegative(b.Receivables),
		nonNegative(b.Cash),
	)
	return r.Gate(total, b.HoldingMonths)
}

// ValueCategories gates and values every asset category of the snapshot.
func (r Rules) ValueCategories(s domain.WealthSnapshot) domain.CategoryValues {
	return domain.CategoryValues{
		Cash:           r.ValueCash(s.Cash),
		PreciousMetals: r.ValuePreciousMetals(s.PreciousMetals),
		Investments:    r.ValueInvestments(s.Investments),
		Property:       r.ValueProperty(s.Property),
		Business:       r.ValueBusiness(s.Business),
	}
}

// TotalLiabilities is the unconditional sum of deductible obligations.
func TotalLiabilities(l domain.Liabilities) decimal.Decimal {
	return decimal.Sum(nonNegative(l.Debts), nonNegative(l.TaxesDue), nonNegative(l.ShortTermObligations))
}
