package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Categorical inputs
// ============================================================

// PropertyPurpose is the single reason a property is held. It replaces the
// pair of residence/rental flags the data-entry form used to carry.
type PropertyPurpose string

const (
	PurposePersonalResidence PropertyPurpose = "personalResidence"
	PurposeHeldForRental     PropertyPurpose = "heldForRental"
	PurposeHeldForResale     PropertyPurpose = "heldForResale"
)

// Valid reports whether p is one of the known purposes.
func (p PropertyPurpose) Valid() bool {
	switch p {
	case PurposePersonalResidence, PurposeHeldForRental, PurposeHeldForResale:
		return true
	}
	return false
}

// IrrigationMethod determines the agricultural levy rate.
type IrrigationMethod string

const (
	IrrigationNatural    IrrigationMethod = "natural"
	IrrigationArtificial IrrigationMethod = "artificial"
	IrrigationMixed      IrrigationMethod = "mixed"
)

// Valid reports whether m is one of the known irrigation methods.
func (m IrrigationMethod) Valid() bool {
	switch m {
	case IrrigationNatural, IrrigationArtificial, IrrigationMixed:
		return true
	}
	return false
}

// UnmarshalJSON accepts the legacy "irrigated" spelling as artificial.
// Any other string is kept verbatim so validation can report it.
func (m *IrrigationMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "irrigated") {
		*m = IrrigationArtificial
		return nil
	}
	*m = IrrigationMethod(s)
	return nil
}

// ============================================================
// Wealth snapshot (engine input)
// ============================================================

// Cash is money held in hand or in bank accounts.
type Cash struct {
	Amount        decimal.Decimal `json:"amount"`
	HoldingMonths int             `json:"holdingMonths"`
}

// PreciousMetals holds gold and silver already priced into money.
type PreciousMetals struct {
	GoldValue     decimal.Decimal `json:"goldValue"`
	SilverValue   decimal.Decimal `json:"silverValue"`
	HoldingMonths int             `json:"holdingMonths"`
}

// Investments covers stocks, crypto and any other investment holdings.
type Investments struct {
	Stocks        decimal.Decimal `json:"stocks"`
	Crypto        decimal.Decimal `json:"crypto"`
	Other         decimal.Decimal `json:"other"`
	HoldingMonths int             `json:"holdingMonths"`
}

// Property is real estate. Purpose selects whether its value or its
// rental income is considered, never both.
type Property struct {
	Value               decimal.Decimal `json:"value"`
	Purpose             PropertyPurpose `json:"purpose"`
	MonthlyRentalIncome decimal.Decimal `json:"monthlyRentalIncome"`
	HoldingMonths       int             `json:"holdingMonths"`
}

// BusinessAssets are the current assets of a trading business.
type BusinessAssets struct {
	Inventory     decimal.Decimal `json:"inventory"`
	RawMaterials  decimal.Decimal `json:"rawMaterials"`
	Receivables   decimal.Decimal `json:"receivables"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingMonths int             `json:"holdingMonths"`
}

// Agriculture is harvested produce. It has no holding period.
type Agriculture struct {
	ProduceValue     decimal.Decimal  `json:"produceValue"`
	FarmingExpenses  decimal.Decimal  `json:"farmingExpenses"`
	IrrigationMethod IrrigationMethod `json:"irrigationMethod"`
}

// Liabilities are deducted from gated wealth before the nisab comparison.
type Liabilities struct {
	Debts                decimal.Decimal `json:"debts"`
	TaxesDue             decimal.Decimal `json:"taxesDue"`
	ShortTermObligations decimal.Decimal `json:"shortTermObligations"`
}

// WealthSnapshot is the complete financial position submitted for assessment.
// It is treated as immutable once handed to the engine.
type WealthSnapshot struct {
	Cash           Cash           `json:"cash"`
	PreciousMetals PreciousMetals `json:"preciousMetals"`
	Investments    Investments    `json:"investments"`
	Property       Property       `json:"property"`
	Business       BusinessAssets `json:"business"`
	Agriculture    Agriculture    `json:"agriculture"`
	Liabilities    Liabilities    `json:"liabilities"`
}

// DefaultSnapshot returns the values the data-entry form starts from:
// every holding period at one year, property held for rental and
// artificially irrigated produce.
func DefaultSnapshot() WealthSnapshot {
	return WealthSnapshot{
		Cash:           Cash{HoldingMonths: 12},
		PreciousMetals: PreciousMetals{HoldingMonths: 12},
		Investments:    Investments{HoldingMonths: 12},
		Property:       Property{Purpose: PurposeHeldForRental, HoldingMonths: 12},
		Business:       BusinessAssets{HoldingMonths: 12},
		Agriculture:    Agriculture{IrrigationMethod: IrrigationArtificial},
	}
}

// Money bounds. Every amount entering the service must satisfy CheckMoney:
// at most MaxMoney in magnitude and at most MaxMoneyScale decimal places.
// The exponent is checked before the value so that inputs such as
// "1e2000000000" are rejected without being expanded.
const (
	MaxMoneyScale = 10
	maxMoneyExp   = 15
)

// MaxMoney is the largest accepted amount (10^15).
var MaxMoney = decimal.New(1, maxMoneyExp)

// CheckMoney rejects negative, oversized or over-precise amounts.
func CheckMoney(field string, v decimal.Decimal) error {
	switch {
	case v.Exponent() > maxMoneyExp:
		return &ErrValidation{Field: field, Message: fmt.Sprintf("must not exceed %s", MaxMoney)}
	case v.Exponent() < -MaxMoneyScale:
		return &ErrValidation{Field: field, Message: fmt.Sprintf("must have at most %d decimal places", MaxMoneyScale)}
	case v.IsNegative():
		return &ErrValidation{Field: field, Message: "must not be negative"}
	case v.GreaterThan(MaxMoney):
		return &ErrValidation{Field: field, Message: fmt.Sprintf("must not exceed %s", MaxMoney)}
	}
	return nil
}

// Validate rejects out-of-range amounts, negative holding periods and
// unknown categorical values. An empty purpose or irrigation method is
// accepted and takes the default.
func (s WealthSnapshot) Validate() error {
	money := []struct {
		field string
		v     decimal.Decimal
	}{
		{"cash.amount", s.Cash.Amount},
		{"preciousMetals.goldValue", s.PreciousMetals.GoldValue},
		{"preciousMetals.silverValue", s.PreciousMetals.SilverValue},
		{"investments.stocks", s.Investments.Stocks},
		{"investments.crypto", s.Investments.Crypto},
		{"investments.other", s.Investments.Other},
		{"property.value", s.Property.Value},
		{"property.monthlyRentalIncome", s.Property.MonthlyRentalIncome},
		{"business.inventory", s.Business.Inventory},
		{"business.rawMaterials", s.Business.RawMaterials},
		{"business.receivables", s.Business.Receivables},
		{"business.cash", s.Business.Cash},
		{"agriculture.produceValue", s.Agriculture.ProduceValue},
		{"agriculture.farmingExpenses", s.Agriculture.FarmingExpenses},
		{"liabilities.debts", s.Liabilities.Debts},
		{"liabilities.taxesDue", s.Liabilities.TaxesDue},
		{"liabilities.shortTermObligations", s.Liabilities.ShortTermObligations},
	}
	for _, m := range money {
		if err := CheckMoney(m.field, m.v); err != nil {
			return err
		}
	}

	months := []struct {
		field string
		v     int
	}{
		{"cash.holdingMonths", s.Cash.HoldingMonths},
		{"preciousMetals.holdingMonths", s.PreciousMetals.HoldingMonths},
		{"investments.holdingMonths", s.Investments.HoldingMonths},
		{"property.holdingMonths", s.Property.HoldingMonths},
		{"business.holdingMonths", s.Business.HoldingMonths},
	}
	for _, m := range months {
		if m.v < 0 {
			return &ErrValidation{Field: m.field, Message: "must not be negative"}
		}
	}

	if p := s.Property.Purpose; p != "" && !p.Valid() {
		return &ErrValidation{Field: "property.purpose", Message: fmt.Sprintf("unknown purpose %q", p)}
	}
	if m := s.Agriculture.IrrigationMethod; m != "" && !m.Valid() {
		return &ErrValidation{Field: "agriculture.irrigationMethod", Message: fmt.Sprintf("unknown method %q", m)}
	}
	return nil
}
