package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxOutcome is the per-regime computation result.
//
// TotalTax = max(0, TaxBeforeCess - RebateApplied) + CessAmount + SpecialRateTax,
// and is never negative. SpecialRateTax covers capital gains classes taxed at
// their own fixed rates outside the slab walk.
type TaxOutcome struct {
	Regime         RegimeKind `json:"regime"`
	AssessmentYear string     `json:"assessmentYear"`

	// TaxableIncomeByCategory holds the slab-eligible taxable amount per
	// category. Agriculture income never appears here; it is reported in
	// ExemptAgricultureIncome for transparency.
	TaxableIncomeByCategory map[Category]decimal.Decimal `json:"taxableIncomeByCategory"`
	ExemptAgricultureIncome decimal.Decimal              `json:"exemptAgricultureIncome"`

	GrossTaxableIncome     decimal.Decimal `json:"grossTaxableIncome"`
	TotalDeductionsApplied decimal.Decimal `json:"totalDeductionsApplied"`
	NetTaxableIncome       decimal.Decimal `json:"netTaxableIncome"`

	TaxBeforeCess  decimal.Decimal `json:"taxBeforeCess"`
	RebateApplied  decimal.Decimal `json:"rebateApplied"`
	CessAmount     decimal.Decimal `json:"cessAmount"`
	SpecialRateTax decimal.Decimal `json:"specialRateTax"`
	TotalTax       decimal.Decimal `json:"totalTax"`
}

// Suggestion is one deterministic tax-saving recommendation produced by the
// advice engine. EstimatedSaving is indicative only and never feeds back
// into the computed liability.
type Suggestion struct {
	RuleID          string          `json:"ruleId"`
	Message         string          `json:"message"`
	EstimatedSaving decimal.Decimal `json:"estimatedSaving"`
}

// ComparisonResult pairs the two regime outcomes with the derived
// recommendation. TaxSaving is signed: positive means the new regime is
// cheaper. Ties recommend the old regime.
type ComparisonResult struct {
	OldOutcome TaxOutcome `json:"oldOutcome"`
	NewOutcome TaxOutcome `json:"newOutcome"`

	TaxSaving         decimal.Decimal `json:"taxSaving"`
	RecommendedRegime RegimeKind      `json:"recommendedRegime"`

	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// ComparisonRecord is the persisted form. Exactly one live record exists
// per user; a new computation replaces the previous one.
type ComparisonRecord struct {
	UserID      string           `json:"userId"`
	Result      ComparisonResult `json:"result"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// CategoryRecord is one stored per-category document for a user. Payload is
// the raw JSON body as uploaded; absent fields decode to zero amounts, so a
// record read mid-update degrades to zeros instead of failing.
type CategoryRecord struct {
	UserID    string    `json:"userId"`
	Category  Category  `json:"category"`
	Payload   []byte    `json:"payload"`
	UpdatedAt time.Time `json:"updatedAt"`
}
