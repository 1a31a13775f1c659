package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RegimeKind selects between the two Indian income tax regimes.
type RegimeKind string

const (
	// RegimeOld is the deduction-heavy regime (Chapter VI-A sections,
	// salary exemptions, section 87A rebate up to 5L).
	RegimeOld RegimeKind = "old"

	// RegimeNew is the flat-slab regime introduced by section 115BAC.
	RegimeNew RegimeKind = "new"
)

// Valid reports whether k is a known regime kind.
func (k RegimeKind) Valid() bool {
	return k == RegimeOld || k == RegimeNew
}

// DeductionSection names a Chapter VI-A deduction a rule set may honor.
type DeductionSection string

const (
	Section80C   DeductionSection = "80C"
	Section80CCC DeductionSection = "80CCC"
	Section80D   DeductionSection = "80D"
	Section80E   DeductionSection = "80E"
	Section80G   DeductionSection = "80G"
	Section80TTA DeductionSection = "80TTA"
)

// SalaryExemption names a section 10 salary exemption a rule set may honor.
type SalaryExemption string

const (
	ExemptionHRA             SalaryExemption = "hra"
	ExemptionTravelAllowance SalaryExemption = "travel_allowance"
	ExemptionGratuity        SalaryExemption = "gratuity"
	ExemptionLeaveEncashment SalaryExemption = "leave_encashment"
)

// Slab is one marginal tax band. Income in (Lower, Upper] is taxed at Rate;
// a nil Upper means the band is unbounded. An amount exactly at a boundary
// belongs to the slab the boundary closes.
type Slab struct {
	Lower decimal.Decimal  `json:"lower"`
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Rate  decimal.Decimal  `json:"rate"`
}

// DeductionCap is the statutory maximum for one honored section. A nil Cap
// means the section is honored without a ceiling (e.g. 80E).
type DeductionCap struct {
	Section DeductionSection `json:"section"`
	Cap     *decimal.Decimal `json:"cap,omitempty"`
}

// CapitalGainsClass names an asset class in CapitalGainsRecord.
type CapitalGainsClass string

const (
	GainsShares            CapitalGainsClass = "shares"
	GainsEquityMutualFunds CapitalGainsClass = "equity_mutual_funds"
	GainsRealEstate        CapitalGainsClass = "real_estate"
	GainsGold              CapitalGainsClass = "gold"
	GainsListedBonds       CapitalGainsClass = "listed_bonds"
)

// CapitalGainsRate taxes one asset class at a fixed rate on the portion
// above Exemption, outside the slab computation. Classes without an entry
// are taxed through the slabs.
type CapitalGainsRate struct {
	Class     CapitalGainsClass `json:"class"`
	Rate      decimal.Decimal   `json:"rate"`
	Exemption decimal.Decimal   `json:"exemption"`
}

// RegimeRuleSet is the complete declarative rule table for one regime and
// assessment year. Loaded once at startup (builtin or YAML), validated,
// and never mutated; safe to share across concurrent computations.
type RegimeRuleSet struct {
	Regime         RegimeKind `json:"regime"`
	AssessmentYear string     `json:"assessmentYear"`

	Slabs []Slab `json:"slabs"`

	StandardDeduction decimal.Decimal   `json:"standardDeduction"`
	SalaryExemptions  []SalaryExemption `json:"salaryExemptions"`
	Deductions        []DeductionCap    `json:"deductions"`

	PropertyLoanInterestCap decimal.Decimal `json:"propertyLoanInterestCap"`

	// SavingsInterestExemption caps the savings-interest exemption applied
	// to other income. Honored only when section 80TTA is listed.
	SavingsInterestExemption decimal.Decimal `json:"savingsInterestExemption"`

	CapitalGainsRates []CapitalGainsRate `json:"capitalGainsRates"`

	// Section 87A rebate: full rebate up to RebateCap when net taxable
	// income does not exceed RebateThreshold.
	RebateThreshold decimal.Decimal `json:"rebateThreshold"`
	RebateCap       decimal.Decimal `json:"rebateCap"`

	// Health and education cess applied to tax after rebate.
	CessRate decimal.Decimal `json:"cessRate"`
}

// Key returns the registry key for this rule set, e.g. "old/2024-25".
func (rs *RegimeRuleSet) Key() string {
	return string(rs.Regime) + "/" + rs.AssessmentYear
}

// DeductionCapFor returns the cap for a section and whether the rule set
// honors that section at all.
func (rs *RegimeRuleSet) DeductionCapFor(section DeductionSection) (*decimal.Decimal, bool) {
	for _, d := range rs.Deductions {
		if d.Section == section {
			return d.Cap, true
		}
	}
	return nil, false
}

// HonorsExemption reports whether the rule set honors a salary exemption.
func (rs *RegimeRuleSet) HonorsExemption(e SalaryExemption) bool {
	for _, ex := range rs.SalaryExemptions {
		if ex == e {
			return true
		}
	}
	return false
}

// GainsRateFor returns the special rate for an asset class, if any.
func (rs *RegimeRuleSet) GainsRateFor(class CapitalGainsClass) (CapitalGainsRate, bool) {
	for _, g := range rs.CapitalGainsRates {
		if g.Class == class {
			return g, true
		}
	}
	return CapitalGainsRate{}, false
}

// Validate checks structural soundness: a known regime, a non-empty slab
// table that starts at zero and is contiguous and ascending, rates within
// [0, 1], and non-negative caps and thresholds.
func (rs *RegimeRuleSet) Validate() error {
	if !rs.Regime.Valid() {
		return fmt.Errorf("unknown regime %q", rs.Regime)
	}
	if rs.AssessmentYear == "" {
		return fmt.Errorf("assessment year is required")
	}
	if len(rs.Slabs) == 0 {
		return fmt.Errorf("%s: at least one slab is required", rs.Key())
	}

	one := decimal.NewFromInt(1)
	if !rs.Slabs[0].Lower.IsZero() {
		return fmt.Errorf("%s: first slab must start at zero, got %s", rs.Key(), rs.Slabs[0].Lower)
	}
	for i, s := range rs.Slabs {
		if s.Rate.IsNegative() || s.Rate.GreaterThan(one) {
			return fmt.Errorf("%s: slab %d rate %s outside [0, 1]", rs.Key(), i, s.Rate)
		}
		if s.Upper != nil && !s.Upper.GreaterThan(s.Lower) {
			return fmt.Errorf("%s: slab %d upper %s not above lower %s", rs.Key(), i, s.Upper, s.Lower)
		}
		if i < len(rs.Slabs)-1 {
			if s.Upper == nil {
				return fmt.Errorf("%s: slab %d is unbounded but not last", rs.Key(), i)
			}
			if !rs.Slabs[i+1].Lower.Equal(*s.Upper) {
				return fmt.Errorf("%s: slab %d upper %s does not meet slab %d lower %s",
					rs.Key(), i, s.Upper, i+1, rs.Slabs[i+1].Lower)
			}
		}
	}

	for _, d := range rs.Deductions {
		if d.Cap != nil && d.Cap.IsNegative() {
			return fmt.Errorf("%s: deduction %s cap is negative", rs.Key(), d.Section)
		}
	}
	for _, g := range rs.CapitalGainsRates {
		if g.Rate.IsNegative() || g.Rate.GreaterThan(one) {
			return fmt.Errorf("%s: capital gains rate for %s outside [0, 1]", rs.Key(), g.Class)
		}
		if g.Exemption.IsNegative() {
			return fmt.Errorf("%s: capital gains exemption for %s is negative", rs.Key(), g.Class)
		}
	}
	if rs.CessRate.IsNegative() || rs.CessRate.GreaterThan(one) {
		return fmt.Errorf("%s: cess rate %s outside [0, 1]", rs.Key(), rs.CessRate)
	}
	if rs.StandardDeduction.IsNegative() || rs.PropertyLoanInterestCap.IsNegative() ||
		rs.SavingsInterestExemption.IsNegative() || rs.RebateThreshold.IsNegative() ||
		rs.RebateCap.IsNegative() {
		return fmt.Errorf("%s: negative amount in rule set", rs.Key())
	}
	return nil
}
