package rules

import (
	"github.com/opensource-finance/myna/internal/domain"
	"github.com/shopspring/decimal"
)

// Builtin rule sets ship the AY 2024-25 (FY 2023-24) tables so a fresh
// install can compare regimes without any configuration. A rule set
// directory overrides these per (regime, year).

func rupees(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func rupeesPtr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// BuiltinRuleSets returns the compiled-in rule sets.
func BuiltinRuleSets() []*domain.RegimeRuleSet {
	return []*domain.RegimeRuleSet{
		oldRegime2024_25(),
		newRegime2024_25(),
	}
}

// oldRegime2024_25 is the deduction-heavy regime for AY 2024-25.
func oldRegime2024_25() *domain.RegimeRuleSet {
	return &domain.RegimeRuleSet{
		Regime:         domain.RegimeOld,
		AssessmentYear: "2024-25",
		Slabs: []domain.Slab{
			{Lower: rupees(0), Upper: rupeesPtr(250000), Rate: rate("0")},
			{Lower: rupees(250000), Upper: rupeesPtr(500000), Rate: rate("0.05")},
			{Lower: rupees(500000), Upper: rupeesPtr(1000000), Rate: rate("0.20")},
			{Lower: rupees(1000000), Upper: nil, Rate: rate("0.30")},
		},
		StandardDeduction: rupees(50000),
		SalaryExemptions: []domain.SalaryExemption{
			domain.ExemptionHRA,
			domain.ExemptionTravelAllowance,
			domain.ExemptionGratuity,
			domain.ExemptionLeaveEncashment,
		},
		Deductions: []domain.DeductionCap{
			{Section: domain.Section80C, Cap: rupeesPtr(150000)},
			{Section: domain.Section80CCC, Cap: rupeesPtr(150000)},
			{Section: domain.Section80D, Cap: rupeesPtr(25000)},
			{Section: domain.Section80E, Cap: nil}, // education loan interest, uncapped
			{Section: domain.Section80G, Cap: nil},
			{Section: domain.Section80TTA, Cap: rupeesPtr(10000)},
		},
		PropertyLoanInterestCap:  rupees(200000),
		SavingsInterestExemption: rupees(10000),
		CapitalGainsRates: []domain.CapitalGainsRate{
			// LTCG on listed equity above 1L at 10% (section 112A).
			{Class: domain.GainsShares, Rate: rate("0.10"), Exemption: rupees(100000)},
			{Class: domain.GainsEquityMutualFunds, Rate: rate("0.10"), Exemption: rupees(100000)},
			{Class: domain.GainsRealEstate, Rate: rate("0.20"), Exemption: rupees(0)},
			{Class: domain.GainsListedBonds, Rate: rate("0.10"), Exemption: rupees(0)},
			// Gold gains are slab-taxed: intentionally no entry.
		},
		RebateThreshold: rupees(500000),
		RebateCap:       rupees(12500),
		CessRate:        rate("0.04"),
	}
}

// newRegime2024_25 is the section 115BAC flat-slab regime for AY 2024-25.
// No Chapter VI-A sections and no salary exemptions, but the standard
// deduction applies from this year on.
func newRegime2024_25() *domain.RegimeRuleSet {
	return &domain.RegimeRuleSet{
		Regime:         domain.RegimeNew,
		AssessmentYear: "2024-25",
		Slabs: []domain.Slab{
			{Lower: rupees(0), Upper: rupeesPtr(300000), Rate: rate("0")},
			{Lower: rupees(300000), Upper: rupeesPtr(600000), Rate: rate("0.05")},
			{Lower: rupees(600000), Upper: rupeesPtr(900000), Rate: rate("0.10")},
			{Lower: rupees(900000), Upper: rupeesPtr(1200000), Rate: rate("0.15")},
			{Lower: rupees(1200000), Upper: rupeesPtr(1500000), Rate: rate("0.20")},
			{Lower: rupees(1500000), Upper: nil, Rate: rate("0.30")},
		},
		StandardDeduction:        rupees(50000),
		SalaryExemptions:         nil,
		Deductions:               nil,
		PropertyLoanInterestCap:  rupees(200000), // let-out property interest stays deductible
		SavingsInterestExemption: rupees(0),
		CapitalGainsRates: []domain.CapitalGainsRate{
			{Class: domain.GainsShares, Rate: rate("0.10"), Exemption: rupees(100000)},
			{Class: domain.GainsEquityMutualFunds, Rate: rate("0.10"), Exemption: rupees(100000)},
			{Class: domain.GainsRealEstate, Rate: rate("0.20"), Exemption: rupees(0)},
			{Class: domain.GainsListedBonds, Rate: rate("0.10"), Exemption: rupees(0)},
		},
		RebateThreshold: rupees(700000),
		RebateCap:       rupees(25000),
		CessRate:        rate("0.04"),
	}
}
