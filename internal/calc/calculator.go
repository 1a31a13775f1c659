// Package calc implements the regime tax calculator: a pure function from
// a financial profile and a regime rule set to a tax outcome. No I/O, no
// clock, exact decimal arithmetic throughout.
package calc

import (
	"fmt"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/shopspring/decimal"
)

// ComputeTax applies one regime rule set to a profile.
//
// Category taxable incomes are computed first: salary after the rule set's
// standard deduction, professional tax and honored exemptions; property
// after municipal tax and the capped loan interest; capital gains split
// into slab-taxed classes and specially-rated classes; other income after
// the savings-interest exemption. Agriculture is always exempt and only
// reported. Slab-eligible income minus capped deductions is walked through
// the slab table, the section 87A rebate and cess are applied, and the
// special-rate gains tax is added last.
//
// Returns ErrInvalidAmount (wrapped) for negative inputs; never mutates
// profile or rs.
func ComputeTax(profile *domain.FinancialProfile, rs *domain.RegimeRuleSet) (*domain.TaxOutcome, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("rule set %s: %w", rs.Key(), err)
	}

	outcome := &domain.TaxOutcome{
		Regime:                  rs.Regime,
		AssessmentYear:          rs.AssessmentYear,
		TaxableIncomeByCategory: make(map[domain.Category]decimal.Decimal, 4),
	}

	salary := salaryTaxable(profile, rs)
	property := propertyTaxable(profile, rs)
	slabGains, specialTax := capitalGains(profile, rs)
	other := otherIncomeTaxable(profile, rs)

	outcome.TaxableIncomeByCategory[domain.CategorySalary] = salary
	outcome.TaxableIncomeByCategory[domain.CategoryProperty] = property
	outcome.TaxableIncomeByCategory[domain.CategoryCapitalGains] = slabGains
	outcome.TaxableIncomeByCategory[domain.CategoryOtherIncome] = other
	outcome.ExemptAgricultureIncome = nonNegative(profile.Agriculture.Earned.Sub(profile.Agriculture.Expenses))

	outcome.GrossTaxableIncome = salary.Add(property).Add(slabGains).Add(other)
	outcome.TotalDeductionsApplied = cappedDeductions(profile, rs)
	outcome.NetTaxableIncome = nonNegative(outcome.GrossTaxableIncome.Sub(outcome.TotalDeductionsApplied))

	outcome.TaxBeforeCess = SlabTax(rs.Slabs, outcome.NetTaxableIncome)

	if outcome.NetTaxableIncome.LessThanOrEqual(rs.RebateThreshold) {
		outcome.RebateApplied = decimal.Min(outcome.TaxBeforeCess, rs.RebateCap)
	} else {
		outcome.RebateApplied = decimal.Zero
	}

	afterRebate := nonNegative(outcome.TaxBeforeCess.Sub(outcome.RebateApplied))

	// Round half-up to the nearest paisa. Decimal.Round rounds half away
	// from zero; amounts here are non-negative so the two coincide.
	outcome.CessAmount = afterRebate.Mul(rs.CessRate).Round(2)
	outcome.SpecialRateTax = specialTax

	outcome.TotalTax = afterRebate.Add(outcome.CessAmount).Add(specialTax)

	return outcome, nil
}

// SlabTax walks the ordered slab table, taxing the portion of income inside
// each (lower, upper] band at that band's rate. Income exactly at a boundary
// belongs to the slab the boundary closes.
func SlabTax(slabs []domain.Slab, income decimal.Decimal) decimal.Decimal {
	var total decimal.Decimal
	for _, slab := range slabs {
		if income.LessThanOrEqual(slab.Lower) {
			break
		}
		top := income
		if slab.Upper != nil {
			top = decimal.Min(income, *slab.Upper)
		}
		portion := top.Sub(slab.Lower)
		if portion.GreaterThan(decimal.Zero) {
			total = total.Add(portion.Mul(slab.Rate))
		}
	}
	return total
}

// MarginalRate returns the slab rate that would apply to the next rupee of
// income. Used by the advice engine to estimate savings; not part of the
// liability computation.
func MarginalRate(rs *domain.RegimeRuleSet, income decimal.Decimal) decimal.Decimal {
	rate := decimal.Zero
	for _, slab := range rs.Slabs {
		if income.LessThan(slab.Lower) {
			break
		}
		rate = slab.Rate
		if slab.Upper != nil && income.LessThan(*slab.Upper) {
			break
		}
	}
	return rate
}

func salaryTaxable(p *domain.FinancialProfile, rs *domain.RegimeRuleSet) decimal.Decimal {
	taxable := p.Salary.GrossSalary.
		Add(p.Salary.OtherSalaryIncome).
		Sub(rs.StandardDeduction).
		Sub(p.Salary.ProfessionalTax)

	exemptions := []struct {
		kind   domain.SalaryExemption
		amount decimal.Decimal
	}{
		{domain.ExemptionHRA, p.Salary.HRA},
		{domain.ExemptionTravelAllowance, p.Salary.TravelAllowance},
		{domain.ExemptionGratuity, p.Salary.Gratuity},
		{domain.ExemptionLeaveEncashment, p.Salary.LeaveEncashment},
	}
	for _, e := range exemptions {
		if rs.HonorsExemption(e.kind) {
			taxable = taxable.Sub(e.amount)
		}
	}

	return nonNegative(taxable)
}

func propertyTaxable(p *domain.FinancialProfile, rs *domain.RegimeRuleSet) decimal.Decimal {
	interest := decimal.Min(p.Property.LoanInterest, rs.PropertyLoanInterestCap)
	return nonNegative(p.Property.RentReceived.Sub(p.Property.PropertyTaxPaid).Sub(interest))
}

// capitalGains splits gains into the slab-taxed total and the tax on
// specially-rated classes. A specially-rated class is taxed at its own rate
// on the portion above its exemption and contributes nothing to the slabs.
func capitalGains(p *domain.FinancialProfile, rs *domain.RegimeRuleSet) (slabTotal, specialTax decimal.Decimal) {
	classes := []struct {
		class  domain.CapitalGainsClass
		amount decimal.Decimal
	}{
		{domain.GainsShares, p.CapitalGains.Shares},
		{domain.GainsEquityMutualFunds, p.CapitalGains.EquityMutualFunds},
		{domain.GainsRealEstate, p.CapitalGains.RealEstate},
		{domain.GainsGold, p.CapitalGains.Gold},
		{domain.GainsListedBonds, p.CapitalGains.ListedBonds},
	}

	for _, c := range classes {
		rule, ok := rs.GainsRateFor(c.class)
		if !ok {
			slabTotal = slabTotal.Add(c.amount)
			continue
		}
		taxableAbove := nonNegative(c.amount.Sub(rule.Exemption))
		specialTax = specialTax.Add(taxableAbove.Mul(rule.Rate))
	}
	return slabTotal, specialTax.Round(2)
}

func otherIncomeTaxable(p *domain.FinancialProfile, rs *domain.RegimeRuleSet) decimal.Decimal {
	total := p.OtherIncome.SavingsInterest.
		Add(p.OtherIncome.FDInterest).
		Add(p.OtherIncome.Dividends).
		Add(p.OtherIncome.Winnings).
		Add(p.OtherIncome.EPFAccretion).
		Add(p.OtherIncome.Misc)

	if _, ok := rs.DeductionCapFor(domain.Section80TTA); ok {
		exempt := decimal.Min(p.OtherIncome.SavingsInterest, rs.SavingsInterestExemption)
		total = total.Sub(exempt)
	}

	return nonNegative(total)
}

// cappedDeductions sums the declared Chapter VI-A amounts, each clamped to
// its statutory cap. Sections the rule set does not list contribute zero
// regardless of the declared amount.
func cappedDeductions(p *domain.FinancialProfile, rs *domain.RegimeRuleSet) decimal.Decimal {
	var total decimal.Decimal
	for _, d := range rs.Deductions {
		declared := p.DeclaredDeduction(d.Section)
		if d.Cap != nil {
			declared = decimal.Min(declared, *d.Cap)
		}
		total = total.Add(declared)
	}
	return total
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
