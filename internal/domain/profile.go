// Package domain defines the core interfaces and types for Myna.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category identifies one independently maintained financial record.
// Each user has zero or one record per category.
type Category string

const (
	CategorySalary       Category = "salary"
	CategoryProperty     Category = "property"
	CategoryAgriculture  Category = "agriculture"
	CategoryCapitalGains Category = "capital_gains"
	CategoryOtherIncome  Category = "other_income"
)

// AllCategories returns every record category in aggregation order.
func AllCategories() []Category {
	return []Category{
		CategorySalary,
		CategoryProperty,
		CategoryAgriculture,
		CategoryCapitalGains,
		CategoryOtherIncome,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySalary, CategoryProperty, CategoryAgriculture,
		CategoryCapitalGains, CategoryOtherIncome:
		return true
	}
	return false
}

// SalaryRecord holds the structured fields extracted from a salary
// statement (Form 16). The extraction service is an external collaborator;
// Myna only consumes the structured result. Absent fields unmarshal to zero.
type SalaryRecord struct {
	GrossSalary       decimal.Decimal `json:"grossSalary"`
	HRA               decimal.Decimal `json:"hra"`
	TravelAllowance   decimal.Decimal `json:"travelAllowance"`
	Gratuity          decimal.Decimal `json:"gratuity"`
	LeaveEncashment   decimal.Decimal `json:"leaveEncashment"`
	StandardDeduction decimal.Decimal `json:"standardDeduction"`
	ProfessionalTax   decimal.Decimal `json:"professionalTax"`
	OtherSalaryIncome decimal.Decimal `json:"otherSalaryIncome"`

	// Chapter VI-A deductions as declared by the employee.
	Section80C   decimal.Decimal `json:"section80C"`
	Section80CCC decimal.Decimal `json:"section80CCC"`
	Section80D   decimal.Decimal `json:"section80D"`
	Section80E   decimal.Decimal `json:"section80E"`
	Section80G   decimal.Decimal `json:"section80G"`
	Section80TTA decimal.Decimal `json:"section80TTA"`
}

// PropertyRecord holds income from house property.
type PropertyRecord struct {
	RentReceived    decimal.Decimal `json:"rentReceived"`
	PropertyTaxPaid decimal.Decimal `json:"propertyTaxPaid"`
	LoanInterest    decimal.Decimal `json:"loanInterest"`
}

// AgricultureRecord holds agricultural income. Exempt from tax in both
// regimes but reported for transparency.
type AgricultureRecord struct {
	Earned   decimal.Decimal `json:"earned"`
	Expenses decimal.Decimal `json:"expenses"`
}

// CapitalGainsRecord holds realized gains by asset class.
type CapitalGainsRecord struct {
	Shares            decimal.Decimal `json:"shares"`
	EquityMutualFunds decimal.Decimal `json:"equityMutualFunds"`
	RealEstate        decimal.Decimal `json:"realEstate"`
	Gold              decimal.Decimal `json:"gold"`
	ListedBonds       decimal.Decimal `json:"listedBonds"`
}

// OtherIncomeRecord holds residual income sources.
type OtherIncomeRecord struct {
	SavingsInterest decimal.Decimal `json:"savingsInterest"`
	FDInterest      decimal.Decimal `json:"fdInterest"`
	Dividends       decimal.Decimal `json:"dividends"`
	Winnings        decimal.Decimal `json:"winnings"`
	EPFAccretion    decimal.Decimal `json:"epfAccretion"`
	Misc            decimal.Decimal `json:"misc"`
}

// FinancialProfile is the canonical aggregation of a user's per-category
// records for one comparison run. Built fresh per computation and never
// mutated after construction. Categories the user has not uploaded are
// present with every field zero.
type FinancialProfile struct {
	UserID       string             `json:"userId"`
	Salary       SalaryRecord       `json:"salary"`
	Property     PropertyRecord     `json:"property"`
	Agriculture  AgricultureRecord  `json:"agriculture"`
	CapitalGains CapitalGainsRecord `json:"capitalGains"`
	OtherIncome  OtherIncomeRecord  `json:"otherIncome"`
}

// Validate rejects profiles containing negative amounts before any
// computation runs. The returned error wraps ErrInvalidAmount and names
// the offending field.
func (p *FinancialProfile) Validate() error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"salary.grossSalary", p.Salary.GrossSalary},
		{"salary.hra", p.Salary.HRA},
		{"salary.travelAllowance", p.Salary.TravelAllowance},
		{"salary.gratuity", p.Salary.Gratuity},
		{"salary.leaveEncashment", p.Salary.LeaveEncashment},
		{"salary.standardDeduction", p.Salary.StandardDeduction},
		{"salary.professionalTax", p.Salary.ProfessionalTax},
		{"salary.otherSalaryIncome", p.Salary.OtherSalaryIncome},
		{"salary.section80C", p.Salary.Section80C},
		{"salary.section80CCC", p.Salary.Section80CCC},
		{"salary.section80D", p.Salary.Section80D},
		{"salary.section80E", p.Salary.Section80E},
		{"salary.section80G", p.Salary.Section80G},
		{"salary.section80TTA", p.Salary.Section80TTA},
		{"property.rentReceived", p.Property.RentReceived},
		{"property.propertyTaxPaid", p.Property.PropertyTaxPaid},
		{"property.loanInterest", p.Property.LoanInterest},
		{"agriculture.earned", p.Agriculture.Earned},
		{"agriculture.expenses", p.Agriculture.Expenses},
		{"capitalGains.shares", p.CapitalGains.Shares},
		{"capitalGains.equityMutualFunds", p.CapitalGains.EquityMutualFunds},
		{"capitalGains.realEstate", p.CapitalGains.RealEstate},
		{"capitalGains.gold", p.CapitalGains.Gold},
		{"capitalGains.listedBonds", p.CapitalGains.ListedBonds},
		{"otherIncome.savingsInterest", p.OtherIncome.SavingsInterest},
		{"otherIncome.fdInterest", p.OtherIncome.FDInterest},
		{"otherIncome.dividends", p.OtherIncome.Dividends},
		{"otherIncome.winnings", p.OtherIncome.Winnings},
		{"otherIncome.epfAccretion", p.OtherIncome.EPFAccretion},
		{"otherIncome.misc", p.OtherIncome.Misc},
	}

	for _, f := range fields {
		if f.value.IsNegative() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidAmount, f.name, f.value.String())
		}
	}
	return nil
}

// DeclaredDeduction returns the amount the user declared under a section.
// Unknown sections return zero.
func (p *FinancialProfile) DeclaredDeduction(section DeductionSection) decimal.Decimal {
	switch section {
	case Section80C:
		return p.Salary.Section80C
	case Section80CCC:
		return p.Salary.Section80CCC
	case Section80D:
		return p.Salary.Section80D
	case Section80E:
		return p.Salary.Section80E
	case Section80G:
		return p.Salary.Section80G
	case Section80TTA:
		return p.Salary.Section80TTA
	}
	return decimal.Zero
}
