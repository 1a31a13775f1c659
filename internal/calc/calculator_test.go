package calc

import (
	"errors"
	"testing"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/rules"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func builtinSet(t *testing.T, regime domain.RegimeKind) *domain.RegimeRuleSet {
	t.Helper()
	for _, rs := range rules.BuiltinRuleSets() {
		if rs.Regime == regime && rs.AssessmentYear == "2024-25" {
			return rs
		}
	}
	t.Fatalf("no builtin %s rule set for 2024-25", regime)
	return nil
}

func salaryProfile(gross string) *domain.FinancialProfile {
	return &domain.FinancialProfile{
		UserID: "user-001",
		Salary: domain.SalaryRecord{GrossSalary: d(gross)},
	}
}

func TestComputeTaxNewRegime(t *testing.T) {
	rs := builtinSet(t, domain.RegimeNew)

	// 15L gross salary, no deductions: 14.5L after standard deduction,
	// slab tax 1.4L, 4% cess on top.
	outcome, err := ComputeTax(salaryProfile("1500000"), rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	if !outcome.NetTaxableIncome.Equal(d("1450000")) {
		t.Errorf("expected net taxable 1450000, got %s", outcome.NetTaxableIncome)
	}
	if !outcome.TaxBeforeCess.Equal(d("140000")) {
		t.Errorf("expected tax before cess 140000, got %s", outcome.TaxBeforeCess)
	}
	if !outcome.RebateApplied.IsZero() {
		t.Errorf("expected no rebate, got %s", outcome.RebateApplied)
	}
	if !outcome.CessAmount.Equal(d("5600")) {
		t.Errorf("expected cess 5600, got %s", outcome.CessAmount)
	}
	if !outcome.TotalTax.Equal(d("145600")) {
		t.Errorf("expected total tax 145600, got %s", outcome.TotalTax)
	}
}

func TestComputeTaxOldRegime(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	p := salaryProfile("1500000")
	p.Salary.Section80C = d("150000")

	outcome, err := ComputeTax(p, rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	if !outcome.TotalDeductionsApplied.Equal(d("150000")) {
		t.Errorf("expected deductions 150000, got %s", outcome.TotalDeductionsApplied)
	}
	if !outcome.NetTaxableIncome.Equal(d("1300000")) {
		t.Errorf("expected net taxable 1300000, got %s", outcome.NetTaxableIncome)
	}
	if !outcome.TaxBeforeCess.Equal(d("202500")) {
		t.Errorf("expected tax before cess 202500, got %s", outcome.TaxBeforeCess)
	}
	if !outcome.TotalTax.Equal(d("210600")) {
		t.Errorf("expected total tax 210600, got %s", outcome.TotalTax)
	}
}

func TestSlabTax(t *testing.T) {
	rs := builtinSet(t, domain.RegimeNew)

	tests := []struct {
		name   string
		income string
		want   string
	}{
		{"Zero", "0", "0"},
		{"InsideFreeSlab", "250000", "0"},
		{"ExactFreeBoundary", "300000", "0"},
		{"OneRupeeAbove", "300001", "0.05"},
		{"ExactSecondBoundary", "600000", "15000"},
		{"TopSlab", "2000000", "300000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SlabTax(rs.Slabs, d(tt.income))
			if !got.Equal(d(tt.want)) {
				t.Errorf("SlabTax(%s) = %s, want %s", tt.income, got, tt.want)
			}
		})
	}
}

func TestComputeTaxNoDeductionRuleSet(t *testing.T) {
	// A rule set honoring nothing at all: gross flows straight through to
	// net taxable income.
	rs := *builtinSet(t, domain.RegimeNew)
	rs.StandardDeduction = decimal.Zero

	outcome, err := ComputeTax(salaryProfile("1500000"), &rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	if !outcome.NetTaxableIncome.Equal(d("1500000")) {
		t.Errorf("expected net taxable 1500000, got %s", outcome.NetTaxableIncome)
	}
	if !outcome.TotalDeductionsApplied.IsZero() {
		t.Errorf("expected no deductions, got %s", outcome.TotalDeductionsApplied)
	}
	if !outcome.TaxBeforeCess.Equal(d("150000")) {
		t.Errorf("expected tax before cess 150000, got %s", outcome.TaxBeforeCess)
	}
	if !outcome.CessAmount.Equal(d("6000")) {
		t.Errorf("expected cess 6000, got %s", outcome.CessAmount)
	}
	if !outcome.TotalTax.Equal(d("156000")) {
		t.Errorf("expected total tax 156000, got %s", outcome.TotalTax)
	}
}

func TestZeroIncome(t *testing.T) {
	for _, regime := range []domain.RegimeKind{domain.RegimeOld, domain.RegimeNew} {
		t.Run(string(regime), func(t *testing.T) {
			outcome, err := ComputeTax(salaryProfile("0"), builtinSet(t, regime))
			if err != nil {
				t.Fatalf("ComputeTax failed: %v", err)
			}

			if !outcome.NetTaxableIncome.IsZero() {
				t.Errorf("expected zero net taxable, got %s", outcome.NetTaxableIncome)
			}
			if !outcome.TotalTax.IsZero() {
				t.Errorf("expected zero total tax, got %s", outcome.TotalTax)
			}
		})
	}
}

func TestTaxMonotonicity(t *testing.T) {
	// Straddles every builtin slab boundary and both rebate cliffs: more
	// income never means less tax.
	incomes := []string{
		"0", "100000", "250000", "250001", "300000", "300001",
		"500000", "550000", "550001", "600000", "700000",
		"750000", "750001", "900000", "1000000", "1200000",
		"1500000", "1500001", "2500000", "10000000",
	}

	for _, regime := range []domain.RegimeKind{domain.RegimeOld, domain.RegimeNew} {
		t.Run(string(regime), func(t *testing.T) {
			rs := builtinSet(t, regime)
			prev := decimal.Zero

			for _, income := range incomes {
				outcome, err := ComputeTax(salaryProfile(income), rs)
				if err != nil {
					t.Fatalf("ComputeTax(%s) failed: %v", income, err)
				}

				if outcome.TotalTax.LessThan(prev) {
					t.Errorf("total tax decreased at income %s: %s < %s",
						income, outcome.TotalTax, prev)
				}
				prev = outcome.TotalTax

				slabTax := SlabTax(rs.Slabs, outcome.NetTaxableIncome)
				if slabTax.IsNegative() {
					t.Errorf("negative slab tax at income %s: %s", income, slabTax)
				}
			}
		})
	}
}

func TestRebate(t *testing.T) {
	t.Run("NewRegimeFullRebate", func(t *testing.T) {
		rs := builtinSet(t, domain.RegimeNew)

		// 7.5L gross lands exactly on the 7L rebate threshold after the
		// standard deduction.
		outcome, err := ComputeTax(salaryProfile("750000"), rs)
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.TaxBeforeCess.Equal(d("25000")) {
			t.Errorf("expected tax before cess 25000, got %s", outcome.TaxBeforeCess)
		}
		if !outcome.RebateApplied.Equal(d("25000")) {
			t.Errorf("expected rebate 25000, got %s", outcome.RebateApplied)
		}
		if !outcome.TotalTax.IsZero() {
			t.Errorf("expected zero total tax, got %s", outcome.TotalTax)
		}
	})

	t.Run("OldRegimeFullRebate", func(t *testing.T) {
		rs := builtinSet(t, domain.RegimeOld)

		outcome, err := ComputeTax(salaryProfile("550000"), rs)
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.RebateApplied.Equal(d("12500")) {
			t.Errorf("expected rebate 12500, got %s", outcome.RebateApplied)
		}
		if !outcome.TotalTax.IsZero() {
			t.Errorf("expected zero total tax, got %s", outcome.TotalTax)
		}
	})

	t.Run("AboveThresholdNoRebate", func(t *testing.T) {
		rs := builtinSet(t, domain.RegimeNew)

		outcome, err := ComputeTax(salaryProfile("760000"), rs)
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.RebateApplied.IsZero() {
			t.Errorf("expected no rebate above threshold, got %s", outcome.RebateApplied)
		}
	})
}

func TestSalaryExemptions(t *testing.T) {
	p := salaryProfile("1000000")
	p.Salary.HRA = d("200000")

	oldOutcome, err := ComputeTax(p, builtinSet(t, domain.RegimeOld))
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}
	newOutcome, err := ComputeTax(p, builtinSet(t, domain.RegimeNew))
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	// Old regime honors HRA, new regime does not.
	if !oldOutcome.TaxableIncomeByCategory[domain.CategorySalary].Equal(d("750000")) {
		t.Errorf("expected old salary taxable 750000, got %s",
			oldOutcome.TaxableIncomeByCategory[domain.CategorySalary])
	}
	if !newOutcome.TaxableIncomeByCategory[domain.CategorySalary].Equal(d("950000")) {
		t.Errorf("expected new salary taxable 950000, got %s",
			newOutcome.TaxableIncomeByCategory[domain.CategorySalary])
	}
}

func TestDeductionCaps(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	t.Run("Clamped", func(t *testing.T) {
		p := salaryProfile("1200000")
		p.Salary.Section80C = d("200000") // above the 1.5L cap
		p.Salary.Section80D = d("30000")  // above the 25K cap

		outcome, err := ComputeTax(p, rs)
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.TotalDeductionsApplied.Equal(d("175000")) {
			t.Errorf("expected deductions 175000, got %s", outcome.TotalDeductionsApplied)
		}
	})

	t.Run("UncappedSection", func(t *testing.T) {
		p := salaryProfile("1200000")
		p.Salary.Section80E = d("300000") // education loan interest, no ceiling

		outcome, err := ComputeTax(p, rs)
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.TotalDeductionsApplied.Equal(d("300000")) {
			t.Errorf("expected deductions 300000, got %s", outcome.TotalDeductionsApplied)
		}
	})

	t.Run("UnhonoredSectionIgnored", func(t *testing.T) {
		p := salaryProfile("1200000")
		p.Salary.Section80C = d("150000")

		outcome, err := ComputeTax(p, builtinSet(t, domain.RegimeNew))
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}

		if !outcome.TotalDeductionsApplied.IsZero() {
			t.Errorf("new regime should apply no deductions, got %s", outcome.TotalDeductionsApplied)
		}
	})
}

func TestAgricultureExempt(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	p := salaryProfile("600000")
	p.Agriculture = domain.AgricultureRecord{
		Earned:   d("500000"),
		Expenses: d("100000"),
	}

	outcome, err := ComputeTax(p, rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	if !outcome.ExemptAgricultureIncome.Equal(d("400000")) {
		t.Errorf("expected exempt agriculture 400000, got %s", outcome.ExemptAgricultureIncome)
	}
	if !outcome.GrossTaxableIncome.Equal(d("550000")) {
		t.Errorf("agriculture leaked into gross taxable: %s", outcome.GrossTaxableIncome)
	}
	if _, ok := outcome.TaxableIncomeByCategory[domain.CategoryAgriculture]; ok {
		t.Error("agriculture should not appear in taxable categories")
	}
}

func TestPropertyInterestCap(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	p := &domain.FinancialProfile{
		UserID: "user-001",
		Property: domain.PropertyRecord{
			RentReceived:    d("300000"),
			PropertyTaxPaid: d("20000"),
			LoanInterest:    d("250000"), // above the 2L cap
		},
	}

	outcome, err := ComputeTax(p, rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	if !outcome.TaxableIncomeByCategory[domain.CategoryProperty].Equal(d("80000")) {
		t.Errorf("expected property taxable 80000, got %s",
			outcome.TaxableIncomeByCategory[domain.CategoryProperty])
	}
}

func TestCapitalGains(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	p := &domain.FinancialProfile{
		UserID: "user-001",
		CapitalGains: domain.CapitalGainsRecord{
			Shares: d("150000"),
			Gold:   d("50000"),
		},
	}

	outcome, err := ComputeTax(p, rs)
	if err != nil {
		t.Fatalf("ComputeTax failed: %v", err)
	}

	// Shares: 10% on the 50K above the 1L exemption. Gold has no special
	// rate and falls through to the slabs.
	if !outcome.SpecialRateTax.Equal(d("5000")) {
		t.Errorf("expected special rate tax 5000, got %s", outcome.SpecialRateTax)
	}
	if !outcome.TaxableIncomeByCategory[domain.CategoryCapitalGains].Equal(d("50000")) {
		t.Errorf("expected slab-taxed gains 50000, got %s",
			outcome.TaxableIncomeByCategory[domain.CategoryCapitalGains])
	}
}

func TestSavingsInterestExemption(t *testing.T) {
	p := &domain.FinancialProfile{
		UserID: "user-001",
		OtherIncome: domain.OtherIncomeRecord{
			SavingsInterest: d("15000"),
			FDInterest:      d("40000"),
		},
	}

	t.Run("OldRegimeExempts", func(t *testing.T) {
		outcome, err := ComputeTax(p, builtinSet(t, domain.RegimeOld))
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}
		if !outcome.TaxableIncomeByCategory[domain.CategoryOtherIncome].Equal(d("45000")) {
			t.Errorf("expected other income 45000, got %s",
				outcome.TaxableIncomeByCategory[domain.CategoryOtherIncome])
		}
	})

	t.Run("NewRegimeDoesNot", func(t *testing.T) {
		outcome, err := ComputeTax(p, builtinSet(t, domain.RegimeNew))
		if err != nil {
			t.Fatalf("ComputeTax failed: %v", err)
		}
		if !outcome.TaxableIncomeByCategory[domain.CategoryOtherIncome].Equal(d("55000")) {
			t.Errorf("expected other income 55000, got %s",
				outcome.TaxableIncomeByCategory[domain.CategoryOtherIncome])
		}
	})
}

func TestNegativeAmountRejected(t *testing.T) {
	rs := builtinSet(t, domain.RegimeNew)

	p := salaryProfile("900000")
	p.Salary.HRA = d("-1")

	_, err := ComputeTax(p, rs)
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMarginalRate(t *testing.T) {
	rs := builtinSet(t, domain.RegimeOld)

	tests := []struct {
		income string
		want   string
	}{
		{"0", "0"},
		{"200000", "0"},
		{"300000", "0.05"},
		{"750000", "0.20"},
		{"1000000", "0.30"},
		{"5000000", "0.30"},
	}

	for _, tt := range tests {
		got := MarginalRate(rs, d(tt.income))
		if !got.Equal(d(tt.want)) {
			t.Errorf("MarginalRate(%s) = %s, want %s", tt.income, got, tt.want)
		}
	}
}
