// Package compare runs both regime calculators over one profile and derives
// the recommendation.
package compare

import (
	"fmt"

	"github.com/opensource-finance/myna/internal/calc"
	"github.com/opensource-finance/myna/internal/domain"
)

// Compare computes both regimes for the same profile and returns a fresh
// ComparisonResult. Deterministic: the same profile and rule sets always
// produce a structurally equal result.
//
// TaxSaving = old total - new total; positive means the new regime is
// cheaper. Ties recommend the old regime, so an unchanged profile never
// flip-flops between regimes on recomputation.
func Compare(profile *domain.FinancialProfile, oldRS, newRS *domain.RegimeRuleSet) (*domain.ComparisonResult, error) {
	oldOutcome, err := calc.ComputeTax(profile, oldRS)
	if err != nil {
		return nil, fmt.Errorf("old regime computation failed: %w", err)
	}

	newOutcome, err := calc.ComputeTax(profile, newRS)
	if err != nil {
		return nil, fmt.Errorf("new regime computation failed: %w", err)
	}

	saving := oldOutcome.TotalTax.Sub(newOutcome.TotalTax)

	recommended := domain.RegimeOld
	if saving.IsPositive() {
		recommended = domain.RegimeNew
	}

	return &domain.ComparisonResult{
		OldOutcome:        *oldOutcome,
		NewOutcome:        *newOutcome,
		TaxSaving:         saving,
		RecommendedRegime: recommended,
	}, nil
}
