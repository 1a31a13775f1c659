// Package profile builds the canonical FinancialProfile from a user's
// stored category records.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensource-finance/myna/internal/domain"
)

// Aggregator reads per-category records and normalizes them into one
// immutable FinancialProfile per computation. Read-only.
type Aggregator struct {
	repo domain.Repository
}

// NewAggregator creates an aggregator over a repository.
func NewAggregator(repo domain.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Aggregate fetches every category record for the user and assembles the
// profile. Missing categories default every field to zero; unknown fields
// in a payload are ignored. Only an absent salary record fails, with
// ErrProfileIncomplete, since gross salary anchors both regimes.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) (*domain.FinancialProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	p := &domain.FinancialProfile{UserID: userID}

	salaryFound := false
	for _, category := range domain.AllCategories() {
		rec, err := a.repo.GetCategoryRecord(ctx, userID, category)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s record: %w", category, err)
		}

		var dst any
		switch category {
		case domain.CategorySalary:
			dst = &p.Salary
			salaryFound = true
		case domain.CategoryProperty:
			dst = &p.Property
		case domain.CategoryAgriculture:
			dst = &p.Agriculture
		case domain.CategoryCapitalGains:
			dst = &p.CapitalGains
		case domain.CategoryOtherIncome:
			dst = &p.OtherIncome
		default:
			continue
		}

		if err := json.Unmarshal(rec.Payload, dst); err != nil {
			return nil, fmt.Errorf("%w: %s record payload: %v", domain.ErrInvalidAmount, category, err)
		}
	}

	if !salaryFound {
		return nil, domain.ErrProfileIncomplete
	}

	return p, nil
}
