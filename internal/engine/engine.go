// Package engine orchestrates one comparison run: aggregate the profile,
// compute both regimes, derive suggestions, persist the single latest
// record, refresh the cache and announce the result on the bus.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/myna/internal/advice"
	"github.com/opensource-finance/myna/internal/compare"
	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/profile"
	"github.com/opensource-finance/myna/internal/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("myna-engine")

// comparisonCacheTTL bounds staleness if a cache invalidation is lost; the
// worker and the write path both refresh it eagerly.
const comparisonCacheTTL = 10 * time.Minute

// Engine exposes the two external comparison operations.
type Engine struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	aggregator *profile.Aggregator
	rulesets   *rules.Registry
	advisor    *advice.Engine

	defaultYear string
}

// New creates an engine. cache, bus and advisor may be nil; the engine then
// runs uncached, silent and without suggestions.
func New(repo domain.Repository, cache domain.Cache, bus domain.EventBus, registry *rules.Registry, advisor *advice.Engine, rulesCfg domain.RulesConfig) *Engine {
	return &Engine{
		repo:        repo,
		cache:       cache,
		bus:         bus,
		aggregator:  profile.NewAggregator(repo),
		rulesets:    registry,
		advisor:     advisor,
		defaultYear: rulesCfg.DefaultAssessmentYear,
	}
}

// GenerateComparison runs the full pipeline for one user and assessment
// year (empty year means the configured default). The computation is
// validated before anything is written, so the store never holds a partial
// result; rerunning with unchanged records produces a structurally equal
// result and the same single-slot overwrite.
func (e *Engine) GenerateComparison(ctx context.Context, userID, year string) (*domain.ComparisonRecord, error) {
	if year == "" {
		year = e.defaultYear
	}

	ctx, span := tracer.Start(ctx, "engine.GenerateComparison")
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("assessment.year", year),
	)
	defer span.End()

	oldRS, newRS, err := e.rulesets.Pair(year)
	if err != nil {
		return nil, err
	}

	prof, err := e.aggregator.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := compare.Compare(prof, oldRS, newRS)
	if err != nil {
		return nil, err
	}

	if e.advisor != nil {
		result.Suggestions = e.advisor.Evaluate(ctx, prof, result, oldRS, newRS)
	}

	rec := &domain.ComparisonRecord{
		UserID:      userID,
		Result:      *result,
		GeneratedAt: time.Now().UTC(),
	}

	if err := e.repo.SaveComparison(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist comparison: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.SetComparison(ctx, userID, rec, comparisonCacheTTL); err != nil {
			slog.Warn("failed to cache comparison", "user_id", userID, "error", err)
		}
	}

	e.publishGenerated(ctx, rec)

	return rec, nil
}

// GetLatestComparison returns the stored comparison, cache first. Returns
// ErrNotFound before the first generation; that is an expected state, not
// an alarm condition.
func (e *Engine) GetLatestComparison(ctx context.Context, userID string) (*domain.ComparisonRecord, error) {
	ctx, span := tracer.Start(ctx, "engine.GetLatestComparison")
	span.SetAttributes(attribute.String("user.id", userID))
	defer span.End()

	if e.cache != nil {
		rec, err := e.cache.GetComparison(ctx, userID)
		if err == nil && rec != nil {
			return rec, nil
		}
		if err != nil {
			slog.Warn("comparison cache read failed", "user_id", userID, "error", err)
		}
	}

	rec, err := e.repo.GetLatestComparison(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load comparison: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.SetComparison(ctx, userID, rec, comparisonCacheTTL); err != nil {
			slog.Warn("failed to cache comparison", "user_id", userID, "error", err)
		}
	}

	return rec, nil
}

// InvalidateComparison drops the cached comparison after a category record
// changes underneath it.
func (e *Engine) InvalidateComparison(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.DeleteComparison(ctx, userID); err != nil {
		slog.Warn("failed to invalidate comparison cache", "user_id", userID, "error", err)
	}
}

func (e *Engine) publishGenerated(ctx context.Context, rec *domain.ComparisonRecord) {
	if e.bus == nil {
		return
	}

	payload, err := json.Marshal(domain.ComparisonGeneratedEvent{
		UserID:            rec.UserID,
		AssessmentYear:    rec.Result.OldOutcome.AssessmentYear,
		RecommendedRegime: rec.Result.RecommendedRegime,
		TaxSaving:         rec.Result.TaxSaving.String(),
	})
	if err != nil {
		return
	}

	if err := e.bus.Publish(ctx, rec.UserID, domain.TopicComparisonGenerated, payload); err != nil {
		slog.Warn("failed to publish comparison event", "user_id", rec.UserID, "error", err)
	}
}
