// Package worker regenerates comparisons when category records change.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/engine"
)

// Worker listens for record updates on the EventBus and recomputes the
// affected user's comparison asynchronously.
type Worker struct {
	bus    domain.EventBus
	engine *engine.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// UserIDs limits recompute to specific users (empty = all users via
	// the wildcard subscription).
	UserIDs []string
}

// NewWorker creates a new recompute worker.
func NewWorker(bus domain.EventBus, eng *engine.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		engine: eng,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins listening for record updates.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.UserIDs) == 0 {
		return w.startWildcardWorker()
	}

	for _, userID := range cfg.UserIDs {
		if err := w.startUserWorker(userID); err != nil {
			slog.Error("failed to start worker for user",
				"user_id", userID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"user_count", len(cfg.UserIDs),
	)

	return nil
}

// startWildcardWorker subscribes across all users.
func (w *Worker) startWildcardWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.UserWildcard, domain.TopicRecordsUpdated, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("wildcard worker started",
		"topic", domain.TopicRecordsUpdated,
	)
	return nil
}

// startUserWorker subscribes for a specific user.
func (w *Worker) startUserWorker(userID string) error {
	sub, err := w.bus.Subscribe(w.ctx, userID, domain.TopicRecordsUpdated, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("user worker started",
		"user_id", userID,
		"topic", domain.TopicRecordsUpdated,
	)

	return nil
}

// handleMessage recomputes the comparison for the user named in the event.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	start := time.Now()

	var event domain.RecordsUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse records updated event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	userID := event.UserID
	if userID == "" {
		userID = msg.UserID
	}

	slog.Debug("recomputing comparison",
		"user_id", userID,
		"category", event.Category,
		"deleted", event.Deleted,
	)

	// Recompute for the year of the user's current comparison so a record
	// upload does not silently switch a non-default year back to the
	// default. First-time users fall through to the default year.
	year := ""
	if prev, perr := w.engine.GetLatestComparison(ctx, userID); perr == nil {
		year = prev.Result.NewOutcome.AssessmentYear
	}

	rec, err := w.engine.GenerateComparison(ctx, userID, year)
	if err != nil && year != "" && errors.Is(err, domain.ErrRuleSetNotFound) {
		// The year's rule sets were dropped by a reload.
		rec, err = w.engine.GenerateComparison(ctx, userID, "")
	}
	if err != nil {
		// A user without a salary record has nothing to compare yet; the
		// stale cached comparison is still dropped.
		if errors.Is(err, domain.ErrProfileIncomplete) {
			w.engine.InvalidateComparison(ctx, userID)
			slog.Debug("skipping recompute for incomplete profile",
				"user_id", userID,
			)
			return nil
		}
		slog.Error("comparison recompute failed",
			"user_id", userID,
			"error", err,
		)
		return err
	}

	slog.Info("comparison recomputed",
		"user_id", userID,
		"recommended_regime", rec.Result.RecommendedRegime,
		"tax_saving", rec.Result.TaxSaving.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
