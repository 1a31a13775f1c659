package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/engine"
	"github.com/opensource-finance/myna/internal/rules"
)

// maxRecordBody caps uploaded category record bodies.
const maxRecordBody = 1 << 20 // 1MB

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *engine.Engine
	registry *rules.Registry
	rulesCfg domain.RulesConfig
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, registry *rules.Registry, rulesCfg domain.RulesConfig, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   eng,
		registry: registry,
		rulesCfg: rulesCfg,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// RecordResponse is the response for record reads and writes.
type RecordResponse struct {
	UserID    string          `json:"userId"`
	Category  domain.Category `json:"category"`
	Record    json.RawMessage `json:"record"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// UpsertRecord handles PUT /v1/records/{category}. The body is the
// structured per-category document; a second upload replaces the first.
func (h *Handler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)

	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown record category: " + string(category),
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "request body is required",
		})
		return
	}

	if err := validateRecordPayload(category, body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveCategoryRecord(ctx, userID, category, body); err != nil {
		slog.Error("failed to save category record",
			"user_id", userID,
			"category", category,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save record",
		})
		return
	}

	h.recordsChanged(ctx, userID, category, false)

	writeJSON(w, http.StatusOK, RecordResponse{
		UserID:    userID,
		Category:  category,
		Record:    body,
		UpdatedAt: time.Now().UTC(),
	})
}

// ListRecords handles GET /v1/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)

	records, err := h.repo.ListCategoryRecords(ctx, userID)
	if err != nil {
		slog.Error("failed to list category records",
			"user_id", userID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list records",
		})
		return
	}

	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordResponse{
			UserID:    rec.UserID,
			Category:  rec.Category,
			Record:    rec.Payload,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": out,
		"count":   len(out),
	})
}

// GetRecord handles GET /v1/records/{category}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)

	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown record category: " + string(category),
		})
		return
	}

	rec, err := h.repo.GetCategoryRecord(ctx, userID, category)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "record not found",
			})
			return
		}
		slog.Error("failed to get category record",
			"user_id", userID,
			"category", category,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get record",
		})
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{
		UserID:    rec.UserID,
		Category:  rec.Category,
		Record:    rec.Payload,
		UpdatedAt: rec.UpdatedAt,
	})
}

// DeleteRecord handles DELETE /v1/records/{category}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)

	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown record category: " + string(category),
		})
		return
	}

	if err := h.repo.DeleteCategoryRecord(ctx, userID, category); err != nil {
		slog.Error("failed to delete category record",
			"user_id", userID,
			"category", category,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete record",
		})
		return
	}

	h.recordsChanged(ctx, userID, category, true)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
	})
}

// recordsChanged drops the stale cached comparison and announces the
// change so the recompute worker picks it up.
func (h *Handler) recordsChanged(ctx context.Context, userID string, category domain.Category, deleted bool) {
	if h.engine != nil {
		h.engine.InvalidateComparison(ctx, userID)
	}

	if h.bus == nil {
		return
	}
	event := domain.RecordsUpdatedEvent{
		UserID:   userID,
		Category: category,
		Deleted:  deleted,
	}
	payload, _ := json.Marshal(event)
	if err := h.bus.Publish(ctx, userID, domain.TopicRecordsUpdated, payload); err != nil {
		slog.Warn("failed to publish records updated event",
			"user_id", userID,
			"category", category,
			"error", err,
		)
	}
}

// GenerateComparison handles POST /v1/comparisons. The optional ?year=
// query names the assessment year; empty means the configured default.
func (h *Handler) GenerateComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	year := r.URL.Query().Get("year")

	rec, err := h.engine.GenerateComparison(ctx, userID, year)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileIncomplete):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "profile incomplete: a salary record is required",
			})
		case errors.Is(err, domain.ErrInvalidAmount):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, domain.ErrRuleSetNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			slog.Error("comparison generation failed",
				"user_id", userID,
				"year", year,
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "comparison generation failed",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetLatestComparison handles GET /v1/comparisons/latest.
func (h *Handler) GetLatestComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)

	rec, err := h.engine.GetLatestComparison(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no comparison generated yet",
			})
			return
		}
		slog.Error("failed to get latest comparison",
			"user_id", userID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get comparison",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListRuleSets handles GET /v1/rulesets.
func (h *Handler) ListRuleSets(w http.ResponseWriter, r *http.Request) {
	keys := h.registry.Keys()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ruleSets":    keys,
		"count":       len(keys),
		"defaultYear": h.rulesCfg.DefaultAssessmentYear,
	})
}

// GetRuleSet handles GET /v1/rulesets/{regime}/{year}.
func (h *Handler) GetRuleSet(w http.ResponseWriter, r *http.Request) {
	regime := domain.RegimeKind(chi.URLParam(r, "regime"))
	year := chi.URLParam(r, "year")

	rs, err := h.registry.Get(regime, year)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, rs)
}

// ReloadRuleSets handles POST /v1/rulesets/reload. Builtins plus the
// configured override directory are re-read and swapped in atomically; a
// bad file leaves the running tables untouched.
func (h *Handler) ReloadRuleSets(w http.ResponseWriter, r *http.Request) {
	fresh, err := rules.Load(h.rulesCfg)
	if err != nil {
		slog.Error("rule set reload failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "reload failed: " + err.Error(),
		})
		return
	}

	sets := make([]*domain.RegimeRuleSet, 0, fresh.Count())
	for _, key := range fresh.Keys() {
		regime, year := splitKey(key)
		rs, err := fresh.Get(regime, year)
		if err != nil {
			continue
		}
		sets = append(sets, rs)
	}

	if err := h.registry.Replace(sets); err != nil {
		slog.Error("rule set swap failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "reload failed: " + err.Error(),
		})
		return
	}

	slog.Info("rule sets reloaded", "count", len(sets))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rule sets reloaded successfully",
		"count":   len(sets),
	})
}

// splitKey undoes RegimeRuleSet.Key ("old/2024-25").
func splitKey(key string) (domain.RegimeKind, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return domain.RegimeKind(key[:i]), key[i+1:]
		}
	}
	return domain.RegimeKind(key), ""
}

// validateRecordPayload decodes the body into the category's record type
// and rejects negative amounts before anything is stored.
func validateRecordPayload(category domain.Category, body []byte) error {
	var p domain.FinancialProfile

	var dst interface{}
	switch category {
	case domain.CategorySalary:
		dst = &p.Salary
	case domain.CategoryProperty:
		dst = &p.Property
	case domain.CategoryAgriculture:
		dst = &p.Agriculture
	case domain.CategoryCapitalGains:
		dst = &p.CapitalGains
	case domain.CategoryOtherIncome:
		dst = &p.OtherIncome
	default:
		return errors.New("unknown record category")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid JSON for category " + string(category))
	}
	return p.Validate()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
