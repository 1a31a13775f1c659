package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/myna/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "myna-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	userID := "user-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetCategoryRecord", func(t *testing.T) {
		payload := []byte(`{"grossSalary":"900000","hra":"200000"}`)

		if err := repo.SaveCategoryRecord(ctx, userID, domain.CategorySalary, payload); err != nil {
			t.Fatalf("SaveCategoryRecord failed: %v", err)
		}

		retrieved, err := repo.GetCategoryRecord(ctx, userID, domain.CategorySalary)
		if err != nil {
			t.Fatalf("GetCategoryRecord failed: %v", err)
		}

		if retrieved.UserID != userID {
			t.Errorf("expected UserID %s, got %s", userID, retrieved.UserID)
		}
		if retrieved.Category != domain.CategorySalary {
			t.Errorf("expected Category %s, got %s", domain.CategorySalary, retrieved.Category)
		}
		if string(retrieved.Payload) != string(payload) {
			t.Errorf("expected Payload %s, got %s", payload, retrieved.Payload)
		}
		if retrieved.UpdatedAt.IsZero() {
			t.Error("expected UpdatedAt to be set")
		}
	})

	t.Run("CategoryRecordUpsert", func(t *testing.T) {
		replaced := []byte(`{"grossSalary":"950000"}`)

		if err := repo.SaveCategoryRecord(ctx, userID, domain.CategorySalary, replaced); err != nil {
			t.Fatalf("SaveCategoryRecord failed: %v", err)
		}

		retrieved, err := repo.GetCategoryRecord(ctx, userID, domain.CategorySalary)
		if err != nil {
			t.Fatalf("GetCategoryRecord failed: %v", err)
		}
		if string(retrieved.Payload) != string(replaced) {
			t.Errorf("expected replaced Payload %s, got %s", replaced, retrieved.Payload)
		}

		records, err := repo.ListCategoryRecords(ctx, userID)
		if err != nil {
			t.Fatalf("ListCategoryRecords failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record after upsert, got %d", len(records))
		}
	})

	t.Run("UserIsolation", func(t *testing.T) {
		_, err := repo.GetCategoryRecord(ctx, "user-002", domain.CategorySalary)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for different user, got: %v", err)
		}
	})

	t.Run("RequiresUserID", func(t *testing.T) {
		err := repo.SaveCategoryRecord(ctx, "", domain.CategorySalary, []byte(`{}`))
		if err == nil {
			t.Error("expected error for empty userID")
		}

		_, err = repo.GetCategoryRecord(ctx, "", domain.CategorySalary)
		if err == nil {
			t.Error("expected error for empty userID")
		}
	})

	t.Run("RejectsUnknownCategory", func(t *testing.T) {
		err := repo.SaveCategoryRecord(ctx, userID, domain.Category("crypto"), []byte(`{}`))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})

	t.Run("ListCategoryRecords", func(t *testing.T) {
		if err := repo.SaveCategoryRecord(ctx, userID, domain.CategoryProperty, []byte(`{"rentReceived":"300000"}`)); err != nil {
			t.Fatalf("SaveCategoryRecord failed: %v", err)
		}

		records, err := repo.ListCategoryRecords(ctx, userID)
		if err != nil {
			t.Fatalf("ListCategoryRecords failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("expected 2 records, got %d", len(records))
		}
	})

	t.Run("DeleteCategoryRecord", func(t *testing.T) {
		if err := repo.DeleteCategoryRecord(ctx, userID, domain.CategoryProperty); err != nil {
			t.Fatalf("DeleteCategoryRecord failed: %v", err)
		}

		_, err := repo.GetCategoryRecord(ctx, userID, domain.CategoryProperty)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got: %v", err)
		}

		// Deleting a missing record is not an error
		if err := repo.DeleteCategoryRecord(ctx, userID, domain.CategoryProperty); err != nil {
			t.Errorf("expected nil deleting absent record, got: %v", err)
		}
	})

	t.Run("SaveAndGetComparison", func(t *testing.T) {
		rec := &domain.ComparisonRecord{
			UserID: userID,
			Result: domain.ComparisonResult{
				OldOutcome: domain.TaxOutcome{
					Regime:         domain.RegimeOld,
					AssessmentYear: "2024-25",
					TotalTax:       decimal.RequireFromString("132600"),
				},
				NewOutcome: domain.TaxOutcome{
					Regime:         domain.RegimeNew,
					AssessmentYear: "2024-25",
					TotalTax:       decimal.RequireFromString("130000"),
				},
				TaxSaving:         decimal.RequireFromString("2600"),
				RecommendedRegime: domain.RegimeNew,
			},
			GeneratedAt: time.Now().UTC(),
		}

		if err := repo.SaveComparison(ctx, rec); err != nil {
			t.Fatalf("SaveComparison failed: %v", err)
		}

		retrieved, err := repo.GetLatestComparison(ctx, userID)
		if err != nil {
			t.Fatalf("GetLatestComparison failed: %v", err)
		}

		if retrieved.UserID != userID {
			t.Errorf("expected UserID %s, got %s", userID, retrieved.UserID)
		}
		if retrieved.Result.RecommendedRegime != domain.RegimeNew {
			t.Errorf("expected recommendation %s, got %s", domain.RegimeNew, retrieved.Result.RecommendedRegime)
		}
		if !retrieved.Result.TaxSaving.Equal(rec.Result.TaxSaving) {
			t.Errorf("expected TaxSaving %s, got %s", rec.Result.TaxSaving, retrieved.Result.TaxSaving)
		}
	})

	t.Run("ComparisonSingleSlot", func(t *testing.T) {
		rec := &domain.ComparisonRecord{
			UserID: userID,
			Result: domain.ComparisonResult{
				TaxSaving:         decimal.Zero,
				RecommendedRegime: domain.RegimeOld,
			},
			GeneratedAt: time.Now().UTC(),
		}

		if err := repo.SaveComparison(ctx, rec); err != nil {
			t.Fatalf("SaveComparison failed: %v", err)
		}

		retrieved, err := repo.GetLatestComparison(ctx, userID)
		if err != nil {
			t.Fatalf("GetLatestComparison failed: %v", err)
		}
		if retrieved.Result.RecommendedRegime != domain.RegimeOld {
			t.Errorf("expected latest recommendation %s, got %s", domain.RegimeOld, retrieved.Result.RecommendedRegime)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetLatestComparison(ctx, "user-without-comparison")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
