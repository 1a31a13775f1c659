// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/myna/internal/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCategoryRecord upserts one category record for a user. A second save
// for the same (user, category) replaces the previous payload.
func (r *SQLRepository) SaveCategoryRecord(ctx context.Context, userID string, category domain.Category, payload []byte) error {
	if userID == "" {
		return fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO tax_records (user_id, category, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		userID, string(category), string(payload), time.Now().UTC(),
	)
	return err
}

// GetCategoryRecord retrieves one category record for a user.
func (r *SQLRepository) GetCategoryRecord(ctx context.Context, userID string, category domain.Category) (*domain.CategoryRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT user_id, category, payload, updated_at
		FROM tax_records
		WHERE user_id = ? AND category = ?
	`

	var rec domain.CategoryRecord
	var cat, payload string

	err := r.db.QueryRowContext(ctx, r.rebind(query), userID, string(category)).Scan(
		&rec.UserID, &cat, &payload, &rec.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Category = domain.Category(cat)
	rec.Payload = []byte(payload)
	return &rec, nil
}

// ListCategoryRecords retrieves every category record for a user, ordered
// by category name.
func (r *SQLRepository) ListCategoryRecords(ctx context.Context, userID string) ([]*domain.CategoryRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT user_id, category, payload, updated_at
		FROM tax_records
		WHERE user_id = ?
		ORDER BY category
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CategoryRecord
	for rows.Next() {
		var rec domain.CategoryRecord
		var cat, payload string

		if err := rows.Scan(&rec.UserID, &cat, &payload, &rec.UpdatedAt); err != nil {
			return nil, err
		}

		rec.Category = domain.Category(cat)
		rec.Payload = []byte(payload)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// DeleteCategoryRecord removes one category record. Deleting an absent
// record is not an error.
func (r *SQLRepository) DeleteCategoryRecord(ctx context.Context, userID string, category domain.Category) error {
	if userID == "" {
		return fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `DELETE FROM tax_records WHERE user_id = ? AND category = ?`

	_, err := r.db.ExecContext(ctx, r.rebind(query), userID, string(category))
	return err
}

// SaveComparison upserts the single latest comparison for a user. The
// upsert is one statement, so a concurrent reader sees either the old or
// the new record, never a partial write.
func (r *SQLRepository) SaveComparison(ctx context.Context, rec *domain.ComparisonRecord) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize comparison: %w", err)
	}

	query := `
		INSERT INTO tax_comparisons (user_id, result, generated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			result = excluded.result,
			generated_at = excluded.generated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.UserID, string(result), rec.GeneratedAt,
	)
	return err
}

// GetLatestComparison retrieves the stored comparison for a user.
// Returns domain.ErrNotFound when no comparison was ever saved.
func (r *SQLRepository) GetLatestComparison(ctx context.Context, userID string) (*domain.ComparisonRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT user_id, result, generated_at
		FROM tax_comparisons
		WHERE user_id = ?
	`

	var rec domain.ComparisonRecord
	var result string

	err := r.db.QueryRowContext(ctx, r.rebind(query), userID).Scan(
		&rec.UserID, &result, &rec.GeneratedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to deserialize comparison: %w", err)
	}

	return &rec, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
