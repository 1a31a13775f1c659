package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. All methods are
// scoped by userID; there is no cross-user access path.
type Repository interface {
	// Category record operations. One record per (user, category);
	// SaveCategoryRecord replaces any existing record.
	SaveCategoryRecord(ctx context.Context, userID string, category Category, payload []byte) error
	GetCategoryRecord(ctx context.Context, userID string, category Category) (*CategoryRecord, error)
	ListCategoryRecords(ctx context.Context, userID string) ([]*CategoryRecord, error)
	DeleteCategoryRecord(ctx context.Context, userID string, category Category) error

	// Comparison operations. SaveComparison is an atomic single-slot upsert
	// keyed by user; GetLatestComparison returns ErrNotFound until the
	// first save.
	SaveComparison(ctx context.Context, rec *ComparisonRecord) error
	GetLatestComparison(ctx context.Context, userID string) (*ComparisonRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
