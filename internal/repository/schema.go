package repository

// Schema definitions for the Myna database.
// Compatible with both SQLite and PostgreSQL.

// tax_records holds one JSON document per (user, category).
const schemaTaxRecords = `
CREATE TABLE IF NOT EXISTS tax_records (
    user_id TEXT NOT NULL,
    category TEXT NOT NULL,
    payload TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, category)
);

CREATE INDEX IF NOT EXISTS idx_tax_records_user ON tax_records(user_id);
`

// tax_comparisons is single-slot: the user_id primary key plus the upsert
// in SaveComparison give exactly one live comparison per user, replaced
// atomically on regeneration. No history is kept.
const schemaTaxComparisons = `
CREATE TABLE IF NOT EXISTS tax_comparisons (
    user_id TEXT PRIMARY KEY,
    result TEXT NOT NULL,
    generated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns every schema statement in creation order.
func AllSchemas() []string {
	return []string{
		schemaTaxRecords,
		schemaTaxComparisons,
	}
}
