package repository

import (
	"strings"
)

// Schema definitions for the Kestrel historical store. Written for SQLite;
// Schemas rewrites the key types for PostgreSQL.

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT_PK,
    email TEXT UNIQUE,
    created_at TIMESTAMP NOT NULL
);
`

const schemaReviews = `
CREATE TABLE IF NOT EXISTS reviews (
    id BIGINT_PK,
    user_id BIGINT NOT NULL,
    product_id TEXT,
    review_text TEXT NOT NULL,
    rating REAL NOT NULL,
    created_at TIMESTAMP NOT NULL,
    ip_address TEXT,
    device_fingerprint TEXT,
    is_fake_pred INTEGER,
    fake_score REAL,
    decision_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_ip ON reviews(ip_address, created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_device ON reviews(device_fingerprint);
CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGINT_PK,
    user_id BIGINT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    channel TEXT,
    created_at TIMESTAMP NOT NULL,
    ip_address TEXT,
    device_fingerprint TEXT,
    is_fraud_pred INTEGER,
    fraud_score REAL,
    decision_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_ip ON transactions(ip_address, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_device ON transactions(user_id, device_fingerprint);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    class TEXT NOT NULL,
    expression TEXT NOT NULL,
    boost REAL NOT NULL,
    reason TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_class ON rule_configs(class, enabled);
`

// Schemas returns all table definitions for the given driver.
func Schemas(driver string) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	raw := []string{schemaUsers, schemaReviews, schemaTransactions, schemaRuleConfigs}
	schemas := make([]string, len(raw))
	for i, s := range raw {
		schemas[i] = strings.ReplaceAll(s, "BIGINT_PK", pk)
	}
	return schemas
}
