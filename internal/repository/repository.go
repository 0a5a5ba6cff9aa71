// Package repository provides the SQL-backed historical store. It persists
// scored events and serves as the read-only history accessor for feature
// aggregation. Works with SQLite and PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements persistence and the history accessors using
// database/sql. Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
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

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range Schemas(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Reviews returns the read-only review history accessor.
func (r *SQLRepository) Reviews() domain.ReviewHistory {
	return &reviewHistory{r}
}

// Transactions returns the read-only transaction history accessor.
func (r *SQLRepository) Transactions() domain.TransactionHistory {
	return &transactionHistory{r}
}

// CreateUser inserts a user account and returns its id.
func (r *SQLRepository) CreateUser(ctx context.Context, email string, createdAt time.Time) (int64, error) {
	query := `INSERT INTO users (email, created_at) VALUES (?, ?) RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), nullString(email), createdAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// SaveReview persists a scored review with its decision record and returns
// the assigned id.
func (r *SQLRepository) SaveReview(ctx context.Context, ev *domain.ReviewEvent, d *domain.Decision) (int64, error) {
	if ev == nil || d == nil {
		return 0, fmt.Errorf("%w: event and decision are required", ErrInvalidInput)
	}

	decisionJSON, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal decision: %w", err)
	}

	query := `
		INSERT INTO reviews (
			user_id, product_id, review_text, rating, created_at,
			ip_address, device_fingerprint,
			is_fake_pred, fake_score, decision_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, r.rebind(query),
		ev.UserID, nullString(ev.ProductID), ev.ReviewText, ev.Rating, ev.CreatedAt.UTC(),
		nullString(ev.IPAddress), nullString(ev.DeviceFingerprint),
		boolToInt(d.Decision), d.ScoreFinal, string(decisionJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save review: %w", err)
	}
	return id, nil
}

// GetReview retrieves a persisted review and its decision record.
func (r *SQLRepository) GetReview(ctx context.Context, id int64) (*domain.ReviewEvent, *domain.Decision, error) {
	query := `
		SELECT id, user_id, product_id, review_text, rating, created_at,
		       ip_address, device_fingerprint, decision_json
		FROM reviews
		WHERE id = ?
	`

	var (
		ev           domain.ReviewEvent
		productID    sql.NullString
		ipAddress    sql.NullString
		device       sql.NullString
		decisionJSON sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&ev.ID, &ev.UserID, &productID, &ev.ReviewText, &ev.Rating, &ev.CreatedAt,
		&ipAddress, &device, &decisionJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	ev.ProductID = productID.String
	ev.IPAddress = ipAddress.String
	ev.DeviceFingerprint = device.String

	var d *domain.Decision
	if decisionJSON.Valid && decisionJSON.String != "" {
		d = &domain.Decision{}
		if err := json.Unmarshal([]byte(decisionJSON.String), d); err != nil {
			return nil, nil, fmt.Errorf("failed to parse decision for review %d: %w", id, err)
		}
	}
	return &ev, d, nil
}

// SaveTransaction persists a scored transaction with its decision record
// and returns the assigned id.
func (r *SQLRepository) SaveTransaction(ctx context.Context, ev *domain.TransactionEvent, d *domain.Decision) (int64, error) {
	if ev == nil || d == nil {
		return 0, fmt.Errorf("%w: event and decision are required", ErrInvalidInput)
	}

	decisionJSON, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal decision: %w", err)
	}

	query := `
		INSERT INTO transactions (
			user_id, amount, currency, channel, created_at,
			ip_address, device_fingerprint,
			is_fraud_pred, fraud_score, decision_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, r.rebind(query),
		ev.UserID, ev.Amount, ev.Currency, nullString(ev.Channel), ev.CreatedAt.UTC(),
		nullString(ev.IPAddress), nullString(ev.DeviceFingerprint),
		boolToInt(d.Decision), d.ScoreFinal, string(decisionJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save transaction: %w", err)
	}
	return id, nil
}

// GetTransaction retrieves a persisted transaction and its decision record.
func (r *SQLRepository) GetTransaction(ctx context.Context, id int64) (*domain.TransactionEvent, *domain.Decision, error) {
	query := `
		SELECT id, user_id, amount, currency, channel, created_at,
		       ip_address, device_fingerprint, decision_json
		FROM transactions
		WHERE id = ?
	`

	var (
		ev           domain.TransactionEvent
		channel      sql.NullString
		ipAddress    sql.NullString
		device       sql.NullString
		decisionJSON sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&ev.ID, &ev.UserID, &ev.Amount, &ev.Currency, &channel, &ev.CreatedAt,
		&ipAddress, &device, &decisionJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	ev.Channel = channel.String
	ev.IPAddress = ipAddress.String
	ev.DeviceFingerprint = device.String

	var d *domain.Decision
	if decisionJSON.Valid && decisionJSON.String != "" {
		d = &domain.Decision{}
		if err := json.Unmarshal([]byte(decisionJSON.String), d); err != nil {
			return nil, nil, fmt.Errorf("failed to parse decision for transaction %d: %w", id, err)
		}
	}
	return &ev, d, nil
}

// SaveRuleConfig upserts a custom rule configuration.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, cfg *domain.RuleConfig) error {
	if cfg == nil || cfg.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO rule_configs (
			id, name, description, class, expression, boost, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			class = excluded.class,
			expression = excluded.expression,
			boost = excluded.boost,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		cfg.ID, cfg.Name, cfg.Description, string(cfg.Class),
		cfg.Expression, cfg.Boost, cfg.Reason, boolToInt(cfg.Enabled),
		now, now,
	)
	return err
}

// ListRuleConfigs returns all enabled custom rules, oldest first so the
// evaluation order is stable across reloads.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, class, expression, boost, reason, enabled
		FROM rule_configs
		WHERE enabled = 1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var class string
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &description, &class,
			&cfg.Expression, &cfg.Boost, &cfg.Reason, &enabled,
		); err != nil {
			return nil, err
		}
		cfg.Description = description.String
		cfg.Class = domain.EntityClass(class)
		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
