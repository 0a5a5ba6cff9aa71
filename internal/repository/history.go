package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// reviewHistory serves feature-aggregation queries over stored reviews.
type reviewHistory struct {
	repo *SQLRepository
}

func (h *reviewHistory) CountByUser(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC())
}

func (h *reviewHistory) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM reviews WHERE ip_address = ? AND created_at >= ?`,
		ip, since.UTC())
}

func (h *reviewHistory) DistinctUsersByIP(ctx context.Context, ip string) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM reviews WHERE ip_address = ?`, ip)
}

func (h *reviewHistory) CountByDevice(ctx context.Context, device string) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM reviews WHERE device_fingerprint = ?`, device)
}

func (h *reviewHistory) DistinctUsersByDevice(ctx context.Context, device string) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM reviews WHERE device_fingerprint = ?`, device)
}

func (h *reviewHistory) AvgRatingByUser(ctx context.Context, userID, excludeID int64) (float64, bool, error) {
	return h.repo.avgQuery(ctx,
		`SELECT AVG(rating) FROM reviews WHERE user_id = ? AND id != ?`,
		userID, excludeID)
}

func (h *reviewHistory) CountByProduct(ctx context.Context, productID string) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM reviews WHERE product_id = ?`, productID)
}

func (h *reviewHistory) AvgRatingByProduct(ctx context.Context, productID string) (float64, bool, error) {
	return h.repo.avgQuery(ctx,
		`SELECT AVG(rating) FROM reviews WHERE product_id = ?`, productID)
}

func (h *reviewHistory) UserFirstSeen(ctx context.Context, userID int64) (time.Time, bool, error) {
	return h.repo.userFirstSeen(ctx, userID)
}

// transactionHistory serves feature-aggregation queries over stored
// transactions.
type transactionHistory struct {
	repo *SQLRepository
}

func (h *transactionHistory) CountByUser(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC())
}

func (h *transactionHistory) SumByUser(ctx context.Context, userID int64, since time.Time) (float64, error) {
	var sum sql.NullFloat64
	query := h.repo.rebind(`SELECT SUM(amount) FROM transactions WHERE user_id = ? AND created_at >= ?`)
	if err := h.repo.db.QueryRowContext(ctx, query, userID, since.UTC()).Scan(&sum); err != nil {
		return 0, err
	}
	return sum.Float64, nil
}

func (h *transactionHistory) AmountsByUser(ctx context.Context, userID int64, before time.Time) ([]float64, error) {
	return h.amounts(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND created_at < ? ORDER BY created_at, id`,
		userID, before.UTC())
}

func (h *transactionHistory) RecentAmounts(ctx context.Context, userID int64, before time.Time, limit int) ([]float64, error) {
	return h.amounts(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND created_at < ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, before.UTC(), limit)
}

func (h *transactionHistory) amounts(ctx context.Context, query string, args ...any) ([]float64, error) {
	rows, err := h.repo.db.QueryContext(ctx, h.repo.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

func (h *transactionHistory) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(*) FROM transactions WHERE ip_address = ? AND created_at >= ?`,
		ip, since.UTC())
}

func (h *transactionHistory) DistinctUsersByIP(ctx context.Context, ip string) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM transactions WHERE ip_address = ?`, ip)
}

func (h *transactionHistory) DistinctDevicesByUser(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return h.repo.countQuery(ctx,
		`SELECT COUNT(DISTINCT device_fingerprint) FROM transactions
		 WHERE user_id = ? AND created_at >= ? AND device_fingerprint IS NOT NULL`,
		userID, since.UTC())
}

func (h *transactionHistory) ChannelCounts(ctx context.Context, userID int64) (map[string]int64, error) {
	query := h.repo.rebind(`
		SELECT channel, COUNT(*) FROM transactions
		WHERE user_id = ? AND channel IS NOT NULL
		GROUP BY channel
	`)
	rows, err := h.repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var channel string
		var n int64
		if err := rows.Scan(&channel, &n); err != nil {
			return nil, err
		}
		counts[channel] = n
	}
	return counts, rows.Err()
}

func (h *transactionHistory) UserFirstSeen(ctx context.Context, userID int64) (time.Time, bool, error) {
	return h.repo.userFirstSeen(ctx, userID)
}

func (r *SQLRepository) countQuery(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLRepository) avgQuery(ctx context.Context, query string, args ...any) (float64, bool, error) {
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&avg); err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}

func (r *SQLRepository) userFirstSeen(ctx context.Context, userID int64) (time.Time, bool, error) {
	var created time.Time
	query := r.rebind(`SELECT created_at FROM users WHERE id = ?`)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return created, true, nil
}
