package domain

import (
	"context"
	"time"
)

// ReviewHistory is a read-only query interface over past review events.
// All windows are bounded by caller-supplied instants computed from the
// evaluation time, never from the event's own timestamp.
type ReviewHistory interface {
	// CountByUser counts the user's reviews created at or after since.
	CountByUser(ctx context.Context, userID int64, since time.Time) (int64, error)

	// CountByIP counts reviews from an IP created at or after since.
	CountByIP(ctx context.Context, ip string, since time.Time) (int64, error)

	// DistinctUsersByIP counts distinct users who ever reviewed from an IP.
	DistinctUsersByIP(ctx context.Context, ip string) (int64, error)

	// CountByDevice counts all reviews carrying a device fingerprint.
	CountByDevice(ctx context.Context, device string) (int64, error)

	// DistinctUsersByDevice counts distinct users seen on a device.
	DistinctUsersByDevice(ctx context.Context, device string) (int64, error)

	// AvgRatingByUser averages the user's ratings, excluding the review with
	// excludeID (pass 0 to exclude nothing). The bool reports whether any
	// history existed.
	AvgRatingByUser(ctx context.Context, userID, excludeID int64) (float64, bool, error)

	// CountByProduct counts all reviews of a product.
	CountByProduct(ctx context.Context, productID string) (int64, error)

	// AvgRatingByProduct averages a product's ratings. The bool reports
	// whether any history existed.
	AvgRatingByProduct(ctx context.Context, productID string) (float64, bool, error)

	// UserFirstSeen reports the user's account creation time. The bool is
	// false for unknown users.
	UserFirstSeen(ctx context.Context, userID int64) (time.Time, bool, error)
}

// TransactionHistory is a read-only query interface over past transactions.
type TransactionHistory interface {
	// CountByUser counts the user's transactions created at or after since.
	CountByUser(ctx context.Context, userID int64, since time.Time) (int64, error)

	// SumByUser sums the user's transaction amounts created at or after since.
	SumByUser(ctx context.Context, userID int64, since time.Time) (float64, error)

	// AmountsByUser returns all of the user's amounts created before the
	// given instant, oldest first.
	AmountsByUser(ctx context.Context, userID int64, before time.Time) ([]float64, error)

	// RecentAmounts returns up to limit of the user's most recent amounts
	// created before the given instant, newest first.
	RecentAmounts(ctx context.Context, userID int64, before time.Time, limit int) ([]float64, error)

	// CountByIP counts transactions from an IP created at or after since.
	CountByIP(ctx context.Context, ip string, since time.Time) (int64, error)

	// DistinctUsersByIP counts distinct users who ever transacted from an IP.
	DistinctUsersByIP(ctx context.Context, ip string) (int64, error)

	// DistinctDevicesByUser counts distinct device fingerprints the user
	// transacted with at or after since.
	DistinctDevicesByUser(ctx context.Context, userID int64, since time.Time) (int64, error)

	// ChannelCounts returns the user's historical transaction count per channel.
	ChannelCounts(ctx context.Context, userID int64) (map[string]int64, error)

	// UserFirstSeen reports the user's account creation time. The bool is
	// false for unknown users.
	UserFirstSeen(ctx context.Context, userID int64) (time.Time, bool, error)
}
