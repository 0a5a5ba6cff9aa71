// Package features derives behavioral, temporal, and textual feature
// vectors from incoming events and their subjects' history. Vectors are
// computed fresh on every call; the underlying store mutates continuously,
// so nothing here caches across requests.
package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// defaultProductRating stands in when a product has no review history.
const defaultProductRating = 3.0

// ReviewAggregator computes the review feature vector for one event.
type ReviewAggregator struct {
	history domain.ReviewHistory
	now     func() time.Time
}

// NewReviewAggregator creates an aggregator backed by the given history.
func NewReviewAggregator(history domain.ReviewHistory) *ReviewAggregator {
	return &ReviewAggregator{
		history: history,
		now:     time.Now,
	}
}

// WithClock overrides the evaluation clock. Intended for tests.
func (a *ReviewAggregator) WithClock(now func() time.Time) *ReviewAggregator {
	a.now = now
	return a
}

// Features computes the complete review feature vector. Absent optional
// fields (IP, device, product) resolve their features to defaults; a store
// failure propagates as ErrHistoryUnavailable rather than producing a
// partial vector.
func (a *ReviewAggregator) Features(ctx context.Context, ev *domain.ReviewEvent) (domain.FeatureVector, error) {
	now := a.now().UTC()
	v := domain.NewFeatureVector(domain.ReviewFeatureKeys())

	textFeatures(v, ev.ReviewText)

	v[domain.FeatRating] = ev.Rating
	v[domain.FeatUserAvgRating] = ev.Rating

	userAvg, ok, err := a.history.AvgRatingByUser(ctx, ev.UserID, ev.ID)
	if err != nil {
		return nil, historyErr("avg rating by user", err)
	}
	if ok {
		v[domain.FeatUserAvgRating] = userAvg
		v[domain.FeatRatingDeviation] = math.Abs(ev.Rating - userAvg)
	}

	firstSeen, known, err := a.history.UserFirstSeen(ctx, ev.UserID)
	if err != nil {
		return nil, historyErr("user first seen", err)
	}
	if known {
		v[domain.FeatAccountAgeDays] = daysBetween(firstSeen, now)
	}

	windows := []struct {
		key   string
		since time.Time
	}{
		{domain.FeatUser30dReviews, now.Add(-30 * 24 * time.Hour)},
		{domain.FeatUser7dReviews, now.Add(-7 * 24 * time.Hour)},
		{domain.FeatUser1hReviews, now.Add(-time.Hour)},
	}
	for _, w := range windows {
		count, err := a.history.CountByUser(ctx, ev.UserID, w.since)
		if err != nil {
			return nil, historyErr("count by user", err)
		}
		v[w.key] = float64(count)
	}

	if ev.IPAddress != "" {
		ipCount, err := a.history.CountByIP(ctx, ev.IPAddress, now.Add(-30*24*time.Hour))
		if err != nil {
			return nil, historyErr("count by ip", err)
		}
		v[domain.FeatIP30dReviews] = float64(ipCount)

		ipUsers, err := a.history.DistinctUsersByIP(ctx, ev.IPAddress)
		if err != nil {
			return nil, historyErr("distinct users by ip", err)
		}
		v[domain.FeatIPUniqueUsers] = float64(ipUsers)
	}

	if ev.DeviceFingerprint != "" {
		devCount, err := a.history.CountByDevice(ctx, ev.DeviceFingerprint)
		if err != nil {
			return nil, historyErr("count by device", err)
		}
		v[domain.FeatDeviceReviews] = float64(devCount)

		devUsers, err := a.history.DistinctUsersByDevice(ctx, ev.DeviceFingerprint)
		if err != nil {
			return nil, historyErr("distinct users by device", err)
		}
		v[domain.FeatDeviceUsers] = float64(devUsers)
	}

	v[domain.FeatProductAvgRating] = defaultProductRating
	if ev.ProductID != "" {
		prodCount, err := a.history.CountByProduct(ctx, ev.ProductID)
		if err != nil {
			return nil, historyErr("count by product", err)
		}
		v[domain.FeatProductReviews] = float64(prodCount)

		prodAvg, ok, err := a.history.AvgRatingByProduct(ctx, ev.ProductID)
		if err != nil {
			return nil, historyErr("avg rating by product", err)
		}
		if ok {
			v[domain.FeatProductAvgRating] = prodAvg
		}
	}

	if err := v.Complete(domain.ReviewFeatureKeys()); err != nil {
		return nil, err
	}
	return v, nil
}

func historyErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrHistoryUnavailable, op, err)
}

func daysBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	return float64(int(to.Sub(from).Hours() / 24))
}
