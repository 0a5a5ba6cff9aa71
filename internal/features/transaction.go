package features

import (
	"context"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
)

// rollingWindow is how many recent amounts feed the rolling statistics,
// and rollingMinHistory is the prior-transaction count required before
// rolling statistics are computed at all.
const (
	rollingWindow     = 10
	rollingMinHistory = 3
)

// TransactionAggregator computes the transaction feature vector for one event.
type TransactionAggregator struct {
	history domain.TransactionHistory
	now     func() time.Time
}

// NewTransactionAggregator creates an aggregator backed by the given history.
func NewTransactionAggregator(history domain.TransactionHistory) *TransactionAggregator {
	return &TransactionAggregator{
		history: history,
		now:     time.Now,
	}
}

// WithClock overrides the evaluation clock. Intended for tests.
func (a *TransactionAggregator) WithClock(now func() time.Time) *TransactionAggregator {
	a.now = now
	return a
}

// Features computes the complete transaction feature vector. All windows are
// anchored at the evaluation time, never the event's own timestamp.
func (a *TransactionAggregator) Features(ctx context.Context, ev *domain.TransactionEvent) (domain.FeatureVector, error) {
	now := a.now().UTC()
	v := domain.NewFeatureVector(domain.TransactionFeatureKeys())

	v[domain.FeatAmount] = ev.Amount

	hour := now.Hour()
	v[domain.FeatHourOfDay] = float64(hour)
	if hour < 6 || hour >= 22 {
		v[domain.FeatIsNightTime] = 1
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		v[domain.FeatIsWeekend] = 1
	}
	if ev.CountryMismatch {
		v[domain.FeatCountryMismatch] = 1
	}

	firstSeen, known, err := a.history.UserFirstSeen(ctx, ev.UserID)
	if err != nil {
		return nil, historyErr("user first seen", err)
	}
	if known {
		v[domain.FeatAccountAgeDays] = daysBetween(firstSeen, now)
	}

	amounts, err := a.history.AmountsByUser(ctx, ev.UserID, now)
	if err != nil {
		return nil, historyErr("amounts by user", err)
	}
	if len(amounts) > 0 {
		m := mean(amounts)
		sd := stdDev(amounts)
		v[domain.FeatUserTotalTxs] = float64(len(amounts))
		v[domain.FeatUserAvgAmount] = m
		v[domain.FeatUserMaxAmount] = maxOf(amounts)
		v[domain.FeatUserMinAmount] = minOf(amounts)
		v[domain.FeatUserStdAmount] = sd
		v[domain.FeatAmountZ] = zScore(ev.Amount, m, sd)
	}

	windows := []struct {
		key   string
		since time.Time
	}{
		{domain.FeatUser1hTx, now.Add(-time.Hour)},
		{domain.FeatUser24hTx, now.Add(-24 * time.Hour)},
		{domain.FeatUser7dTx, now.Add(-7 * 24 * time.Hour)},
	}
	for _, w := range windows {
		count, err := a.history.CountByUser(ctx, ev.UserID, w.since)
		if err != nil {
			return nil, historyErr("count by user", err)
		}
		v[w.key] = float64(count)
	}

	sum24h, err := a.history.SumByUser(ctx, ev.UserID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, historyErr("sum by user", err)
	}
	v[domain.FeatUser24hAmount] = sum24h

	if ev.IPAddress != "" {
		ipCount, err := a.history.CountByIP(ctx, ev.IPAddress, now.Add(-time.Hour))
		if err != nil {
			return nil, historyErr("count by ip", err)
		}
		v[domain.FeatIP1hTx] = float64(ipCount)

		ipUsers, err := a.history.DistinctUsersByIP(ctx, ev.IPAddress)
		if err != nil {
			return nil, historyErr("distinct users by ip", err)
		}
		v[domain.FeatIPUniqueUsers] = float64(ipUsers)
	}

	if ev.DeviceFingerprint != "" {
		devices, err := a.history.DistinctDevicesByUser(ctx, ev.UserID, now.Add(-7*24*time.Hour))
		if err != nil {
			return nil, historyErr("distinct devices by user", err)
		}
		// Subtract the current device; a single stable device scores 0.
		if devices > 0 {
			v[domain.FeatDevSwitch7d] = float64(devices - 1)
		}
	}

	if len(amounts) > rollingMinHistory {
		recent, err := a.history.RecentAmounts(ctx, ev.UserID, now, rollingWindow)
		if err != nil {
			return nil, historyErr("recent amounts", err)
		}
		if len(recent) > 0 {
			v[domain.FeatRollingMeanDiff] = ev.Amount - mean(recent)
			v[domain.FeatRollingStd] = stdDev(recent)
		}
	}

	channels, err := a.history.ChannelCounts(ctx, ev.UserID)
	if err != nil {
		return nil, historyErr("channel counts", err)
	}
	if len(channels) > 0 {
		if ev.Channel != mostFrequentChannel(channels) {
			v[domain.FeatChannelMismatch] = 1
		}
		v[domain.FeatChannelFreq] = float64(channels[ev.Channel])
	}

	if err := v.Complete(domain.TransactionFeatureKeys()); err != nil {
		return nil, err
	}
	return v, nil
}

// mostFrequentChannel picks the channel with the highest count; ties break
// toward the lexicographically smaller name so the result is deterministic.
func mostFrequentChannel(counts map[string]int64) string {
	var best string
	var bestCount int64 = -1
	for ch, n := range counts {
		if n > bestCount || (n == bestCount && ch < best) {
			best = ch
			bestCount = n
		}
	}
	return best
}
