package analytics

import (
	"time"

	"github.com/tradebook/journal/internal/modules/journal"
)

// FilterByRange returns the trades whose date falls within the inclusive
// [startOfDay(From), endOfDay(To)] interval. A nil range, or a range without
// a From, returns the input unchanged. The input is never mutated and
// relative ordering is preserved.
func FilterByRange(trades []journal.Trade, r *DateRange) []journal.Trade {
	if r == nil || r.From.IsZero() {
		return trades
	}

	start := startOfDay(r.From)
	end := r.To
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = endOfDay(end)

	filtered := make([]journal.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		filtered = append(filtered, t)
	}

	return filtered
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
