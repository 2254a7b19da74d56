package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/tradebook/journal/internal/modules/journal"
)

// Span thresholds (in days) selecting the bucketing granularity.
const (
	spanSingleDay = 1
	spanDaily     = 7
	spanWeekly    = 90
)

// BuildSeries produces the chart series for a trade set and range, applying
// the range filter itself so the sum over buckets always equals the filtered
// total P&L.
//
// Granularity by span, evaluated in order:
//   - span of one day: a single bucket labeled with that date
//   - span of up to 7 days: one gap-free bucket per calendar day
//   - span of up to 90 days: 7-day windows from the range start, the last
//     window covering whatever days remain
//   - no range, or anything longer: month-of-year buckets Jan through Dec,
//     aggregated regardless of year
//
// Buckets are returned in chronological order.
func BuildSeries(trades []journal.Trade, r *DateRange) []SeriesPoint {
	filtered := FilterByRange(trades, r)

	if r == nil || r.From.IsZero() {
		return monthOfYearSeries(filtered)
	}

	start := startOfDay(r.From)
	end := r.To
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = endOfDay(end)

	spanDays := daysBetween(start, end)

	switch {
	case spanDays <= spanSingleDay:
		return singleDaySeries(filtered, start)
	case spanDays <= spanDaily:
		return dailySeries(filtered, start, spanDays)
	case spanDays <= spanWeekly:
		return weeklySeries(filtered, start, spanDays)
	default:
		return monthOfYearSeries(filtered)
	}
}

// daysBetween counts calendar days in the inclusive interval [start, end].
func daysBetween(start, end time.Time) int {
	startDay := startOfDay(start)
	endDay := startOfDay(end)
	return int(endDay.Sub(startDay).Hours()/24) + 1
}

func singleDaySeries(trades []journal.Trade, day time.Time) []SeriesPoint {
	point := SeriesPoint{Label: day.Format("2006-01-02")}
	for _, t := range trades {
		point.PnL += t.PnL
	}
	return []SeriesPoint{point}
}

// dailySeries emits one bucket per calendar day, zero-filled for days
// without trades so the chart has no gaps.
func dailySeries(trades []journal.Trade, start time.Time, spanDays int) []SeriesPoint {
	points := make([]SeriesPoint, spanDays)
	for i := range points {
		points[i].Label = start.AddDate(0, 0, i).Format("2006-01-02")
	}

	for _, t := range trades {
		idx := daysBetween(start, t.Date) - 1
		if idx < 0 || idx >= spanDays {
			continue
		}
		points[idx].PnL += t.PnL
	}

	return points
}

// weeklySeries groups trades into 7-day windows anchored at the range start.
// The final window may be shorter than 7 days.
func weeklySeries(trades []journal.Trade, start time.Time, spanDays int) []SeriesPoint {
	weeks := (spanDays + 6) / 7

	points := make([]SeriesPoint, weeks)
	for i := range points {
		windowStart := start.AddDate(0, 0, i*7)
		windowEnd := windowStart.AddDate(0, 0, 6)
		if lastDay := start.AddDate(0, 0, spanDays-1); windowEnd.After(lastDay) {
			windowEnd = lastDay
		}
		points[i].Label = windowStart.Format("Jan 02") + " to " + windowEnd.Format("Jan 02")
	}

	for _, t := range trades {
		idx := (daysBetween(start, t.Date) - 1) / 7
		if idx < 0 || idx >= weeks {
			continue
		}
		points[idx].PnL += t.PnL
	}

	return points
}

// monthOfYearSeries aggregates by month index regardless of year,
// always returning the full Jan..Dec axis.
func monthOfYearSeries(trades []journal.Trade) []SeriesPoint {
	points := make([]SeriesPoint, 12)
	for i := range points {
		points[i].Label = time.Month(i + 1).String()[:3]
	}

	for _, t := range trades {
		points[t.Date.Month()-1].PnL += t.PnL
	}

	return points
}

// BuildWeekdayBuckets returns the average P&L per day of the week.
// All seven weekdays are present, Sunday first; unobserved days carry zero.
func BuildWeekdayBuckets(trades []journal.Trade) []WeekdayBucket {
	buckets := make([]WeekdayBucket, 7)
	totals := make([]float64, 7)

	for i := range buckets {
		buckets[i].Weekday = time.Weekday(i).String()
	}

	for _, t := range trades {
		day := int(t.Date.Weekday())
		totals[day] += t.PnL
		buckets[day].Count++
	}

	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].AvgPnL = totals[i] / float64(buckets[i].Count)
		}
	}

	return buckets
}

// BuildHourBuckets returns the P&L profile by hour of day, ascending.
// The hour is taken from the entry time when present, else from the trade
// date. Hours without trades are omitted.
func BuildHourBuckets(trades []journal.Trade) []HourBucket {
	byHour := make(map[int]*HourBucket)

	for _, t := range trades {
		when := t.Date
		if t.EntryTime != nil {
			when = *t.EntryTime
		}
		hour := when.UTC().Hour()

		bucket, ok := byHour[hour]
		if !ok {
			bucket = &HourBucket{
				Hour:  hour,
				Label: fmt.Sprintf("%02d:00", hour),
			}
			byHour[hour] = bucket
		}
		bucket.TotalPnL += t.PnL
		bucket.Count++
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	buckets := make([]HourBucket, 0, len(hours))
	for _, h := range hours {
		bucket := byHour[h]
		bucket.AvgPnL = bucket.TotalPnL / float64(bucket.Count)
		buckets = append(buckets, *bucket)
	}

	return buckets
}

// BuildEquityCurve returns the cumulative P&L by calendar day, with an
// optional simple-moving-average overlay when smoothWindow > 1 and enough
// points exist.
func BuildEquityCurve(trades []journal.Trade, smoothWindow int) []EquityPoint {
	if len(trades) == 0 {
		return []EquityPoint{}
	}

	dayTotals := make(map[string]float64)
	for _, t := range trades {
		day := t.Date.UTC().Format("2006-01-02")
		dayTotals[day] += t.PnL
	}

	days := make([]string, 0, len(dayTotals))
	for day := range dayTotals {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]EquityPoint, len(days))
	equity := 0.0
	for i, day := range days {
		equity += dayTotals[day]
		points[i] = EquityPoint{Date: day, Equity: equity}
	}

	if smoothWindow > 1 && len(points) >= smoothWindow {
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Equity
		}
		smoothed := talib.Sma(values, smoothWindow)
		// Sma zero-fills the warm-up period; only overlay settled values
		for i := smoothWindow - 1; i < len(points); i++ {
			points[i].Smoothed = smoothed[i]
		}
	}

	return points
}
