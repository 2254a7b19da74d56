package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebook/journal/internal/modules/journal"
)

func seriesTotal(points []SeriesPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.PnL
	}
	return sum
}

func TestBuildSeries_SingleDay(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: day, To: day}

	trades := []journal.Trade{
		tradeOn(day.Add(9*time.Hour), 1000),
		tradeOn(day.Add(14*time.Hour), -300),
	}

	points := BuildSeries(trades, r)

	require.Len(t, points, 1)
	assert.Equal(t, "2024-04-01", points[0].Label)
	assert.Equal(t, 700.0, points[0].PnL)
}

func TestBuildSeries_DailyGapFree(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: from, To: from.AddDate(0, 0, 6)}

	// Trades only on days 1 and 5; the other five days must still appear
	trades := []journal.Trade{
		tradeOn(from, 500),
		tradeOn(from.AddDate(0, 0, 4), -200),
	}

	points := BuildSeries(trades, r)

	require.Len(t, points, 7)
	assert.Equal(t, "2024-04-01", points[0].Label)
	assert.Equal(t, "2024-04-07", points[6].Label)
	assert.Equal(t, 500.0, points[0].PnL)
	assert.Equal(t, -200.0, points[4].PnL)
	assert.Zero(t, points[1].PnL)
	assert.Zero(t, points[6].PnL)
}

func TestBuildSeries_WeeklyWindows(t *testing.T) {
	// 14-day range in April 2024: two 7-day windows.
	// Week 1 nets 3000 (5000 - 2000), week 2 nets 3000.
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: from, To: from.AddDate(0, 0, 13)}

	trades := []journal.Trade{
		tradeOn(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 5000),
		tradeOn(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), -2000),
		tradeOn(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), 3000),
	}

	points := BuildSeries(trades, r)

	require.Len(t, points, 2)
	assert.Equal(t, 3000.0, points[0].PnL)
	assert.Equal(t, 3000.0, points[1].PnL)
	assert.Equal(t, "Apr 01 to Apr 07", points[0].Label)
	assert.Equal(t, "Apr 08 to Apr 14", points[1].Label)
	assert.Equal(t, 6000.0, seriesTotal(points))
}

func TestBuildSeries_WeeklyPartialLastWindow(t *testing.T) {
	// 10-day range: second window covers only 3 days
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: from, To: from.AddDate(0, 0, 9)}

	points := BuildSeries(nil, r)

	require.Len(t, points, 2)
	assert.Equal(t, "Apr 08 to Apr 10", points[1].Label)
}

func TestBuildSeries_NoRangeMonthOfYear(t *testing.T) {
	trades := []journal.Trade{
		tradeOn(time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC), 1000),
		tradeOn(time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), 500),
		tradeOn(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), -200),
	}

	points := BuildSeries(trades, nil)

	require.Len(t, points, 12)
	assert.Equal(t, "Jan", points[0].Label)
	assert.Equal(t, "Dec", points[11].Label)
	// April aggregates across years
	assert.Equal(t, 1500.0, points[3].PnL)
	assert.Equal(t, -200.0, points[11].PnL)
}

func TestBuildSeries_LongRangeFallsBackToMonths(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: from, To: from.AddDate(0, 0, 180)}

	points := BuildSeries(nil, r)
	assert.Len(t, points, 12)
}

func TestBuildSeries_SumMatchesFilteredTotal(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := &DateRange{From: from, To: from.AddDate(0, 0, 13)}

	// One trade inside the range, one outside
	trades := []journal.Trade{
		tradeOn(from.AddDate(0, 0, 3), 800),
		tradeOn(from.AddDate(0, 0, 30), 9999),
	}

	points := BuildSeries(trades, r)
	filtered := FilterByRange(trades, r)

	assert.Equal(t, Aggregate(filtered).TotalPnL, seriesTotal(points))
}

func TestBuildWeekdayBuckets_AlwaysSevenDays(t *testing.T) {
	buckets := BuildWeekdayBuckets(nil)

	require.Len(t, buckets, 7)
	assert.Equal(t, "Sunday", buckets[0].Weekday)
	assert.Equal(t, "Saturday", buckets[6].Weekday)
	for _, b := range buckets {
		assert.Zero(t, b.AvgPnL)
		assert.Zero(t, b.Count)
	}
}

func TestBuildWeekdayBuckets_Averages(t *testing.T) {
	monday := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) // Apr 1 2024 is a Monday
	trades := []journal.Trade{
		tradeOn(monday, 1000),
		tradeOn(monday.AddDate(0, 0, 7), 3000), // following Monday
		tradeOn(monday.AddDate(0, 0, 1), -500), // Tuesday
	}

	buckets := BuildWeekdayBuckets(trades)

	require.Len(t, buckets, 7)
	assert.Equal(t, 2000.0, buckets[1].AvgPnL)
	assert.Equal(t, 2, buckets[1].Count)
	assert.Equal(t, -500.0, buckets[2].AvgPnL)
	assert.Equal(t, 1, buckets[2].Count)
}

func TestBuildHourBuckets_ObservedHoursOnly(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	nine := day.Add(9*time.Hour + 15*time.Minute)
	fourteen := day.Add(14 * time.Hour)

	trades := []journal.Trade{
		{Date: day, PnL: 100, Symbol: "A", EntryTime: &nine},
		{Date: day, PnL: 300, Symbol: "B", EntryTime: &nine},
		{Date: day, PnL: -50, Symbol: "C", EntryTime: &fourteen},
	}

	buckets := BuildHourBuckets(trades)

	require.Len(t, buckets, 2)
	assert.Equal(t, 9, buckets[0].Hour)
	assert.Equal(t, "09:00", buckets[0].Label)
	assert.Equal(t, 200.0, buckets[0].AvgPnL)
	assert.Equal(t, 400.0, buckets[0].TotalPnL)
	assert.Equal(t, 14, buckets[1].Hour)
}

func TestBuildHourBuckets_FallsBackToDate(t *testing.T) {
	// No entry time: hour comes from the trade date itself
	trades := []journal.Trade{
		tradeOn(time.Date(2024, 4, 1, 11, 30, 0, 0, time.UTC), 250),
	}

	buckets := BuildHourBuckets(trades)

	require.Len(t, buckets, 1)
	assert.Equal(t, 11, buckets[0].Hour)
}

func TestBuildEquityCurve_Cumulative(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	trades := []journal.Trade{
		tradeOn(day.AddDate(0, 0, 2), -500),
		tradeOn(day, 1000),
		tradeOn(day, 500),
		tradeOn(day.AddDate(0, 0, 1), 200),
	}

	points := BuildEquityCurve(trades, 0)

	require.Len(t, points, 3)
	assert.Equal(t, "2024-04-01", points[0].Date)
	assert.Equal(t, 1500.0, points[0].Equity)
	assert.Equal(t, 1700.0, points[1].Equity)
	assert.Equal(t, 1200.0, points[2].Equity)
}

func TestBuildEquityCurve_Empty(t *testing.T) {
	points := BuildEquityCurve(nil, 5)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestBuildEquityCurve_SmoothingOverlay(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	var trades []journal.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, tradeOn(day.AddDate(0, 0, i), 100))
	}

	points := BuildEquityCurve(trades, 3)

	require.Len(t, points, 5)
	// Warm-up period carries no overlay
	assert.Zero(t, points[0].Smoothed)
	assert.Zero(t, points[1].Smoothed)
	// SMA(3) of equities 100,200,300 = 200
	assert.InDelta(t, 200.0, points[2].Smoothed, 1e-9)
	assert.InDelta(t, 300.0, points[3].Smoothed, 1e-9)
	assert.InDelta(t, 400.0, points[4].Smoothed, 1e-9)
}
