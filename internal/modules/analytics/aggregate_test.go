package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tradebook/journal/internal/modules/journal"
)

func TestAggregate_EmptySet(t *testing.T) {
	summary := Aggregate(nil)

	assert.Zero(t, summary.TotalPnL)
	assert.Zero(t, summary.WinRate)
	assert.Zero(t, summary.TradeCount)
	assert.Zero(t, summary.AvgRiskReward)
	assert.Zero(t, summary.PnLTrend.DeltaPct)
}

func TestAggregate_TotalsAndWinRate(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	trades := []journal.Trade{
		tradeOn(day, 5000),
		tradeOn(day.AddDate(0, 0, 1), -2000),
		tradeOn(day.AddDate(0, 0, 2), 3000),
	}

	summary := Aggregate(trades)

	assert.Equal(t, 6000.0, summary.TotalPnL)
	assert.Equal(t, 3, summary.TradeCount)
	// 2 of 3 wins: 66.67 rounds to 67
	assert.Equal(t, 67, summary.WinRate)
}

func TestAggregate_ZeroPnLIsNotAWin(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	trades := []journal.Trade{
		tradeOn(day, 0),
		tradeOn(day, 100),
	}

	summary := Aggregate(trades)
	assert.Equal(t, 50, summary.WinRate)
}

func TestAggregate_WinRateRounding(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	// 1 of 3 wins: 33.33 rounds to 33
	trades := []journal.Trade{tradeOn(day, 100), tradeOn(day, -1), tradeOn(day, -1)}
	assert.Equal(t, 33, Aggregate(trades).WinRate)

	// 1 of 8 wins: 12.5 rounds to 13
	trades = []journal.Trade{tradeOn(day, 100)}
	for i := 0; i < 7; i++ {
		trades = append(trades, tradeOn(day, -1))
	}
	assert.Equal(t, 13, Aggregate(trades).WinRate)
}

func TestAggregate_AvgRiskRewardIgnoresMissing(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rr2, rr4 := 2.0, 4.0

	trades := []journal.Trade{
		{Date: day, PnL: 100, Symbol: "A", RiskReward: &rr2},
		{Date: day, PnL: 100, Symbol: "B"}, // no ratio, excluded from average
		{Date: day, PnL: 100, Symbol: "C", RiskReward: &rr4},
	}

	summary := Aggregate(trades)

	assert.Equal(t, 3.0, summary.AvgRiskReward)
	assert.Equal(t, 3, summary.TradeCount, "missing ratio still counts toward everything else")
}

func TestAggregate_TrendSecondHalfVsFirstHalf(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	// First half (by date): 1000, 1000. Second half: 1500, 2500.
	// PnL trend: (4000-2000)/2000 = +100%
	trades := []journal.Trade{
		tradeOn(day.AddDate(0, 0, 3), 2500),
		tradeOn(day, 1000),
		tradeOn(day.AddDate(0, 0, 2), 1500),
		tradeOn(day.AddDate(0, 0, 1), 1000),
	}

	summary := Aggregate(trades)

	assert.Equal(t, 100.0, summary.PnLTrend.DeltaPct)
	assert.True(t, summary.PnLTrend.Improving)
	// Both halves all wins: win rate flat
	assert.Equal(t, 0.0, summary.WinRateTrend.DeltaPct)
	assert.True(t, summary.WinRateTrend.Improving)
}

func TestAggregate_TrendDecline(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	// First half: +2000. Second half: -1000. Delta: -150%.
	trades := []journal.Trade{
		tradeOn(day, 2000),
		tradeOn(day.AddDate(0, 0, 1), -1000),
	}

	summary := Aggregate(trades)

	assert.Equal(t, -150.0, summary.PnLTrend.DeltaPct)
	assert.False(t, summary.PnLTrend.Improving)
}

func TestAggregate_TrendOddCountFirstHalfLarger(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	// 3 trades: first half gets 2, second half gets 1.
	// First half: 1000+1000=2000. Second half: 3000. Delta: +50%.
	trades := []journal.Trade{
		tradeOn(day, 1000),
		tradeOn(day.AddDate(0, 0, 1), 1000),
		tradeOn(day.AddDate(0, 0, 2), 3000),
	}

	summary := Aggregate(trades)
	assert.Equal(t, 50.0, summary.PnLTrend.DeltaPct)
}

func TestAggregate_SingleTradeHasFlatTrend(t *testing.T) {
	trades := []journal.Trade{tradeOn(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 500)}

	summary := Aggregate(trades)

	assert.Zero(t, summary.PnLTrend.DeltaPct)
	assert.Zero(t, summary.WinRateTrend.DeltaPct)
}

func TestTrendDelta_ZeroReference(t *testing.T) {
	assert.Equal(t, TrendDelta{DeltaPct: 0, Improving: true}, trendDelta(0, 0))
	assert.Equal(t, TrendDelta{DeltaPct: 100, Improving: true}, trendDelta(0, 500))
	assert.Equal(t, TrendDelta{DeltaPct: -100, Improving: false}, trendDelta(0, -500))
}

func TestTrendDelta_NegativeReference(t *testing.T) {
	// From -1000 to -500 is a +50% improvement against |prev|
	got := trendDelta(-1000, -500)
	assert.Equal(t, 50.0, got.DeltaPct)
	assert.True(t, got.Improving)
}
