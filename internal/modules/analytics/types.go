// Package analytics computes the derived views behind the journal dashboard:
// summary statistics, time-bucketed P&L series, and categorical breakdowns.
// Everything in this package is a pure transformation over an in-memory trade
// slice; trades are never mutated and results are recomputed on demand.
package analytics

import (
	"time"
)

// DateRange is an inclusive [From, To] calendar interval.
// A zero From means "no filtering"; a zero To means "up to now".
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TrendDelta expresses a directional change against the reference
// sub-population (first half vs second half of the filtered set).
type TrendDelta struct {
	DeltaPct  float64 `json:"delta_pct"`
	Improving bool    `json:"improving"`
}

// Summary holds the scalar statistics for a filtered trade set.
type Summary struct {
	TotalPnL      float64    `json:"total_pnl"`
	WinRate       int        `json:"win_rate"`
	TradeCount    int        `json:"trade_count"`
	AvgRiskReward float64    `json:"avg_risk_reward"`
	PnLTrend      TrendDelta `json:"pnl_trend"`
	WinRateTrend  TrendDelta `json:"win_rate_trend"`
}

// SeriesPoint is a single chart bucket.
type SeriesPoint struct {
	Label string  `json:"label"`
	PnL   float64 `json:"pnl"`
}

// WeekdayBucket is the average P&L for one day of the week.
// All seven weekdays are always present, Sunday first.
type WeekdayBucket struct {
	Weekday string  `json:"weekday"`
	AvgPnL  float64 `json:"avg_pnl"`
	Count   int     `json:"count"`
}

// HourBucket is the P&L profile for one hour of the day.
// Only hours with at least one trade are emitted.
type HourBucket struct {
	Hour     int     `json:"hour"`
	Label    string  `json:"label"`
	AvgPnL   float64 `json:"avg_pnl"`
	TotalPnL float64 `json:"total_pnl"`
	Count    int     `json:"count"`
}

// EquityPoint is one day on the cumulative P&L curve.
type EquityPoint struct {
	Date     string  `json:"date"`
	Equity   float64 `json:"equity"`
	Smoothed float64 `json:"smoothed,omitempty"`
}

// CategoryStat is the aggregate for one categorical key.
type CategoryStat struct {
	Key      string  `json:"key"`
	Count    int     `json:"count"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
	WinRate  int     `json:"win_rate"`
}

// Report bundles every derived view for one (trades, range) pair.
// This is what the dashboard fetches and what the snapshot cache stores.
type Report struct {
	Summary     Summary         `json:"summary"`
	Series      []SeriesPoint   `json:"series"`
	Weekdays    []WeekdayBucket `json:"weekdays"`
	Hours       []HourBucket    `json:"hours"`
	Moods       []CategoryStat  `json:"moods"`
	Strategies  []CategoryStat  `json:"strategies"`
	Options     []CategoryStat  `json:"options"`
	GeneratedAt time.Time       `json:"generated_at"`
}
