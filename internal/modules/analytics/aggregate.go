package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tradebook/journal/internal/modules/journal"
)

// Aggregate computes the scalar summary statistics for a trade set.
// An empty set yields a well-defined zero summary, not an error.
func Aggregate(trades []journal.Trade) Summary {
	summary := Summary{TradeCount: len(trades)}
	if len(trades) == 0 {
		return summary
	}

	wins := 0
	var riskRewards []float64
	for _, t := range trades {
		summary.TotalPnL += t.PnL
		if t.IsWin() {
			wins++
		}
		// Trades without a ratio are excluded from this average only;
		// they still count toward TradeCount and TotalPnL.
		if t.RiskReward != nil {
			riskRewards = append(riskRewards, *t.RiskReward)
		}
	}

	summary.WinRate = int(math.Round(100 * float64(wins) / float64(len(trades))))

	if len(riskRewards) > 0 {
		summary.AvgRiskReward = stat.Mean(riskRewards, nil)
	}

	summary.PnLTrend, summary.WinRateTrend = computeTrends(trades)

	return summary
}

// computeTrends compares the second half of the date-ordered trade set
// against the first half. On odd counts the first half gets the extra trade.
func computeTrends(trades []journal.Trade) (pnl TrendDelta, winRate TrendDelta) {
	if len(trades) < 2 {
		return TrendDelta{}, TrendDelta{}
	}

	ordered := make([]journal.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	split := (len(ordered) + 1) / 2
	first, second := ordered[:split], ordered[split:]

	pnl = trendDelta(sumPnL(first), sumPnL(second))
	winRate = trendDelta(winPct(first), winPct(second))
	return pnl, winRate
}

// trendDelta is the signed percentage change from prev to curr.
// A zero reference is reported as flat, or as a full swing in the
// direction of curr when curr is nonzero.
func trendDelta(prev, curr float64) TrendDelta {
	var pct float64
	switch {
	case prev == 0 && curr == 0:
		pct = 0
	case prev == 0:
		pct = 100 * sign(curr)
	default:
		pct = 100 * (curr - prev) / math.Abs(prev)
	}

	return TrendDelta{
		DeltaPct:  math.Round(pct*10) / 10,
		Improving: pct >= 0,
	}
}

func sumPnL(trades []journal.Trade) float64 {
	var sum float64
	for _, t := range trades {
		sum += t.PnL
	}
	return sum
}

func winPct(trades []journal.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.IsWin() {
			wins++
		}
	}
	return 100 * float64(wins) / float64(len(trades))
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
