package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tradebook/journal/internal/modules/journal"
)

// KeyFunc maps a trade to a categorical key. The boolean is false when the
// key cannot be determined; such trades are excluded from the breakdown.
type KeyFunc func(journal.Trade) (string, bool)

// BreakdownBy groups trades by a categorical key and computes per-category
// statistics, sorted by count descending (key ascending on ties, so output
// is deterministic).
func BreakdownBy(trades []journal.Trade, key KeyFunc) []CategoryStat {
	type acc struct {
		count int
		total float64
		wins  int
	}
	byKey := make(map[string]*acc)

	for _, t := range trades {
		k, ok := key(t)
		if !ok {
			continue
		}
		a, ok := byKey[k]
		if !ok {
			a = &acc{}
			byKey[k] = a
		}
		a.count++
		a.total += t.PnL
		if t.IsWin() {
			a.wins++
		}
	}

	stats := make([]CategoryStat, 0, len(byKey))
	for k, a := range byKey {
		stats = append(stats, CategoryStat{
			Key:      k,
			Count:    a.count,
			TotalPnL: a.total,
			AvgPnL:   a.total / float64(a.count),
			WinRate:  int(math.Round(100 * float64(a.wins) / float64(a.count))),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Key < stats[j].Key
	})

	return stats
}

// MoodKey groups by the trader's mood tag.
func MoodKey(t journal.Trade) (string, bool) {
	if t.Mood == "" {
		return "", false
	}
	return t.Mood, true
}

// StrategyKey groups by strategy name.
func StrategyKey(t journal.Trade) (string, bool) {
	if t.Strategy == "" {
		return "", false
	}
	return t.Strategy, true
}

// OptionTypeKey classifies options trades as Call or Put.
// The explicit option-type field wins; otherwise the symbol is matched
// case-insensitively, CE before PE, so a symbol containing both lands in
// Calls only. Trades matching neither are excluded.
func OptionTypeKey(t journal.Trade) (string, bool) {
	switch strings.ToUpper(t.OptionType) {
	case journal.OptionCE:
		return "Call", true
	case journal.OptionPE:
		return "Put", true
	}

	symbol := strings.ToUpper(t.Symbol)
	if strings.Contains(symbol, journal.OptionCE) {
		return "Call", true
	}
	if strings.Contains(symbol, journal.OptionPE) {
		return "Put", true
	}

	return "", false
}

// RiskRewardKey groups by the planned risk/reward ratio, labeled "1:N".
func RiskRewardKey(t journal.Trade) (string, bool) {
	if t.RiskReward == nil {
		return "", false
	}
	return fmt.Sprintf("1:%g", *t.RiskReward), true
}

// HoldingBucketKey groups by holding duration. Trades missing either
// timestamp are excluded.
func HoldingBucketKey(t journal.Trade) (string, bool) {
	minutes, ok := t.HoldingMinutes()
	if !ok {
		return "", false
	}

	switch {
	case minutes < 15:
		return "under 15m", true
	case minutes < 60:
		return "15m to 1h", true
	case minutes < 240:
		return "1h to 4h", true
	default:
		return "over 4h", true
	}
}
