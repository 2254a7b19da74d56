package analytics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tradebook/journal/internal/modules/journal"
)

// RawTrade is the untrusted shape trades arrive in from imports and older
// exports: dates may be strings or numbers, numerics may be strings, and
// several fields go by more than one name. Normalize is the only place this
// coercion happens.
type RawTrade struct {
	ID            string      `json:"id"`
	Date          interface{} `json:"date"`
	PnL           interface{} `json:"pnl"`
	Symbol        string      `json:"symbol"`
	Strategy      string      `json:"strategy"`
	Mood          string      `json:"mood"`
	Emotion       string      `json:"emotion"`
	EntryTime     interface{} `json:"entryTime"`
	ExitTime      interface{} `json:"exitTime"`
	RiskToReward  interface{} `json:"riskToReward"`
	RiskReward    interface{} `json:"risk_reward"`
	MarketSegment string      `json:"marketSegment"`
	OptionType    string      `json:"optionType"`
	Notes         string      `json:"notes"`
}

// dateLayouts are tried in order when a date arrives as a string.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Normalize coerces a raw record into a canonical Trade.
// Returns an error only when the date cannot be resolved to a valid calendar
// date; callers are expected to drop such records, not fail.
func Normalize(raw RawTrade) (journal.Trade, error) {
	date, ok := coerceTime(raw.Date)
	if !ok {
		return journal.Trade{}, fmt.Errorf("unresolvable trade date: %v", raw.Date)
	}

	pnl, ok := coerceFloat(raw.PnL)
	if !ok {
		return journal.Trade{}, fmt.Errorf("unresolvable pnl: %v", raw.PnL)
	}

	trade := journal.Trade{
		ID:            raw.ID,
		Date:          date,
		PnL:           pnl,
		Symbol:        strings.ToUpper(strings.TrimSpace(raw.Symbol)),
		Strategy:      strings.TrimSpace(raw.Strategy),
		MarketSegment: strings.ToLower(strings.TrimSpace(raw.MarketSegment)),
		OptionType:    strings.ToUpper(strings.TrimSpace(raw.OptionType)),
		Notes:         raw.Notes,
	}

	// "mood" and "emotion" are the same field under two names
	trade.Mood = strings.TrimSpace(raw.Mood)
	if trade.Mood == "" {
		trade.Mood = strings.TrimSpace(raw.Emotion)
	}

	if t, ok := coerceTime(raw.EntryTime); ok {
		trade.EntryTime = &t
	}
	if t, ok := coerceTime(raw.ExitTime); ok {
		trade.ExitTime = &t
	}

	// "riskToReward" and "risk_reward" are the same field under two names
	if rr, ok := coerceFloat(raw.RiskToReward); ok {
		trade.RiskReward = &rr
	} else if rr, ok := coerceFloat(raw.RiskReward); ok {
		trade.RiskReward = &rr
	}

	return trade, nil
}

// NormalizeAll coerces a batch, dropping records whose date is unresolvable.
// Returns the surviving trades and the number of dropped records.
func NormalizeAll(raws []RawTrade) ([]journal.Trade, int) {
	trades := make([]journal.Trade, 0, len(raws))
	dropped := 0

	for _, raw := range raws {
		trade, err := Normalize(raw)
		if err != nil {
			dropped++
			continue
		}
		trades = append(trades, trade)
	}

	return trades, dropped
}

// coerceTime resolves a date that may be a string, a Unix timestamp in
// seconds or milliseconds, or already missing.
func coerceTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		// Numeric string timestamp
		if n, err := strconv.ParseFloat(s, 64); err == nil && isFinite(n) {
			return unixToTime(n), true
		}
		return time.Time{}, false
	case float64:
		if !isFinite(val) {
			return time.Time{}, false
		}
		return unixToTime(val), true
	case int64:
		return unixToTime(float64(val)), true
	case int:
		return unixToTime(float64(val)), true
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	default:
		return time.Time{}, false
	}
}

// unixToTime interprets values above 1e12 as milliseconds, else seconds.
func unixToTime(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// coerceFloat resolves a numeric field that may arrive as a number or string.
// Non-finite values (ParseFloat happily accepts "NaN" and "Inf") are rejected
// so they never reach the aggregate math or the repository.
func coerceFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, isFinite(val)
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && isFinite(f) {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
