// Package journal provides persistence for trade journal entries.
package journal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Market segment values recognized by the options classifier.
const (
	SegmentOptions = "options"
	SegmentEquity  = "equity"
	SegmentFutures = "futures"
)

// Option type values. CE is a call option, PE a put option.
const (
	OptionCE = "CE"
	OptionPE = "PE"
)

// Trade is a single journal entry: one executed trade with its outcome
// and the trader's own annotations (strategy, mood, risk plan).
type Trade struct {
	ID            string     `json:"id"`
	Date          time.Time  `json:"date"`
	PnL           float64    `json:"pnl"`
	Symbol        string     `json:"symbol"`
	Strategy      string     `json:"strategy,omitempty"`
	Mood          string     `json:"mood,omitempty"`
	EntryTime     *time.Time `json:"entry_time,omitempty"`
	ExitTime      *time.Time `json:"exit_time,omitempty"`
	RiskReward    *float64   `json:"risk_reward,omitempty"`
	MarketSegment string     `json:"market_segment,omitempty"`
	OptionType    string     `json:"option_type,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Validate checks trade invariants before database insertion
func (t *Trade) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("trade date is required")
	}
	if math.IsNaN(t.PnL) || math.IsInf(t.PnL, 0) {
		return fmt.Errorf("trade pnl must be a finite number")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("trade symbol is required")
	}
	if t.RiskReward != nil && (math.IsNaN(*t.RiskReward) || *t.RiskReward < 0) {
		return fmt.Errorf("risk/reward ratio must be a non-negative number")
	}
	if t.EntryTime != nil && t.ExitTime != nil && t.ExitTime.Before(*t.EntryTime) {
		return fmt.Errorf("exit time cannot precede entry time")
	}
	return nil
}

// HoldingMinutes returns the holding duration in minutes, or false when
// either timestamp is missing.
func (t *Trade) HoldingMinutes() (float64, bool) {
	if t.EntryTime == nil || t.ExitTime == nil {
		return 0, false
	}
	return t.ExitTime.Sub(*t.EntryTime).Minutes(), true
}

// IsWin reports whether the trade closed with a positive P&L.
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}
