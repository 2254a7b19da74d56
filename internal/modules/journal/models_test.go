package journal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradeValidate(t *testing.T) {
	date := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	valid := Trade{Date: date, PnL: 100, Symbol: "NIFTY"}
	assert.NoError(t, valid.Validate())

	noDate := Trade{PnL: 100, Symbol: "NIFTY"}
	assert.Error(t, noDate.Validate())

	noSymbol := Trade{Date: date, PnL: 100, Symbol: "   "}
	assert.Error(t, noSymbol.Validate())

	nanPnL := Trade{Date: date, PnL: math.NaN(), Symbol: "NIFTY"}
	assert.Error(t, nanPnL.Validate())

	negRR := -1.0
	badRatio := Trade{Date: date, PnL: 100, Symbol: "NIFTY", RiskReward: &negRR}
	assert.Error(t, badRatio.Validate())

	entry := date.Add(10 * time.Hour)
	exit := entry.Add(-time.Hour)
	backwards := Trade{Date: date, PnL: 100, Symbol: "NIFTY", EntryTime: &entry, ExitTime: &exit}
	assert.Error(t, backwards.Validate())
}

func TestTradeHoldingMinutes(t *testing.T) {
	entry := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	exit := entry.Add(90 * time.Minute)

	trade := Trade{EntryTime: &entry, ExitTime: &exit}
	minutes, ok := trade.HoldingMinutes()
	assert.True(t, ok)
	assert.Equal(t, 90.0, minutes)

	_, ok = (&Trade{EntryTime: &entry}).HoldingMinutes()
	assert.False(t, ok)
}

func TestTradeIsWin(t *testing.T) {
	assert.True(t, (&Trade{PnL: 0.01}).IsWin())
	assert.False(t, (&Trade{PnL: 0}).IsWin())
	assert.False(t, (&Trade{PnL: -100}).IsWin())
}
