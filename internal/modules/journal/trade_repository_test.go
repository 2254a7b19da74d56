package journal

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the trades schema
func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return db
}

func newTestRepo(t *testing.T) *TradeRepository {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewTradeRepository(setupTestDB(t), log)
}

func sampleTrade(date time.Time, pnl float64) Trade {
	return Trade{
		Date:   date,
		PnL:    pnl,
		Symbol: "NIFTY24APR22500CE",
	}
}

func TestTradeRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	entry := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	exit := entry.Add(45 * time.Minute)
	rr := 2.0

	trade := Trade{
		Date:          time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		PnL:           1500,
		Symbol:        "nifty24apr22500ce", // stored uppercase
		Strategy:      "breakout",
		Mood:          "calm",
		EntryTime:     &entry,
		ExitTime:      &exit,
		RiskReward:    &rr,
		MarketSegment: "options",
		OptionType:    "ce",
		Notes:         "clean setup",
	}

	id, err := repo.Create(trade)
	require.NoError(t, err)
	require.NotEmpty(t, id, "missing ID gets generated")

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "NIFTY24APR22500CE", got.Symbol)
	assert.Equal(t, 1500.0, got.PnL)
	assert.Equal(t, "breakout", got.Strategy)
	assert.Equal(t, "calm", got.Mood)
	assert.Equal(t, "CE", got.OptionType)
	require.NotNil(t, got.EntryTime)
	assert.Equal(t, entry.Unix(), got.EntryTime.Unix())
	require.NotNil(t, got.RiskReward)
	assert.Equal(t, 2.0, *got.RiskReward)
	require.NotNil(t, got.CreatedAt)
}

func TestTradeRepository_CreateRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(Trade{PnL: 100, Symbol: "NIFTY"}) // no date
	assert.Error(t, err)

	_, err = repo.Create(Trade{Date: time.Now(), PnL: 100}) // no symbol
	assert.Error(t, err)
}

func TestTradeRepository_GetByIDMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTradeRepository_Update(t *testing.T) {
	repo := newTestRepo(t)

	id, err := repo.Create(sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	updated := sampleTrade(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), -250)
	updated.ID = id
	updated.Strategy = "reversal"

	require.NoError(t, repo.Update(updated))

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, -250.0, got.PnL)
	assert.Equal(t, "reversal", got.Strategy)
}

func TestTradeRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepo(t)

	trade := sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 100)
	trade.ID = "no-such-id"

	err := repo.Update(trade)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestTradeRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)

	id, err := repo.Create(sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(id))

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.Delete(id), ErrTradeNotFound)
}

func TestTradeRepository_GetAllOrdered(t *testing.T) {
	repo := newTestRepo(t)

	// Inserted out of order, returned by date ascending
	_, err := repo.Create(sampleTrade(time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), 3))
	require.NoError(t, err)
	_, err = repo.Create(sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 1))
	require.NoError(t, err)
	_, err = repo.Create(sampleTrade(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), 2))
	require.NoError(t, err)

	trades, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, []float64{1, 2, 3}, []float64{trades[0].PnL, trades[1].PnL, trades[2].PnL})
}

func TestTradeRepository_GetAllInRange(t *testing.T) {
	repo := newTestRepo(t)

	for day := 1; day <= 10; day++ {
		_, err := repo.Create(sampleTrade(time.Date(2024, 4, day, 12, 0, 0, 0, time.UTC), float64(day)))
		require.NoError(t, err)
	}

	trades, err := repo.GetAllInRange("2024-04-03", "2024-04-05")
	require.NoError(t, err)

	require.Len(t, trades, 3, "both endpoints inclusive")
	assert.Equal(t, 3.0, trades[0].PnL)
	assert.Equal(t, 5.0, trades[2].PnL)
}

func TestTradeRepository_CountAndLastChanged(t *testing.T) {
	repo := newTestRepo(t)

	count, err := repo.CountAll()
	require.NoError(t, err)
	assert.Zero(t, count)

	changed, err := repo.LastChangedAt()
	require.NoError(t, err)
	assert.Nil(t, changed, "empty journal has no change timestamp")

	_, err = repo.Create(sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	count, err = repo.CountAll()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	changed, err = repo.LastChangedAt()
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.WithinDuration(t, time.Now(), *changed, time.Minute)
}

func TestTradeRepository_BulkImport(t *testing.T) {
	repo := newTestRepo(t)

	trades := []Trade{
		sampleTrade(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 100),
		sampleTrade(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), -50),
		sampleTrade(time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), 75),
	}

	imported, err := repo.BulkImport(trades)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	count, err := repo.CountAll()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTradeRepository_BulkImportEmpty(t *testing.T) {
	repo := newTestRepo(t)

	imported, err := repo.BulkImport(nil)
	require.NoError(t, err)
	assert.Zero(t, imported)
}
