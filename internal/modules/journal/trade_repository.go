package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradebook/journal/internal/database"
)

// tradesColumns is the list of columns for the trades table.
// Used to avoid SELECT * which can break when the schema changes.
// Column order must match the scan helpers below.
const tradesColumns = `id, symbol, trade_date, pnl, strategy, mood, entry_time, exit_time, risk_reward, market_segment, option_type, notes, created_at`

// ErrTradeNotFound is returned when an update or delete targets a missing trade.
var ErrTradeNotFound = errors.New("trade not found")

// TradeRepository handles trade database operations
type TradeRepository struct {
	journalDB *sql.DB // journal.db - trades table
	log       zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(journalDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "trade").Logger(),
	}
}

// Create inserts a new trade record. Assigns an ID when none is provided.
func (r *TradeRepository) Create(trade Trade) (string, error) {
	if err := trade.Validate(); err != nil {
		return "", fmt.Errorf("failed to create trade: %w", err)
	}

	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	query := `
		INSERT INTO trades
		(id, symbol, trade_date, pnl, strategy, mood, entry_time, exit_time,
		 risk_reward, market_segment, option_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.journalDB.Exec(query,
		trade.ID,
		strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		trade.Date.Unix(),
		trade.PnL,
		nullString(trade.Strategy),
		nullString(trade.Mood),
		nullTimePtr(trade.EntryTime),
		nullTimePtr(trade.ExitTime),
		nullFloat64Ptr(trade.RiskReward),
		nullString(trade.MarketSegment),
		nullString(strings.ToUpper(trade.OptionType)),
		nullString(trade.Notes),
		time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Info().
		Str("id", trade.ID).
		Str("symbol", trade.Symbol).
		Float64("pnl", trade.PnL).
		Msg("Trade created")

	return trade.ID, nil
}

// Update replaces all mutable fields of an existing trade
func (r *TradeRepository) Update(trade Trade) error {
	if trade.ID == "" {
		return fmt.Errorf("failed to update trade: id is required")
	}
	if err := trade.Validate(); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	query := `
		UPDATE trades
		SET symbol = ?, trade_date = ?, pnl = ?, strategy = ?, mood = ?,
		    entry_time = ?, exit_time = ?, risk_reward = ?,
		    market_segment = ?, option_type = ?, notes = ?
		WHERE id = ?
	`

	result, err := r.journalDB.Exec(query,
		strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		trade.Date.Unix(),
		trade.PnL,
		nullString(trade.Strategy),
		nullString(trade.Mood),
		nullTimePtr(trade.EntryTime),
		nullTimePtr(trade.ExitTime),
		nullFloat64Ptr(trade.RiskReward),
		nullString(trade.MarketSegment),
		nullString(strings.ToUpper(trade.OptionType)),
		nullString(trade.Notes),
		trade.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, trade.ID)
	}

	return nil
}

// Delete removes a trade by ID
func (r *TradeRepository) Delete(id string) error {
	result, err := r.journalDB.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns nil, nil when not found.
func (r *TradeRepository) GetByID(id string) (*Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE id = ?"

	row := r.journalDB.QueryRow(query, id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by id: %w", err)
	}

	return &trade, nil
}

// GetAll retrieves all trades ordered by trade date ascending
func (r *TradeRepository) GetAll() ([]Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades ORDER BY trade_date ASC, created_at ASC"

	rows, err := r.journalDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetAllInRange retrieves all trades within a date range.
// startDate and endDate are in YYYY-MM-DD format; the end date is inclusive
// (extended to 23:59:59).
func (r *TradeRepository) GetAllInRange(startDate, endDate string) ([]Trade, error) {
	startTime, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date format (expected YYYY-MM-DD): %w", err)
	}
	startUnix := time.Date(startTime.Year(), startTime.Month(), startTime.Day(), 0, 0, 0, 0, time.UTC).Unix()

	endTime, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date format (expected YYYY-MM-DD): %w", err)
	}
	endUnix := time.Date(endTime.Year(), endTime.Month(), endTime.Day(), 23, 59, 59, 0, time.UTC).Unix()

	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := r.journalDB.Query(query, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades in range: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// CountAll returns the total number of trades
func (r *TradeRepository) CountAll() (int, error) {
	var count int
	err := r.journalDB.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// LastChangedAt returns the created_at of the most recently inserted trade,
// or nil when the journal is empty. Used for cache fingerprinting.
func (r *TradeRepository) LastChangedAt() (*time.Time, error) {
	var createdAt sql.NullInt64
	err := r.journalDB.QueryRow("SELECT MAX(created_at) FROM trades").Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get last change timestamp: %w", err)
	}
	if !createdAt.Valid {
		return nil, nil
	}
	t := time.Unix(createdAt.Int64, 0).UTC()
	return &t, nil
}

// BulkImport inserts trades in a single transaction.
// Returns the number of trades inserted.
func (r *TradeRepository) BulkImport(trades []Trade) (int, error) {
	inserted := 0

	err := database.WithTransaction(r.journalDB, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO trades
			(id, symbol, trade_date, pnl, strategy, mood, entry_time, exit_time,
			 risk_reward, market_segment, option_type, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare import statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, trade := range trades {
			if err := trade.Validate(); err != nil {
				return fmt.Errorf("invalid trade in import batch: %w", err)
			}
			id := trade.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := stmt.Exec(
				id,
				strings.ToUpper(strings.TrimSpace(trade.Symbol)),
				trade.Date.Unix(),
				trade.PnL,
				nullString(trade.Strategy),
				nullString(trade.Mood),
				nullTimePtr(trade.EntryTime),
				nullTimePtr(trade.ExitTime),
				nullFloat64Ptr(trade.RiskReward),
				nullString(trade.MarketSegment),
				nullString(strings.ToUpper(trade.OptionType)),
				nullString(trade.Notes),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", id, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Info().Int("count", inserted).Msg("Trades imported")
	return inserted, nil
}

// Scan helpers

// rowScanner abstracts sql.Row and sql.Rows for the shared scan logic
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (Trade, error) {
	var trade Trade
	var tradeDate, createdAt int64
	var entryTime, exitTime sql.NullInt64
	var strategy, mood, marketSegment, optionType, notes sql.NullString
	var riskReward sql.NullFloat64

	err := row.Scan(
		&trade.ID,
		&trade.Symbol,
		&tradeDate,
		&trade.PnL,
		&strategy,
		&mood,
		&entryTime,
		&exitTime,
		&riskReward,
		&marketSegment,
		&optionType,
		&notes,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	trade.Date = time.Unix(tradeDate, 0).UTC()

	created := time.Unix(createdAt, 0).UTC()
	trade.CreatedAt = &created

	if entryTime.Valid {
		t := time.Unix(entryTime.Int64, 0).UTC()
		trade.EntryTime = &t
	}
	if exitTime.Valid {
		t := time.Unix(exitTime.Int64, 0).UTC()
		trade.ExitTime = &t
	}
	if riskReward.Valid {
		trade.RiskReward = &riskReward.Float64
	}
	if strategy.Valid {
		trade.Strategy = strategy.String
	}
	if mood.Valid {
		trade.Mood = mood.String
	}
	if marketSegment.Valid {
		trade.MarketSegment = marketSegment.String
	}
	if optionType.Valid {
		trade.OptionType = optionType.String
	}
	if notes.Valid {
		trade.Notes = notes.String
	}

	trade.Symbol = strings.ToUpper(strings.TrimSpace(trade.Symbol))

	return trade, nil
}

func collectTrades(rows *sql.Rows) ([]Trade, error) {
	var trades []Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
