package journal

import (
	"database/sql"
	"fmt"
)

// schema is the single source of truth for the trades table.
const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	trade_date INTEGER NOT NULL,
	pnl REAL NOT NULL,
	strategy TEXT,
	mood TEXT,
	entry_time INTEGER,
	exit_time INTEGER,
	risk_reward REAL,
	market_segment TEXT,
	option_type TEXT,
	notes TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trade_date);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`

// InitSchema creates the trades table and indexes if they don't exist
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return nil
}
