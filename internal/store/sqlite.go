package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// wallClock stores dates as zone-less wall-clock text so they read back as
// the same calendar date in the journal's location.
const wallClock = "2006-01-02T15:04:05.999999999"

// SQLiteMirror persists the trade collection per account, last write wins.
// It is never the source of truth during a session; the TradeStore is.
type SQLiteMirror struct {
	db     *sql.DB
	loc    *time.Location
	logger zerolog.Logger
}

// NewSQLiteMirror opens (or creates) the database at dbPath.
func NewSQLiteMirror(dbPath string, loc *time.Location, logger zerolog.Logger) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", errors.ErrDatabaseError, dbPath, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if loc == nil {
		loc = time.Local
	}
	m := &SQLiteMirror{
		db:     db,
		loc:    loc,
		logger: logging.WithComponent(logger, "sqlite_mirror"),
	}

	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", errors.ErrDatabaseError, err)
	}

	return m, nil
}

// initSchema creates all required tables and indexes.
func (m *SQLiteMirror) initSchema() error {
	schema := `
	-- Imported trades, one row per trade, ordered by seq within an account
	CREATE TABLE IF NOT EXISTS trades (
		account TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		open_date TEXT NOT NULL,
		close_date TEXT,
		expiration_date TEXT,
		entry_price REAL NOT NULL DEFAULT 0,
		exit_price REAL NOT NULL DEFAULT 0,
		stop_loss REAL,
		profit_target REAL,
		net_pnl REAL NOT NULL,
		net_roi REAL NOT NULL DEFAULT 0,
		quantity REAL NOT NULL DEFAULT 0,
		commission REAL NOT NULL DEFAULT 0,
		notes TEXT,
		tags TEXT,
		PRIMARY KEY (account, seq)
	);

	-- Journal notes
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT,
		mood TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_account_open ON trades(account, open_date);
	CREATE INDEX IF NOT EXISTS idx_journal_date ON journal(date);
	`

	_, err := m.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

// SaveTrades replaces the stored trades of account in one transaction.
func (m *SQLiteMirror) SaveTrades(ctx context.Context, account string, trades []models.TradeRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE account = ?`, account); err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (account, seq, id, symbol, side, open_date, close_date, expiration_date, entry_price, exit_price, stop_loss, profit_target, net_pnl, net_roi, quantity, commission, notes, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range trades {
		tags, _ := json.Marshal(t.Tags)
		_, err := stmt.ExecContext(ctx,
			account, i, t.ID, t.Symbol, string(t.Side),
			t.OpenDate.Format(wallClock), formatOptionalTime(t.CloseDate), formatOptionalTime(t.ExpirationDate),
			t.EntryPrice, t.ExitPrice, nullFloat(t.StopLoss), nullFloat(t.ProfitTarget),
			t.NetPnL, t.NetROI, t.Quantity, t.Commission, t.Notes, string(tags))
		if err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTrades returns the stored trades of account in saved order.
func (m *SQLiteMirror) LoadTrades(ctx context.Context, account string) ([]models.TradeRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, symbol, side, open_date, close_date, expiration_date, entry_price, exit_price, stop_loss, profit_target, net_pnl, net_roi, quantity, commission, COALESCE(notes, ''), COALESCE(tags, 'null')
		FROM trades
		WHERE account = ?
		ORDER BY seq ASC
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.TradeRecord{}
	for rows.Next() {
		var t models.TradeRecord
		var side, openDate, tagsJSON string
		var closeDate, expDate sql.NullString
		var stop, target sql.NullFloat64

		if err := rows.Scan(&t.ID, &t.Symbol, &side, &openDate, &closeDate, &expDate, &t.EntryPrice, &t.ExitPrice, &stop, &target, &t.NetPnL, &t.NetROI, &t.Quantity, &t.Commission, &t.Notes, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		t.Side = models.Side(side)
		if t.OpenDate, err = time.ParseInLocation(wallClock, openDate, m.loc); err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.ID, errors.ErrInvalidDate)
		}
		t.CloseDate = m.parseOptionalTime(closeDate)
		t.ExpirationDate = m.parseOptionalTime(expDate)
		if stop.Valid {
			v := stop.Float64
			t.StopLoss = &v
		}
		if target.Valid {
			v := target.Float64
			t.ProfitTarget = &v
		}
		json.Unmarshal([]byte(tagsJSON), &t.Tags)

		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// AccountCounts returns the number of stored trades per account.
func (m *SQLiteMirror) AccountCounts(ctx context.Context) (map[string]int, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT account, COUNT(*) FROM trades GROUP BY account ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var account string
		var n int
		if err := rows.Scan(&account, &n); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		counts[account] = n
	}
	return counts, rows.Err()
}

// Hydrate loads the stored trades into s. Call it before Attach so the
// reload is not written straight back.
func (m *SQLiteMirror) Hydrate(ctx context.Context, s *TradeStore) error {
	trades, err := m.LoadTrades(ctx, s.AccountID())
	if err != nil {
		return err
	}
	s.ReplaceTrades(trades)
	m.logger.Debug().Str("account", s.AccountID()).Int("trades", len(trades)).Msg("Store hydrated from mirror")
	return nil
}

// Attach mirrors every future mutation of s. Write failures are logged and
// never reach the store's callers.
func (m *SQLiteMirror) Attach(s *TradeStore) (detach func()) {
	return s.Subscribe(func(change Change) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := m.SaveTrades(ctx, change.AccountID, s.GetAllTrades()); err != nil {
			m.logger.Error().Err(err).Str("account", change.AccountID).Uint64("version", change.Version).Msg("Failed to mirror trades")
			return
		}
		m.logger.Debug().Str("account", change.AccountID).Int("trades", change.Trades).Msg("Trades mirrored")
	})
}

// ============================================================================
// Journal Methods
// ============================================================================

// NoteFilter represents filters for querying journal notes.
type NoteFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Tag       string
	Limit     int
}

// SaveNote inserts or replaces a journal note.
func (m *SQLiteMirror) SaveNote(ctx context.Context, note *models.JournalNote) error {
	tags, _ := json.Marshal(note.Tags)
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO journal (id, date, content, tags, mood, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, note.ID, note.Date.Format("2006-01-02"), note.Content, string(tags), note.Mood, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save journal note: %w", err)
	}
	return nil
}

// GetNotes retrieves journal notes, newest day first.
func (m *SQLiteMirror) GetNotes(ctx context.Context, filter NoteFilter) ([]models.JournalNote, error) {
	query := "SELECT id, date, content, COALESCE(tags, 'null'), COALESCE(mood, ''), created_at, updated_at FROM journal WHERE 1=1"
	args := []interface{}{}

	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}
	if filter.Tag != "" {
		query += " AND tags LIKE ?"
		args = append(args, "%\""+filter.Tag+"\"%")
	}

	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var notes []models.JournalNote
	for rows.Next() {
		var n models.JournalNote
		var date, tagsJSON string
		if err := rows.Scan(&n.ID, &date, &n.Content, &tagsJSON, &n.Mood, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal note: %w", err)
		}
		n.Date, _ = time.ParseInLocation("2006-01-02", date, m.loc)
		json.Unmarshal([]byte(tagsJSON), &n.Tags)
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

// DeleteNote removes a journal note.
func (m *SQLiteMirror) DeleteNote(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM journal WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal note: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Wrapf(errors.ErrDataNotFound, "journal note %s", id)
	}
	return nil
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(wallClock)
}

func (m *SQLiteMirror) parseOptionalTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.ParseInLocation(wallClock, s.String, m.loc)
	if err != nil {
		return nil
	}
	return &t
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
