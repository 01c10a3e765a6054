package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// SQLiteStore persists fused-signal history and portfolio snapshots for
// offline analysis. Trades are intentionally not stored here; the exchange
// account is the source of truth for fills.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			market TEXT NOT NULL,
			signal INTEGER NOT NULL,
			confidence REAL NOT NULL,
			weighted_sum REAL NOT NULL,
			price REAL NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_market ON signals(market, created_at);`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			total_balance REAL NOT NULL,
			cash_balance REAL NOT NULL,
			risk_level TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	query := `INSERT INTO signals (market, signal, confidence, weighted_sum, price, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.Market, rec.Signal, rec.Confidence, rec.WeightedSum, rec.Price, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) ListSignals(ctx context.Context, market string, limit int) ([]*domain.SignalRecord, error) {
	query := `SELECT id, market, signal, confidence, weighted_sum, price, created_at
			  FROM signals WHERE market = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, market, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SignalRecord
	for rows.Next() {
		var r domain.SignalRecord
		if err := rows.Scan(&r.ID, &r.Market, &r.Signal, &r.Confidence, &r.WeightedSum, &r.Price, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SavePortfolioSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	query := `INSERT INTO portfolio_snapshots (total_balance, cash_balance, risk_level, created_at)
			  VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		snap.TotalBalance, snap.CashBalance, snap.RiskLevel, snap.CreatedAt)
	return err
}

func (s *SQLiteStore) ListPortfolioSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	query := `SELECT id, total_balance, cash_balance, risk_level, created_at
			  FROM portfolio_snapshots ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*domain.PortfolioSnapshot
	for rows.Next() {
		var snap domain.PortfolioSnapshot
		if err := rows.Scan(&snap.ID, &snap.TotalBalance, &snap.CashBalance, &snap.RiskLevel, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

// Markets returns the distinct markets that have recorded signals.
func (s *SQLiteStore) Markets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT market FROM signals ORDER BY market`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
