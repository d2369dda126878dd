package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"StockIntel/internal/model"
)

// SQLiteStore persists to a local SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex // serializes writers; WAL lets readers proceed
	logger *logrus.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(ctx context.Context, dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	// busy_timeout is per connection, so it goes in the DSN for the whole pool.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the HTTP readers are not blocked by an ingestion run.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite", logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.WithField("path", dbPath).Info("sqlite store opened")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) EnsureCompany(ctx context.Context, symbol string) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newCompany(symbol)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (symbol, name, exchange) VALUES (?, ?, ?)
		 ON CONFLICT (symbol) DO NOTHING`,
		c.Symbol, c.Name, c.Exchange,
	); err != nil {
		return nil, fmt.Errorf("insert company %s: %w", symbol, err)
	}

	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, exchange, created_at FROM companies WHERE symbol = ?`, symbol,
	).Scan(&c.ID, &c.Symbol, &c.Name, &c.Exchange, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("select company %s: %w", symbol, err)
	}
	c.CreatedAt = unixTime(createdAt)
	return &c, nil
}

func (s *SQLiteStore) StoreHistory(ctx context.Context, symbol string, bars []model.EnrichedBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stock_prices
		(symbol, date, open, high, low, close, adjusted_close, volume,
		 daily_return, ma_7, high_52w, low_52w, volatility_30d, company_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,
		        (SELECT id FROM companies WHERE symbol = ?))
		ON CONFLICT (symbol, date) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		r := toStoredRow(b)
		res, err := stmt.ExecContext(ctx,
			symbol, b.Date.String(), r.open, r.high, r.low, r.close, r.adjClose, r.volume,
			r.ret, r.ma7, r.hi, r.lo, r.vol, symbol,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", symbol, b.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, name, exchange, created_at FROM companies ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := []model.Company{}
	for rows.Next() {
		var c model.Company
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Name, &c.Exchange, &createdAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.CreatedAt = unixTime(createdAt)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *SQLiteStore) RecentBars(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+priceColumns+`
		FROM stock_prices WHERE symbol = ? ORDER BY date DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	bars := []model.PriceBar{}
	for rows.Next() {
		b, err := scanPriceBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverseBars(bars)
	return bars, nil
}

func (s *SQLiteStore) HasBars(ctx context.Context, symbol string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM stock_prices WHERE symbol = ? LIMIT 1`, symbol).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe bars %s: %w", symbol, err)
	}
	return true, nil
}

func (s *SQLiteStore) CountBars(ctx context.Context, symbol string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_prices WHERE symbol = ?`, symbol).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bars %s: %w", symbol, err)
	}
	return n, nil
}

func (s *SQLiteStore) Aggregates(ctx context.Context, symbol string) (model.Aggregates, error) {
	var hi, lo, avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(high_52w), MIN(low_52w), AVG(close) FROM stock_prices WHERE symbol = ?`,
		symbol,
	).Scan(&hi, &lo, &avg)
	if err != nil {
		return model.Aggregates{}, fmt.Errorf("aggregate %s: %w", symbol, err)
	}
	return model.Aggregates{
		High52w:  nullFloat(hi),
		Low52w:   nullFloat(lo),
		AvgClose: nullFloat(avg),
	}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}
