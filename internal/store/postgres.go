package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"StockIntel/internal/model"
)

const pgErrUniqueViolation = "23505"

// PostgresStore persists to PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, verifies the connection and runs migrations.
func NewPostgresStore(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres", logger)
	db.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("postgres store opened")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) EnsureCompany(ctx context.Context, symbol string) (*model.Company, error) {
	c := newCompany(symbol)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (symbol, name, exchange) VALUES ($1, $2, $3)
		 ON CONFLICT (symbol) DO NOTHING`,
		c.Symbol, c.Name, c.Exchange,
	)
	if err != nil && !isDuplicateKeyError(err) {
		return nil, fmt.Errorf("insert company %s: %w", symbol, err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT id, symbol, name, exchange, created_at FROM companies WHERE symbol = $1`, symbol,
	).Scan(&c.ID, &c.Symbol, &c.Name, &c.Exchange, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("select company %s: %w", symbol, err)
	}
	return &c, nil
}

func (s *PostgresStore) StoreHistory(ctx context.Context, symbol string, bars []model.EnrichedBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, b := range bars {
		r := toStoredRow(b)
		batch.Queue(`INSERT INTO stock_prices
			(symbol, date, open, high, low, close, adjusted_close, volume,
			 daily_return, ma_7, high_52w, low_52w, volatility_30d, company_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,
			        (SELECT id FROM companies WHERE symbol = $1))
			ON CONFLICT (symbol, date) DO NOTHING`,
			symbol, b.Date.Time(), r.open, r.high, r.low, r.close, r.adjClose, r.volume,
			r.ret, r.ma7, r.hi, r.lo, r.vol,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for _, b := range bars {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert %s %s: %w", symbol, b.Date, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, name, exchange, created_at FROM companies ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := []model.Company{}
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Name, &c.Exchange, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *PostgresStore) RecentBars(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+priceColumns+`
		FROM stock_prices WHERE symbol = $1 ORDER BY date DESC LIMIT $2`, symbol, limit)
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

func (s *PostgresStore) HasBars(ctx context.Context, symbol string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM stock_prices WHERE symbol = $1 LIMIT 1`, symbol).Scan(&one)
	if isNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe bars %s: %w", symbol, err)
	}
	return true, nil
}

func (s *PostgresStore) CountBars(ctx context.Context, symbol string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_prices WHERE symbol = $1`, symbol).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bars %s: %w", symbol, err)
	}
	return n, nil
}

func (s *PostgresStore) Aggregates(ctx context.Context, symbol string) (model.Aggregates, error) {
	var agg model.Aggregates
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(high_52w), MIN(low_52w), AVG(close) FROM stock_prices WHERE symbol = $1`,
		symbol,
	).Scan(&agg.High52w, &agg.Low52w, &agg.AvgClose)
	if err != nil {
		return model.Aggregates{}, fmt.Errorf("aggregate %s: %w", symbol, err)
	}
	return agg, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.logger.Info("closing postgres store")
	s.pool.Close()
	return nil
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
