package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS rsi_runs (
        run_date       DATE PRIMARY KEY,
        run_id         UUID NOT NULL,
        started_at     TIMESTAMPTZ NOT NULL,
        finished_at    TIMESTAMPTZ NOT NULL,
        total_symbols  INTEGER NOT NULL,
        successful     INTEGER NOT NULL,
        failed         INTEGER NOT NULL,
        success_rate   NUMERIC(5,1) NOT NULL,
        severity       TEXT NOT NULL,
        failed_symbols TEXT[] NOT NULL DEFAULT '{}',
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS rsi_readings (
        run_date   DATE NOT NULL REFERENCES rsi_runs (run_date) ON DELETE CASCADE,
        symbol     TEXT NOT NULL,
        timeframe  TEXT NOT NULL,
        rsi        NUMERIC(6,2) NOT NULL,
        fetched_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (run_date, symbol, timeframe)
    );

    CREATE INDEX IF NOT EXISTS idx_rsi_readings_symbol
        ON rsi_readings (symbol, timeframe, fetched_at);`

	upsertRunSQL = `INSERT INTO rsi_runs (
        run_date,
        run_id,
        started_at,
        finished_at,
        total_symbols,
        successful,
        failed,
        success_rate,
        severity,
        failed_symbols
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (run_date) DO UPDATE
    SET
        run_id         = EXCLUDED.run_id,
        started_at     = EXCLUDED.started_at,
        finished_at    = EXCLUDED.finished_at,
        total_symbols  = EXCLUDED.total_symbols,
        successful     = EXCLUDED.successful,
        failed         = EXCLUDED.failed,
        success_rate   = EXCLUDED.success_rate,
        severity       = EXCLUDED.severity,
        failed_symbols = EXCLUDED.failed_symbols;`

	deleteReadingsForDateSQL = `DELETE FROM rsi_readings WHERE run_date = $1;`

	insertReadingSQL = `INSERT INTO rsi_readings (
        run_date,
        symbol,
        timeframe,
        rsi,
        fetched_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	listRecentRunsSQL = `SELECT
        run_date,
        run_id,
        started_at,
        finished_at,
        total_symbols,
        successful,
        failed,
        success_rate,
        severity,
        failed_symbols,
        created_at
    FROM rsi_runs
    ORDER BY run_date DESC
    LIMIT $1;`

	countRunsSQL = `SELECT COUNT(*) FROM rsi_runs;`

	symbolHistorySQL = `SELECT
        run_date,
        symbol,
        timeframe,
        rsi,
        fetched_at
    FROM rsi_readings
    WHERE symbol = $1
      AND timeframe = $2
      AND fetched_at >= $3
      AND fetched_at < $4
    ORDER BY fetched_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RunStore defines operations for run persistence.
type RunStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertRun(ctx context.Context, run RunRecord, readings []ReadingRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
}

// HistoryStore defines read access to per-symbol reading history.
type HistoryStore interface {
	SymbolHistory(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]ReadingRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to runs and readings.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the run and reading tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertRun replaces the run row for the run's date together with its
// readings. The whole write happens in one transaction so a reader never
// observes a run without its readings.
func (s *Store) UpsertRun(ctx context.Context, run RunRecord, readings []ReadingRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	failedSymbols := run.FailedSymbols
	if failedSymbols == nil {
		failedSymbols = []string{}
	}

	if _, execErr := tx.Exec(ctx, upsertRunSQL,
		run.RunDate,
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.TotalSymbols,
		run.Successful,
		run.Failed,
		run.SuccessRate.String(),
		run.Severity,
		failedSymbols,
	); execErr != nil {
		return fmt.Errorf("upsert run: %w", execErr)
	}

	if _, execErr := tx.Exec(ctx, deleteReadingsForDateSQL, run.RunDate); execErr != nil {
		return fmt.Errorf("clear readings: %w", execErr)
	}

	for _, reading := range readings {
		if _, execErr := tx.Exec(ctx, insertReadingSQL,
			run.RunDate,
			reading.Symbol,
			reading.Timeframe,
			reading.RSI.String(),
			reading.FetchedAt,
		); execErr != nil {
			return fmt.Errorf("insert reading %s/%s: %w", reading.Symbol, reading.Timeframe, execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit run upsert: %w", commitErr)
	}
	return nil
}

// ListRecentRuns lists the most recent runs ordered by descending date.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		run, scanErr := scanRunRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// CountRuns counts stored runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

// SymbolHistory lists one symbol's readings for a timeframe within a window.
func (s *Store) SymbolHistory(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]ReadingRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, symbolHistorySQL, symbol, timeframe, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("symbol history: %w", queryErr)
	}
	defer rows.Close()

	readings := make([]ReadingRecord, 0)
	for rows.Next() {
		var (
			reading ReadingRecord
			rsiStr  string
		)
		if err := rows.Scan(
			&reading.RunDate,
			&reading.Symbol,
			&reading.Timeframe,
			&rsiStr,
			&reading.FetchedAt,
		); err != nil {
			return nil, err
		}
		rsi, convErr := decimal.NewFromString(rsiStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse rsi: %w", convErr)
		}
		reading.RSI = rsi
		readings = append(readings, reading)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return readings, nil
}

func scanRunRecord(rows pgx.Rows) (RunRecord, error) {
	var (
		run     RunRecord
		rateStr string
	)

	if err := rows.Scan(
		&run.RunDate,
		&run.RunID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.TotalSymbols,
		&run.Successful,
		&run.Failed,
		&rateStr,
		&run.Severity,
		&run.FailedSymbols,
		&run.CreatedAt,
	); err != nil {
		return RunRecord{}, err
	}

	rate, convErr := decimal.NewFromString(rateStr)
	if convErr != nil {
		return RunRecord{}, fmt.Errorf("parse success rate: %w", convErr)
	}
	run.SuccessRate = rate

	return run, nil
}
