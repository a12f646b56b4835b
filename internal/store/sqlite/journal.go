// Package sqlite journals closed bars and risk decisions to a local SQLite
// database for audit and decision replay. A single writer with transaction
// batching: commits every batchSize rows or every flushDelay, whichever
// comes first.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"trading-corev1/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Config configures the journal.
type Config struct {
	DBPath string // e.g. "data/engine.db"

	BatchSize  int
	FlushDelay time.Duration
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushDelay <= 0 {
		c.FlushDelay = defaultFlushDelay
	}
}

// Journal is a single-goroutine-per-stream SQLite writer.
type Journal struct {
	cfg Config
	db  *sql.DB
	log zerolog.Logger
}

// New opens the database in WAL mode and creates the schema.
func New(cfg Config, log zerolog.Logger) (*Journal, error) {
	cfg.defaults()

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	l := log.With().Str("component", "sqlite").Logger()
	l.Info().Str("path", cfg.DBPath).Msg("journal opened")
	return &Journal{cfg: cfg, db: db, log: l}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			instrument TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			ticks      INTEGER,
			synthetic  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (instrument, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS decisions (
			instrument  TEXT    NOT NULL,
			seq         INTEGER NOT NULL,
			ts          INTEGER NOT NULL,
			action      TEXT    NOT NULL,
			verdict     TEXT    NOT NULL,
			reason      TEXT,
			price       REAL,
			size        REAL,
			stop_loss   REAL,
			take_profit REAL,
			risk_reward REAL,
			confidence  REAL,
			PRIMARY KEY (instrument, seq)
		);
	`)
	return err
}

// DB returns the underlying handle for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// RunBars drains the closed-bar channel into batched transactions.
// Blocks until ctx is cancelled or the channel is closed.
func (j *Journal) RunBars(ctx context.Context, bars <-chan model.Bar) {
	batch := make([]model.Bar, 0, j.cfg.BatchSize)
	timer := time.NewTimer(j.cfg.FlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.insertBars(batch); err != nil {
			j.log.Error().Err(err).Int("batch", len(batch)).Msg("bar batch insert error")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case bar, ok := <-bars:
			if !ok {
				flush()
				return
			}
			batch = append(batch, bar)
			if len(batch) >= j.cfg.BatchSize {
				flush()
				timer.Reset(j.cfg.FlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(j.cfg.FlushDelay)
		}
	}
}

// RunDecisions drains the decision channel into batched transactions.
func (j *Journal) RunDecisions(ctx context.Context, decisions <-chan model.RiskDecision) {
	batch := make([]model.RiskDecision, 0, j.cfg.BatchSize)
	timer := time.NewTimer(j.cfg.FlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.insertDecisions(batch); err != nil {
			j.log.Error().Err(err).Int("batch", len(batch)).Msg("decision batch insert error")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case d, ok := <-decisions:
			if !ok {
				flush()
				return
			}
			batch = append(batch, d)
			if len(batch) >= j.cfg.BatchSize {
				flush()
				timer.Reset(j.cfg.FlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(j.cfg.FlushDelay)
		}
	}
}

func (j *Journal) insertBars(bars []model.Bar) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (instrument, tf, ts, open, high, low, close, volume, ticks, synthetic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		synthetic := 0
		if b.Synthetic {
			synthetic = 1
		}
		if _, err := stmt.Exec(b.Instrument, b.TF, b.TS.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticks, synthetic); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (j *Journal) insertDecisions(decisions []model.RiskDecision) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO decisions
			(instrument, seq, ts, action, verdict, reason, price, size, stop_loss, take_profit, risk_reward, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, d := range decisions {
		s := d.Signal
		if _, err := stmt.Exec(s.Instrument, s.Seq, s.TS.Unix(), string(s.Action),
			string(d.Verdict), d.Reason, s.Price, d.Size, d.StopLoss, d.TakeProfit,
			d.RiskReward, s.Confidence); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LastBarTS returns the newest journaled bar timestamp for (instrument, tf),
// or 0 when none exist.
func (j *Journal) LastBarTS(instrument string, tf int) (int64, error) {
	var ts sql.NullInt64
	err := j.db.QueryRow(
		`SELECT MAX(ts) FROM bars WHERE instrument = ? AND tf = ?`,
		instrument, tf,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
