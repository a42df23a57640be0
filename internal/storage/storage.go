// Package storage provides SQLite-backed persistence for the runtime analysis settings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/pumpsentry/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotSeeded is returned when the settings row has not been created yet.
var ErrNotSeeded = errors.New("analysis settings not seeded")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/pumpsentry/settings.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "pumpsentry", "settings.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_settings (
			id                     INTEGER PRIMARY KEY CHECK (id = 1),
			bot_status             INTEGER NOT NULL DEFAULT 0,
			min_indicators         INTEGER NOT NULL,
			price_change_threshold REAL NOT NULL,
			timeframe              TEXT NOT NULL,
			volume_filter          REAL NOT NULL,
			required_indicators    TEXT NOT NULL DEFAULT '[]',
			updated_at             INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS indicator_flags (
			name    TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Seed writes defaults unless settings already exist. Indicator flags missing
// from the table are added either way, so new indicators appear after an upgrade.
// It reports whether the settings row was created.
func (s *Storage) Seed(ctx context.Context, defaults models.AnalysisConfig) (bool, error) {
	if err := defaults.Validate(); err != nil {
		return false, fmt.Errorf("invalid default settings: %w", err)
	}
	required, err := json.Marshal(defaults.RequiredIndicators)
	if err != nil {
		return false, fmt.Errorf("failed to encode required indicators: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO analysis_settings
			(id, bot_status, min_indicators, price_change_threshold, timeframe,
			 volume_filter, required_indicators, updated_at)
		VALUES (1,?,?,?,?,?,?,?)`,
		defaults.BotStatus, defaults.MinIndicators, defaults.PriceChangeThreshold,
		defaults.Timeframe, defaults.VolumeFilter, string(required), time.Now().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to seed settings: %w", err)
	}
	created, _ := res.RowsAffected()

	for _, name := range models.AllIndicators {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO indicator_flags (name, enabled) VALUES (?,?)`,
			string(name), defaults.Enabled(name),
		); err != nil {
			return false, fmt.Errorf("failed to seed indicator %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return created > 0, nil
}

// LoadAnalysisConfig returns a fresh snapshot of the runtime settings.
func (s *Storage) LoadAnalysisConfig(ctx context.Context) (models.AnalysisConfig, error) {
	var (
		cfg      models.AnalysisConfig
		required string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT bot_status, min_indicators, price_change_threshold, timeframe,
		       volume_filter, required_indicators
		FROM analysis_settings WHERE id = 1`,
	).Scan(&cfg.BotStatus, &cfg.MinIndicators, &cfg.PriceChangeThreshold,
		&cfg.Timeframe, &cfg.VolumeFilter, &required)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnalysisConfig{}, ErrNotSeeded
	}
	if err != nil {
		return models.AnalysisConfig{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := json.Unmarshal([]byte(required), &cfg.RequiredIndicators); err != nil {
		return models.AnalysisConfig{}, fmt.Errorf("failed to decode required indicators: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, enabled FROM indicator_flags`)
	if err != nil {
		return models.AnalysisConfig{}, fmt.Errorf("failed to load indicator flags: %w", err)
	}
	defer rows.Close()

	cfg.Indicators = make(map[models.IndicatorName]bool)
	for rows.Next() {
		var (
			name    string
			enabled bool
		)
		if err := rows.Scan(&name, &enabled); err != nil {
			return models.AnalysisConfig{}, fmt.Errorf("failed to scan indicator flag: %w", err)
		}
		cfg.Indicators[models.IndicatorName(name)] = enabled
	}
	if err := rows.Err(); err != nil {
		return models.AnalysisConfig{}, fmt.Errorf("failed to iterate indicator flags: %w", err)
	}

	return cfg, nil
}

// SetBotStatus switches monitoring on or off.
func (s *Storage) SetBotStatus(ctx context.Context, enabled bool) error {
	return s.updateSettings(ctx, "bot_status", enabled)
}

// SetMinIndicators sets the minimum number of triggered indicators for a signal.
func (s *Storage) SetMinIndicators(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("min indicators must not be negative, got %d", n)
	}
	return s.updateSettings(ctx, "min_indicators", n)
}

// SetPriceChangeThreshold sets the percent move that qualifies as a pump or dump.
func (s *Storage) SetPriceChangeThreshold(ctx context.Context, pct float64) error {
	if pct < 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return fmt.Errorf("price change threshold must be a non-negative number, got %v", pct)
	}
	return s.updateSettings(ctx, "price_change_threshold", pct)
}

// SetTimeframe sets the candle interval.
func (s *Storage) SetTimeframe(ctx context.Context, timeframe string) error {
	if !models.Timeframes[timeframe] {
		return fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return s.updateSettings(ctx, "timeframe", timeframe)
}

// SetRequiredIndicators replaces the set of indicators that must all trigger.
func (s *Storage) SetRequiredIndicators(ctx context.Context, names []models.IndicatorName) error {
	for _, name := range names {
		if !models.IsKnownIndicator(name) {
			return fmt.Errorf("unknown indicator %q", name)
		}
	}
	if names == nil {
		names = []models.IndicatorName{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode required indicators: %w", err)
	}
	return s.updateSettings(ctx, "required_indicators", string(encoded))
}

// column is always one of the constant names above.
func (s *Storage) updateSettings(ctx context.Context, column string, value interface{}) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analysis_settings SET `+column+` = ?, updated_at = ? WHERE id = 1`,
		value, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotSeeded
	}
	return nil
}

// ToggleIndicator flips one indicator flag and returns its new state.
// A missing flag counts as enabled, so the first toggle disables it.
func (s *Storage) ToggleIndicator(ctx context.Context, name models.IndicatorName) (bool, error) {
	if !models.IsKnownIndicator(name) {
		return false, fmt.Errorf("unknown indicator %q", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current := true
	err = tx.QueryRowContext(ctx, `SELECT enabled FROM indicator_flags WHERE name = ?`, string(name)).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to read indicator %s: %w", name, err)
	}

	next := !current
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO indicator_flags (name, enabled) VALUES (?,?)
		ON CONFLICT(name) DO UPDATE SET enabled = excluded.enabled`,
		string(name), next,
	); err != nil {
		return false, fmt.Errorf("failed to update indicator %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit toggle: %w", err)
	}
	return next, nil
}
