package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/core"
)

// SQLiteStore is a SQLite implementation of the CheckpointStore and
// ResultStore interfaces, for keeping scan state out of the working
// directory.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_checkpoint (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			email_count TEXT NOT NULL,
			processed INTEGER NOT NULL,
			saved_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS address_counts (
			address TEXT PRIMARY KEY,
			tally INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create counts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS new_addresses (
			run_at TEXT NOT NULL,
			address TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create new_addresses table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads the checkpoint row, returning (nil, nil) when none exists.
func (s *SQLiteStore) Load(ctx context.Context) (*core.Checkpoint, error) {
	var blob string
	var processed int
	var savedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT email_count, processed, saved_at FROM scan_checkpoint WHERE id = 1
	`).Scan(&blob, &processed, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}

	counts := make(map[string]int)
	if err := json.Unmarshal([]byte(blob), &counts); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint counts: %w", err)
	}

	return &core.Checkpoint{EmailCount: counts, Processed: processed, Timestamp: savedAt}, nil
}

// Save upserts the single checkpoint row.
func (s *SQLiteStore) Save(ctx context.Context, cp *core.Checkpoint) error {
	blob, err := json.Marshal(cp.EmailCount)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_checkpoint (id, email_count, processed, saved_at)
		VALUES (1, ?, ?, ?)
	`, string(blob), cp.Processed, cp.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint row; absence is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scan_checkpoint WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// LoadCounts reads the cumulative per-address tallies.
func (s *SQLiteStore) LoadCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, tally FROM address_counts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var addr string
		var tally int
		if err := rows.Scan(&addr, &tally); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[addr] = tally
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read count rows: %w", err)
	}
	return counts, nil
}

// SaveCounts replaces the cumulative tallies in one transaction.
func (s *SQLiteStore) SaveCounts(ctx context.Context, counts map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM address_counts`); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear counts: %w", err)
	}
	for addr, tally := range counts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO address_counts (address, tally) VALUES (?, ?)
		`, addr, tally); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert count for %s: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit counts: %w", err)
	}
	return nil
}

// SaveNewAddresses records the run's new addresses under one run
// timestamp and returns a label identifying the batch.
func (s *SQLiteStore) SaveNewAddresses(ctx context.Context, addrs []string) (string, error) {
	runAt := time.Now().Format("20060102_150405")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, addr := range addrs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO new_addresses (run_at, address) VALUES (?, ?)
		`, runAt, addr); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to insert new address %s: %w", addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit new addresses: %w", err)
	}

	return fmt.Sprintf("new_addresses (run_at=%s)", runAt), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
