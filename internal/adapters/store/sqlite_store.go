package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	// driverCgo is the mattn/go-sqlite3 driver name
	driverCgo = "sqlite3"
	// driverPureGo is the modernc.org/sqlite driver name
	driverPureGo = "sqlite"
)

// SQLiteStore is a SQLite implementation of the SlotStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens a SQLite slot store using the cgo driver
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	return openSQLite(driverCgo, dbPath, logger)
}

// NewPureGoSQLiteStore opens a SQLite slot store using the pure Go driver,
// for builds without cgo
func NewPureGoSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	return openSQLite(driverPureGo, dbPath, logger)
}

func openSQLite(driver, dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// A single connection keeps writes serialized and in-memory databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS feed_filter_slots (
			slot TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("SQLite slot store initialized", zap.String("path", dbPath), zap.String("driver", driver))

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves the blob stored in a slot
func (s *SQLiteStore) Get(ctx context.Context, slot string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM feed_filter_slots WHERE slot = ?
	`, slot).Scan(&data)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to query slot: %w", err)
	}

	return data, nil
}

// Set replaces the blob stored in a slot
func (s *SQLiteStore) Set(ctx context.Context, slot string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO feed_filter_slots (slot, data, updated_at)
		VALUES (?, ?, ?)
	`, slot, blob, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}

	return nil
}

// Delete removes a slot
func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_filter_slots WHERE slot = ?
	`, slot)

	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	return nil
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
