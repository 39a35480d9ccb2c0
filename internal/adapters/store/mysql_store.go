package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the SlotStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL slot store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS feed_filter_slots (
			slot VARCHAR(255) PRIMARY KEY,
			data LONGBLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves the blob stored in a slot
func (s *MySQLStore) Get(ctx context.Context, slot string) ([]byte, error) {
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
func (s *MySQLStore) Set(ctx context.Context, slot string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_filter_slots (slot, data, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			updated_at = VALUES(updated_at)
	`, slot, blob, time.Now().UTC().Format("2006-01-02 15:04:05"))

	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}

	return nil
}

// Delete removes a slot
func (s *MySQLStore) Delete(ctx context.Context, slot string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_filter_slots WHERE slot = ?
	`, slot)

	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	return nil
}

// Stop closes the database connection
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
