package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"phpvhost/internal/security"
	"phpvhost/pkg/fileutil"
)

// History records lifecycle operations in SQLite so the operator can see
// what the tool did to the system and when.
type History struct {
	db *sql.DB
}

// New opens (and if needed creates) the history database.
func New(dbPath string) (*History, error) {
	// Pre-create the file so the database gets its permissions from us
	// rather than from the driver's umask-dependent default.
	if !fileutil.FileExists(dbPath) {
		f, err := security.CreateSecureFile(dbPath, security.PermHistoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create history database: %w", err)
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			domain TEXT NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_seconds REAL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_domain_started
		ON operations(domain, started_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordOperation appends an operation to the log.
func (h *History) RecordOperation(ctx context.Context, record *OperationRecord) (int64, error) {
	startedAt := record.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO operations
		(domain, action, status, started_at, duration_seconds, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Domain,
		record.Action,
		record.Status,
		startedAt.UTC().Format(time.RFC3339),
		record.DurationSeconds,
		record.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert operation record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// ListOperations returns the most recent operations, newest first.
func (h *History) ListOperations(ctx context.Context, limit int) ([]OperationRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, domain, action, status, started_at, duration_seconds, error_message
		FROM operations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		record, err := scanOperationRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// LatestForDomain returns the most recent operation for a domain, or nil if
// the domain has never been touched.
func (h *History) LatestForDomain(ctx context.Context, domain string) (*OperationRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, domain, action, status, started_at, duration_seconds, error_message
		FROM operations
		WHERE domain = ?
		ORDER BY id DESC
		LIMIT 1
	`, domain)

	record, err := scanOperationRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest operation: %w", err)
	}

	return record, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOperationRecord(s scanner) (*OperationRecord, error) {
	var record OperationRecord
	var startedAtStr string
	var duration sql.NullFloat64
	var errMsg sql.NullString

	err := s.Scan(
		&record.ID,
		&record.Domain,
		&record.Action,
		&record.Status,
		&startedAtStr,
		&duration,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAtStr); err == nil {
		record.StartedAt = t
	}
	if duration.Valid {
		record.DurationSeconds = &duration.Float64
	}
	if errMsg.Valid {
		record.ErrorMessage = &errMsg.String
	}

	return &record, nil
}
