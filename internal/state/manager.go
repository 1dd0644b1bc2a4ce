package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the database created inside the data directory
const DBFileName = "typnote.db"

// Status values of an operation record
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Manager persists settings and the operation journal in SQLite.
// It satisfies settings.Store.
type Manager struct {
	db *sql.DB
}

// OperationRecord is one journaled mutation
type OperationRecord struct {
	ID        int64
	Root      string
	Op        string
	Path      string
	Result    string // new path for create, rename and duplicate
	Status    string
	Error     string
	Timestamp time.Time
}

// NewManager opens or creates the database under dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection avoids "database is locked" between our own goroutines
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	m := &Manager{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return m, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		op TEXT NOT NULL,
		path TEXT NOT NULL,
		result TEXT,
		status TEXT NOT NULL,
		error TEXT,
		ts TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_root_ts ON operations(root, ts DESC);
	`

	_, err := m.db.Exec(schema)
	return err
}

// Get returns the value stored under key
func (m *Manager) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := m.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set replaces the value stored under key
func (m *Manager) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := m.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (m *Manager) Delete(key string) error {
	if _, err := m.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// SaveOperation journals a mutation
func (m *Manager) SaveOperation(record OperationRecord) error {
	if record.Status != StatusSuccess && record.Status != StatusFailed {
		return fmt.Errorf("invalid status: %s (must be '%s' or '%s')", record.Status, StatusSuccess, StatusFailed)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	_, err := m.db.Exec(`
		INSERT INTO operations (root, op, path, result, status, error, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.Root,
		record.Op,
		record.Path,
		record.Result,
		record.Status,
		record.Error,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save operation record: %w", err)
	}
	return nil
}

// GetHistory returns the newest operations on root
func (m *Manager) GetHistory(root string, limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	return m.queryOperations(`
		SELECT id, root, op, path, result, status, error, ts
		FROM operations
		WHERE root = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, root, limit)
}

// GetAllHistory returns the newest operations across every workspace
func (m *Manager) GetAllHistory(limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	return m.queryOperations(`
		SELECT id, root, op, path, result, status, error, ts
		FROM operations
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
}

func (m *Manager) queryOperations(query string, args ...any) ([]OperationRecord, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		var r OperationRecord
		var result, errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Root, &r.Op, &r.Path, &result, &r.Status, &errText, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Result = result.String
		r.Error = errText.String
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
