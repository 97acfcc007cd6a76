package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "procurechain.db")

	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS government_accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			department TEXT,
			access_code_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			company_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			registration_number TEXT,
			reputation_score REAL NOT NULL DEFAULT 3.0,
			average_rating REAL NOT NULL DEFAULT 0,
			total_wins INTEGER NOT NULL DEFAULT 0,
			completed_projects INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tenders (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			budget REAL NOT NULL,
			category TEXT,
			deadline DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_by TEXT NOT NULL,
			creation_hash TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (created_by) REFERENCES government_accounts(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bids (
			id TEXT PRIMARY KEY,
			tender_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			proposed_price REAL NOT NULL,
			technical_proposal TEXT NOT NULL,
			delivery_days INTEGER NOT NULL,
			ai_score REAL,
			price_score REAL,
			vendor_score REAL,
			technical_score REAL,
			anomaly_flag BOOLEAN NOT NULL DEFAULT FALSE,
			anomaly_reason TEXT,
			submission_hash TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(tender_id, vendor_id),
			FOREIGN KEY (tender_id) REFERENCES tenders(id),
			FOREIGN KEY (vendor_id) REFERENCES vendors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS awards (
			id TEXT PRIMARY KEY,
			tender_id TEXT NOT NULL UNIQUE,
			bid_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			award_amount REAL NOT NULL,
			justification TEXT,
			public_rating REAL NOT NULL DEFAULT 0,
			rating_count INTEGER NOT NULL DEFAULT 0,
			decision_hash TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (tender_id) REFERENCES tenders(id),
			FOREIGN KEY (bid_id) REFERENCES bids(id),
			FOREIGN KEY (vendor_id) REFERENCES vendors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS public_ratings (
			id TEXT PRIMARY KEY,
			award_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			voter_ip TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (award_id) REFERENCES awards(id)
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			tender_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			record_hash TEXT NOT NULL,
			prev_hash TEXT NOT NULL,
			hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Indexes for the hot read paths
		`CREATE INDEX IF NOT EXISTS idx_tenders_status ON tenders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tenders_deadline ON tenders(deadline)`,
		`CREATE INDEX IF NOT EXISTS idx_bids_tender ON bids(tender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bids_vendor ON bids(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bids_score ON bids(tender_id, ai_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_awards_vendor ON awards(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_award ON public_ratings(award_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_tender ON ledger_entries(tender_id, seq)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_bid": `INSERT INTO bids (
			id, tender_id, vendor_id, proposed_price, technical_proposal, delivery_days,
			anomaly_flag, anomaly_reason, submission_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"update_bid_scores": `UPDATE bids SET
			ai_score = ?, price_score = ?, vendor_score = ?, technical_score = ?,
			anomaly_flag = ?, anomaly_reason = ?, updated_at = ?
			WHERE id = ?`,

		"get_bids_by_tender": `SELECT
			id, tender_id, vendor_id, proposed_price, technical_proposal, delivery_days,
			ai_score, price_score, vendor_score, technical_score,
			anomaly_flag, anomaly_reason, submission_hash, created_at, updated_at
			FROM bids WHERE tender_id = ? ORDER BY created_at ASC`,

		"get_vendor": `SELECT
			id, company_name, email, password_hash, registration_number,
			reputation_score, average_rating, total_wins, completed_projects,
			created_at, updated_at
			FROM vendors WHERE id = ?`,

		"insert_ledger_entry": `INSERT INTO ledger_entries (
			id, tender_id, event_type, payload, record_hash, prev_hash, hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
