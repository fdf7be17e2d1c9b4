// Package database keeps the local tip receipt ledger in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteManager handles all database operations
type SQLiteManager struct {
	db     *sql.DB
	logger *log.Entry
}

// NewSQLiteManager opens (or creates) the database at path and prepares its tables
func NewSQLiteManager(path string, logger *log.Logger) (*SQLiteManager, error) {
	sqlm := &SQLiteManager{
		logger: logger.WithField("component", "database"),
	}

	db, err := sqlm.createConnection(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlm.db = db

	if err := sqlm.InitTipReceiptsTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tip receipts table: %w", err)
	}

	return sqlm, nil
}

// createConnection creates and configures the database connection
func (sqlm *SQLiteManager) createConnection(path string) (*sql.DB, error) {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite",
		fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path))
	if err != nil {
		sqlm.logger.WithError(err).Error("can not create database connection")
		return nil, err
	}

	// A single writer keeps SQLite free of lock contention
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// GetDB returns the database connection for direct access if needed
func (sqlm *SQLiteManager) GetDB() *sql.DB {
	return sqlm.db
}

// Close closes the database
func (sqlm *SQLiteManager) Close() error {
	if sqlm.db != nil {
		return sqlm.db.Close()
	}
	return nil
}
