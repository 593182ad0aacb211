// Package database manages the optional MySQL connection backing the
// approval state cache. The cache is strictly derived data; the service
// runs fully without it when no DSN is configured.
package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Connect opens (once) and returns the shared connection pool for the
// given DSN. sql.DB is already thread-safe; no extra locking is layered
// on top.
func Connect(dsn string) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = open(dsn)
	})
	return instance, initErr
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return db, nil
}
