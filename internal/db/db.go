package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnsupportedDSN is returned for a DSN that names neither sqlite nor postgres
var ErrUnsupportedDSN = errors.New("unsupported state dsn")

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
	driver string
}

// Connect opens the local state database. "sqlite://<path>" (or ":memory:")
// selects sqlite; "postgres://" or "postgresql://" selects PostgreSQL.
func Connect(dsn string) (*DB, error) {
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	// Get underlying SQL DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	if driver == "sqlite" {
		// A single connection keeps :memory: databases alive and avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &DB{DB: db, driver: driver}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	switch {
	case dsn == ":memory:":
		return sqlite.Open(dsn), "sqlite", nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), "sqlite", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), "postgres", nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
}

// Driver names the backing engine: "sqlite" or "postgres"
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
