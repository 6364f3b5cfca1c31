// grbwatch/database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gewnthar/grbwatch/config"
	_ "github.com/go-sql-driver/mysql" // MariaDB driver
)

var DB *sql.DB

// DSN builds the go-sql-driver DSN: username:password@protocol(address)/dbname?param=value
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)
}

// InitDB initializes the archive connection pool and makes sure the
// grb_alerts table exists.
func InitDB(cfg config.DatabaseConfig) error {
	var err error
	DB, err = sql.Open("mysql", DSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	// One writer per cycle; keep the pool small.
	DB.SetMaxOpenConns(4)
	DB.SetMaxIdleConns(2)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureSchema(); err != nil {
		DB.Close()
		DB = nil
		return err
	}

	log.Infof("Connected to alert archive %s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		DB.Close()
		DB = nil
		log.Info("Database connection closed.")
	}
}
