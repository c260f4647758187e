package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/config"
	_ "github.com/lib/pq"

	"github.com/sirupsen/logrus"
)

// DatabaseURL builds the PostgreSQL connection URL from config values.
// The password is URL-encoded to handle special characters.
func DatabaseURL(config *config.Config) string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		config.DBUser, url.QueryEscape(config.DBPassword), config.DBHost, config.DBPort, config.DBName)
}

// InitDB initializes the PostgreSQL database connection with connection pooling using the provided logger and config.
// Returns a *sql.DB instance for database operations. Ensures the connection is valid before returning.
func InitDB(logger *logrus.Logger, config *config.Config) *sql.DB {
	conn, err := sql.Open("postgres", DatabaseURL(config))
	if err != nil {
		logger.Fatal("Cannot open DB: ", err)
	}

	configureConnectionPool(conn, config, logger)

	if err := conn.Ping(); err != nil {
		logger.Fatal("Cannot ping DB: ", err)
	}

	logger.WithFields(logrus.Fields{
		"host":           config.DBHost,
		"database":       config.DBName,
		"max_open_conns": config.DBMaxOpenConns,
		"max_idle_conns": config.DBMaxIdleConns,
	}).Info("Database connection pool configured")

	return conn
}

// configureConnectionPool applies the pool limits from config.
func configureConnectionPool(db *sql.DB, config *config.Config, logger *logrus.Logger) {
	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)

	// Recycle connections before the server or a proxy drops them.
	db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetime) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleTime) * time.Minute)

	logger.WithFields(logrus.Fields{
		"environment":        config.Env,
		"conn_max_lifetime":  fmt.Sprintf("%dm", config.DBConnMaxLifetime),
		"conn_max_idle_time": fmt.Sprintf("%dm", config.DBConnMaxIdleTime),
	}).Debug("Database connection pool settings applied")
}

// GetConnectionStats returns current connection pool statistics for monitoring
func GetConnectionStats(db *sql.DB) map[string]interface{} {
	stats := db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// ValidateConnectionPool runs a trivial query through the pool.
func ValidateConnectionPool(db *sql.DB, logger *logrus.Logger) error {
	if _, err := db.Exec("SELECT 1"); err != nil {
		return fmt.Errorf("connection pool validation failed: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"stats": GetConnectionStats(db),
	}).Debug("Connection pool validation successful")

	return nil
}
