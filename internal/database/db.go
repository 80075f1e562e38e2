// Package database opens the MySQL pool the reservation ledger runs on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/stagefront/ticketing/internal/config"
)

// Open connects to MySQL and verifies the connection before anything
// else starts.  parseTime and loc=UTC matter here: hold deadlines are
// DATETIME columns compared against UTC wall time, and the expiry scan
// would misfire if the driver handed them back in another zone.
//
// Pool sizing comes from config.  A reservation transaction holds a row
// lock on one reservation plus one unit row for a few statements, so
// the open-connection cap is also the bound on concurrent reservation
// mutations; idle connections are kept high because buyer traffic is
// bursty around on-sale time.
func Open(cfg config.Config) (*sql.DB, error) {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DBMaxOpen)
	db.SetMaxIdleConns(cfg.DBMaxIdle)
	db.SetConnMaxLifetime(cfg.DBConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
