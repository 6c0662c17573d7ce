package persistence

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"video-autopilot/infrastructure/configuration"

	_ "github.com/microsoft/go-mssqldb"
)

// mssqlDefaultDatabase is used when no database name is configured.
const mssqlDefaultDatabase = "video_autopilot"

// NewMSSQLDB opens the Azure SQL / SQL Server backend that holds channel and
// credential state in production deployments.
func NewMSSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Mssql

	name := cfg.Name
	if name == "" {
		name = mssqlDefaultDatabase
	}

	q := url.Values{}
	q.Set("database", name)
	q.Set("app name", "video-autopilot")
	// Azure SQL requires encrypted connections.
	q.Set("encrypt", "true")
	q.Set("dial timeout", "10")
	// Local containers run with a self-signed certificate.
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		RawQuery: q.Encode(),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
