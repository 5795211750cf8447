package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finance-hub/internal/config"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

// Session keys.
const (
	KeyUserID     = "user_id"
	KeyFlash      = "flash"
	KeyFlashError = "flash_error"
	KeyOIDCState  = "oidc_state"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
}

const mysqlSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token CHAR(43) PRIMARY KEY,
	data BLOB NOT NULL,
	expiry TIMESTAMP(6) NOT NULL,
	INDEX sessions_expiry_idx (expiry)
)`

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

// New creates a cookie session manager backed by the application database.
// The two scs stores use different table layouts, so the sessions table is
// created here instead of in the shared migrations.
func New(cfg config.SessionConfig, driver string, db *sqlx.DB, secure bool) (*scs.SessionManager, error) {
	sm := scs.New()
	switch driver {
	case "mysql":
		if _, err := db.Exec(mysqlSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = mysqlstore.New(db.DB)
	case "sqlite3", "sqlite":
		if _, err := db.Exec(sqliteSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = sqlite3store.New(db.DB)
	default:
		return nil, fmt.Errorf("no session store for driver %q", driver)
	}

	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = 24
	}
	sm.Lifetime = time.Duration(lifetime) * time.Hour
	sm.Cookie.Name = "hub_session"
	sm.Cookie.Persist = true
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm, nil
}
