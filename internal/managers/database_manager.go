// Package managers wraps the infrastructure the identity service depends on: the database pool,
// the token cipher and codecs, bearer token signing and the outgoing mail.
package managers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"server-identity/internal/interfaces"
)

const healthCheckTimeout = 2 * time.Second

// DatabaseMgr gives access to the connection pool and reports whether the database is reachable.
type DatabaseMgr interface {
	GetPool() interfaces.PgxPoolIface
	Healthy(ctx context.Context) error
}

// DatabaseManager owns the pgx pool used by the Postgres store.
type DatabaseManager struct {
	Pool interfaces.PgxPoolIface
}

// GetPool returns the database connection pool managed by the DatabaseManager.
func (dbMgr *DatabaseManager) GetPool() interfaces.PgxPoolIface {
	return dbMgr.Pool
}

// Healthy pings the database with a short deadline.
func (dbMgr *DatabaseManager) Healthy(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := dbMgr.Pool.Ping(pingCtx); err != nil {
		log.Warn("Database ping failed: ", err)
		return err
	}
	return nil
}

// NewDatabaseManager creates a DatabaseManager for the given pool.
func NewDatabaseManager(pool interfaces.PgxPoolIface) DatabaseMgr {
	log.Info("Initializing database manager")
	return &DatabaseManager{Pool: pool}
}
