package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Gateway hands out the process-wide database handle. It is not a pool: at
// most one handle is live at a time and it is replaced only when it stops
// answering pings.
type Gateway struct {
	driver string
	dsn    string
	logger *slog.Logger

	mu sync.Mutex
	db *DB
}

func NewGateway(driver, dsn string, logger *slog.Logger) *Gateway {
	return &Gateway{driver: driver, dsn: dsn, logger: logger}
}

// Acquire returns the live handle, opening (and migrating) a new one when
// none exists or the current one is closed or unreachable.
func (g *Gateway) Acquire(ctx context.Context) (*DB, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db != nil {
		err := g.db.PingContext(ctx)
		if err == nil {
			return g.db, nil
		}
		g.logger.Warn("database handle unhealthy, reopening", "error", err)
		g.db.Close()
		g.db = nil
	}

	db, err := OpenDriver(g.driver, g.dsn)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("database opened", "driver", string(db.Dialect))
	g.db = db
	return db, nil
}

// Release closes the handle if one is open.
func (g *Gateway) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
