package storage

import (
	"context"
	"fmt"
)

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver        string
	Path          string
	MongoURI      string
	MongoDatabase string
}

// Open connects the configured backend. SQLite databases are migrated to
// the latest schema before they are returned.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		db, err := NewSQLite(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case DriverMongo:
		return NewMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
