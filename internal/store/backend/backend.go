// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
	"github.com/fairyhunter13/storefront-api/internal/store/mongostore"
	"github.com/fairyhunter13/storefront-api/internal/store/sqlstore"
)

// Open connects the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		obs.Logger.Warn("store_memory", "note", "data is lost on restart")
		return store.NewMemory(), nil
	case config.DriverMongo:
		obs.Logger.Info("store_connect", "driver", cfg.StoreDriver, "database", cfg.MongoDatabase)
		return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMySQL:
		obs.Logger.Info("store_connect", "driver", cfg.StoreDriver, "host", cfg.MySQL.Host, "database", cfg.MySQL.Database)
		return sqlstore.New(cfg.MySQL.DSN())
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
