package cmd

import (
	"errors"
	"fmt"

	"github.com/matthieukhl/luxe/internal/config"
	"github.com/matthieukhl/luxe/internal/database"
	"github.com/matthieukhl/luxe/internal/server"
	"github.com/matthieukhl/luxe/internal/shop"
)

var errNeedsSQL = errors.New("this command needs a mysql or postgres database (db.driver is memory)")

// backend is the store selected by db.driver.
type backend struct {
	store  shop.Store
	health server.HealthChecker
	db     *database.DB
}

func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.DB.Driver == "memory" {
		fmt.Println("🧪 Using in-memory store (data is lost on exit)")
		mem := database.NewMemoryStore()
		return &backend{store: mem, health: mem}, nil
	}

	fmt.Printf("🔌 Connecting to %s database...\n", cfg.DB.Driver)
	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	fmt.Println("✅ Database connected successfully")

	if cfg.DB.AutoMigrate {
		fmt.Println("📋 Migrating schema...")
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &backend{store: database.NewStore(db), health: db, db: db}, nil
}

// sqlBackend opens the configured database and refuses the memory driver.
func sqlBackend(cfg *config.Config) (*backend, error) {
	if cfg.DB.Driver == "memory" {
		return nil, errNeedsSQL
	}
	return openBackend(cfg)
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
