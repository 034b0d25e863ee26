package database

import (
	"fmt"

	"github.com/matthieukhl/luxe/internal/models"
)

// schemaModels lists every table in creation order; parents come first.
func schemaModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	}
}

// Migrate creates or updates every table, index and foreign key.
func (db *DB) Migrate() error {
	if err := db.AutoMigrate(schemaModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DropSchema removes all tables, children first.
func (db *DB) DropSchema() error {
	tables := schemaModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(tables[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}
