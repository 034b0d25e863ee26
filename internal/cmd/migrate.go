package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dropFirst bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Creates every table (users, categories, products, product_images,
carts, cart_items, orders, order_items) with its indexes and foreign keys.
Existing tables are altered in place; data is kept unless --drop-first is set.`,
	RunE: migrateSchema,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop existing tables before creating (destroys all data)")
}

func migrateSchema(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Migrating database...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.DB.AutoMigrate = false

	b, err := sqlBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if dropFirst {
		fmt.Println("🗑️  Dropping existing tables...")
		if err := b.db.DropSchema(); err != nil {
			return err
		}
	}

	fmt.Println("📋 Creating schema...")
	if err := b.db.Migrate(); err != nil {
		return err
	}

	fmt.Println("✅ Schema is up to date!")
	return nil
}
