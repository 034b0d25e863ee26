package cmd

import (
	"fmt"
	"os"

	"github.com/matthieukhl/luxe/internal/export"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/spf13/cobra"
)

var (
	exportOut    string
	exportStatus string
	exportUser   string
)

var exportOrdersCmd = &cobra.Command{
	Use:   "export-orders",
	Short: "Export orders to an xlsx workbook",
	Long: `Writes every order (optionally filtered by status or username) to an
xlsx workbook with an Orders sheet and an Items sheet.`,
	RunE: exportOrders,
}

func init() {
	rootCmd.AddCommand(exportOrdersCmd)

	exportOrdersCmd.Flags().StringVarP(&exportOut, "out", "o", "orders.xlsx", "Output file")
	exportOrdersCmd.Flags().StringVar(&exportStatus, "status", "", "Only orders with this status")
	exportOrdersCmd.Flags().StringVar(&exportUser, "user", "", "Only orders whose username contains this text")
}

func exportOrders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := sqlBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Println("📦 Loading orders...")
	orders, err := shop.NewOrderService(b.store).List(cmd.Context(), shop.OrderFilter{
		Status: models.OrderStatus(exportStatus),
		User:   exportUser,
	})
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}

	if err := export.WriteOrders(f, orders); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", exportOut, err)
	}

	fmt.Printf("✅ Exported %d order(s) to %s\n", len(orders), exportOut)
	return nil
}
