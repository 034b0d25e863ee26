package export

import (
	"fmt"
	"io"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/tealeg/xlsx"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var (
	orderHeaders = []string{"Order ID", "Username", "Email", "Status", "Total", "Items", "Created At"}
	itemHeaders  = []string{"Order ID", "Product ID", "Name", "Price", "Quantity", "Subtotal"}
)

// WriteOrders writes an xlsx workbook with an "Orders" sheet (one row per
// order) and an "Items" sheet (one row per order line) to w.
func WriteOrders(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()

	ordersSheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create orders sheet: %w", err)
	}
	itemsSheet, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("failed to create items sheet: %w", err)
	}

	addHeader(ordersSheet, orderHeaders)
	addHeader(itemsSheet, itemHeaders)

	for _, o := range orders {
		var username, email string
		if o.User != nil {
			username, email = o.User.Username, o.User.Email
		}

		row := ordersSheet.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(username)
		row.AddCell().SetValue(email)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(o.Total.StringFixed(2))
		row.AddCell().SetValue(len(o.Items))
		row.AddCell().SetValue(o.CreatedAt.UTC().Format(timeLayout))

		for i := range o.Items {
			item := &o.Items[i]
			productID := ""
			if item.ProductID != nil {
				productID = fmt.Sprint(*item.ProductID)
			}

			row := itemsSheet.AddRow()
			row.AddCell().SetValue(o.ID)
			row.AddCell().SetValue(productID)
			row.AddCell().SetValue(item.Name)
			row.AddCell().SetValue(item.Price.StringFixed(2))
			row.AddCell().SetValue(item.Quantity)
			row.AddCell().SetValue(item.Subtotal().StringFixed(2))
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetValue(h)
	}
}
