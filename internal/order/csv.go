package order

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"ms-storefront/internal/models"
)

var csvHeader = []string{"orderId", "gameName", "platform", "accountType", "price", "customerPhone", "orderTime", "status"}

// ExportCSV writes every order, oldest first, as CSV with a header row.
func (s *OrderService) ExportCSV(ctx context.Context, w io.Writer) error {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return err
	}
	return WriteCSV(w, orders)
}

func WriteCSV(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range orders {
		record := []string{
			o.OrderID,
			o.Game,
			string(o.Platform),
			string(o.AccountType),
			strconv.Itoa(o.Price),
			o.CustomerPhone,
			o.OrderTime,
			string(o.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
