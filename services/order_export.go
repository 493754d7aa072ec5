package services

import (
	"context"
	"fmt"
	"strings"

	"go-storefront/apperrors"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"Order ID", "Status", "Customer", "Email", "Phone", "City", "Province", "Address",
	"Payment", "Items", "Subtotal", "Discount", "Coupon", "Delivery", "Total", "Created At",
}

// ExportOrders builds a spreadsheet with one row per order, newest first
func (s *OrderService) ExportOrders(ctx context.Context) (*xlsx.File, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, apperrors.Internal("Failed to create Excel sheet", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		items := make([]string, 0, len(o.Cart))
		for _, l := range o.Cart {
			items = append(items, fmt.Sprintf("%s x%d", l.Name, l.Quantity))
		}

		d := o.UserDetails
		row := sheet.AddRow()
		row.AddCell().SetValue(s.notifier.DisplayID(&o))
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(d.Name)
		row.AddCell().SetValue(d.Email)
		row.AddCell().SetValue(d.Phone1)
		row.AddCell().SetValue(d.City)
		row.AddCell().SetValue(d.Province)
		row.AddCell().SetValue(d.Address)
		row.AddCell().SetValue(d.PaymentMethod)
		row.AddCell().SetValue(strings.Join(items, ", "))
		row.AddCell().SetFloat(o.Subtotal)
		row.AddCell().SetFloat(o.Discount)
		row.AddCell().SetValue(o.CouponCode)
		row.AddCell().SetFloat(o.DeliveryCharge)
		row.AddCell().SetFloat(o.Total)
		row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}
