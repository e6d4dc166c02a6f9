// Package ingest reads order-history exports into raw tables and maps them to
// core.Order values.
package ingest

import (
	"strings"
	"time"

	"pedidos/internal/core"
)

// Column names understood by Table.Orders.
const (
	ColOrderID    = "order_id"
	ColRestaurant = "restaurant"
	ColAmount     = "amount"
	ColOrderDate  = "order_date"
	ColStatus     = "status"
)

// RequiredColumns lists the columns every export must carry, in report order.
var RequiredColumns = []string{ColRestaurant, ColAmount, ColOrderDate, ColStatus}

var headerAliases = map[string]string{
	"order_id":    ColOrderID,
	"id":          ColOrderID,
	"id_pedido":   ColOrderID,
	"restaurant":  ColRestaurant,
	"restaurante": ColRestaurant,
	"merchant":    ColRestaurant,
	"loja":        ColRestaurant,
	"amount":      ColAmount,
	"valor":       ColAmount,
	"total":       ColAmount,
	"order_date":  ColOrderDate,
	"data_pedido": ColOrderDate,
	"data":        ColOrderDate,
	"date":        ColOrderDate,
	"status":      ColStatus,
	"situacao":    ColStatus,
	"situação":    ColStatus,
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Table is a parsed export: one header row and the data rows beneath it.
type Table struct {
	Header []string
	Rows   [][]string
}

// Orders maps the table rows to orders. Missing required columns yield a
// *core.MalformedInputError; bad cell values only mark the order invalid.
func (t Table) Orders() ([]core.Order, error) {
	idx := t.columnIndex()

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &core.MalformedInputError{Missing: missing}
	}

	orders := make([]core.Order, 0, len(t.Rows))
	for i, row := range t.Rows {
		cell := func(col string) string {
			j, ok := idx[col]
			if !ok || j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}

		o := core.Order{
			Line:       i + 1,
			OrderID:    cell(ColOrderID),
			Restaurant: cell(ColRestaurant),
			Status:     core.NormalizeStatus(cell(ColStatus)),
		}
		if amount, err := core.ParseAmount(cell(ColAmount)); err == nil {
			o.Amount, o.AmountValid = amount, true
		}
		if date, err := ParseDate(cell(ColOrderDate)); err == nil {
			o.OrderDate, o.DateValid = date, true
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// columnIndex resolves header cells to canonical column names. The first
// header matching a column wins.
func (t Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		col, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// ParseDate reads an export timestamp. The wall clock is kept as written.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}
