package core

import (
	"encoding/json"
	"time"
)

// MerchantAmount is the summed spend of one restaurant.
type MerchantAmount struct {
	Restaurant string `json:"restaurant"`
	Amount     Money  `json:"amount"`
	Orders     int    `json:"orders"`
}

// PeriodAmount is the summed spend of one calendar month.
type PeriodAmount struct {
	Period string `json:"period"` // "2006-01"
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Amount Money  `json:"amount"`
}

// WeekdayAmount is the summed spend of one weekday.
type WeekdayAmount struct {
	Weekday int    `json:"weekday"` // time.Weekday, Sunday = 0
	Name    string `json:"name"`
	Amount  Money  `json:"amount"`
}

// OrderRow is an in-scope order projected to the display columns.
type OrderRow struct {
	Line       int       `json:"line"`
	OrderID    string    `json:"order_id,omitempty"`
	Restaurant string    `json:"restaurant"`
	Amount     Money     `json:"amount"`
	OrderDate  time.Time `json:"order_date"`
	Weekday    string    `json:"weekday"`
	Status     string    `json:"status"`
}

// Diagnostics counts the rows left out of the aggregates and why.
// Each row is counted once, under the first rule that excluded it.
type Diagnostics struct {
	RowsRead          int `json:"rows_read"`
	ExcludedAmount    int `json:"excluded_amount"`
	ExcludedDate      int `json:"excluded_date"`
	ExcludedStatus    int `json:"excluded_status"`
	ExcludedDuplicate int `json:"excluded_duplicate"`
	ExcludedYear      int `json:"excluded_year"`
}

// ExcludedTotal is the number of rows that did not reach any aggregate.
func (d Diagnostics) ExcludedTotal() int {
	return d.ExcludedAmount + d.ExcludedDate + d.ExcludedStatus + d.ExcludedDuplicate + d.ExcludedYear
}

// MarshalJSON adds the derived excluded_total to the counters.
func (d Diagnostics) MarshalJSON() ([]byte, error) {
	type counters Diagnostics
	return json.Marshal(struct {
		counters
		ExcludedTotal int `json:"excluded_total"`
	}{counters(d), d.ExcludedTotal()})
}

// Summary is the result bundle handed to the presentation layer.
type Summary struct {
	TotalSpend        Money            `json:"total_spend"`
	OrderCount        int              `json:"order_count"`
	AverageOrderValue float64          `json:"average_order_value"`
	MaxOrder          *OrderRow        `json:"max_order"`
	MinOrder          *OrderRow        `json:"min_order"`
	TopMerchants      []MerchantAmount `json:"top_merchants"`
	MonthlySpend      []PeriodAmount   `json:"monthly_spend"`
	WeekdaySpend      []WeekdayAmount  `json:"weekday_spend"`
	OrdersTable       []OrderRow       `json:"orders_table"`
	AvailableYears    []int            `json:"available_years"`
	SelectedYears     []int            `json:"selected_years"`
	StatusPolicy      string           `json:"status_policy"`
	Diagnostics       Diagnostics      `json:"diagnostics"`
}
