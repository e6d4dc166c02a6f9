package http

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"pedidos/internal/core"
	"pedidos/internal/services"
)

type orderView struct {
	Date       string
	Weekday    string
	Restaurant string
	Amount     string
	Status     string
	OrderID    string
}

type merchantView struct {
	Rank       int
	Restaurant string
	Amount     string
	Orders     int
	Width      int // percent of the top merchant, for the bar
}

type yearOption struct {
	Year     int
	Selected bool
}

// chartSeries is consumed by app.js; values are plain reais.
type chartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type chartData struct {
	Monthly   chartSeries `json:"monthly"`
	Weekday   chartSeries `json:"weekday"`
	Merchants chartSeries `json:"merchants"`
}

type dashboardView struct {
	ReportID     string
	UploadID     string
	FileName     string
	GeneratedAt  string
	Cached       bool
	StatusPolicy string

	Total      string
	OrderCount string
	Average    string
	Max        *orderView
	Min        *orderView

	TopMerchants []merchantView
	Orders       []orderView
	Years        []yearOption
	NoneSelected bool

	Diagnostics core.Diagnostics
	Excluded    int
	Chart       chartData
}

func newDashboardView(rep services.Report) dashboardView {
	res := rep.Result
	v := dashboardView{
		ReportID:     rep.ID,
		UploadID:     rep.UploadID,
		FileName:     rep.FileName,
		GeneratedAt:  formatDateTime(rep.CreatedAt.Local()),
		Cached:       rep.Cached,
		StatusPolicy: res.StatusPolicy,
		Total:        formatBRL(res.TotalSpend),
		OrderCount:   formatCount(res.OrderCount),
		Average:      formatBRL(core.Money{Cents: int64(math.Round(res.AverageOrderValue * 100))}),
		Max:          orderViewPtr(res.MaxOrder),
		Min:          orderViewPtr(res.MinOrder),
		Orders:       lo.Map(res.OrdersTable, func(o core.OrderRow, _ int) orderView { return toOrderView(o) }),
		Diagnostics:  res.Diagnostics,
		Excluded:     res.Diagnostics.ExcludedTotal(),
		NoneSelected: len(res.SelectedYears) == 0,
	}

	selected := lo.SliceToMap(res.SelectedYears, func(y int) (int, bool) { return y, true })
	v.Years = lo.Map(res.AvailableYears, func(y int, _ int) yearOption {
		return yearOption{Year: y, Selected: selected[y]}
	})

	var top int64
	if len(res.TopMerchants) > 0 {
		top = res.TopMerchants[0].Amount.Cents
	}
	v.TopMerchants = lo.Map(res.TopMerchants, func(m core.MerchantAmount, i int) merchantView {
		width := 0
		if top > 0 && m.Amount.Cents > 0 {
			width = int((m.Amount.Cents*100 + top/2) / top)
			if width < 2 {
				width = 2
			}
		}
		return merchantView{Rank: i + 1, Restaurant: m.Restaurant, Amount: formatBRL(m.Amount), Orders: m.Orders, Width: width}
	})

	v.Chart = chartData{
		Monthly: chartSeries{
			Labels: lo.Map(res.MonthlySpend, func(p core.PeriodAmount, _ int) string { return fmt.Sprintf("%02d/%d", p.Month, p.Year) }),
			Values: lo.Map(res.MonthlySpend, func(p core.PeriodAmount, _ int) float64 { return p.Amount.Float64() }),
		},
		Weekday: chartSeries{
			Labels: lo.Map(res.WeekdaySpend, func(d core.WeekdayAmount, _ int) string { return d.Name }),
			Values: lo.Map(res.WeekdaySpend, func(d core.WeekdayAmount, _ int) float64 { return d.Amount.Float64() }),
		},
		Merchants: chartSeries{
			Labels: lo.Map(res.TopMerchants, func(m core.MerchantAmount, _ int) string { return m.Restaurant }),
			Values: lo.Map(res.TopMerchants, func(m core.MerchantAmount, _ int) float64 { return m.Amount.Float64() }),
		},
	}
	return v
}

func toOrderView(o core.OrderRow) orderView {
	return orderView{
		Date:       formatDateTime(o.OrderDate),
		Weekday:    o.Weekday,
		Restaurant: o.Restaurant,
		Amount:     formatBRL(o.Amount),
		Status:     o.Status,
		OrderID:    o.OrderID,
	}
}

func orderViewPtr(o *core.OrderRow) *orderView {
	if o == nil {
		return nil
	}
	v := toOrderView(*o)
	return &v
}

type runView struct {
	ID         string
	FileName   string
	CreatedAt  string
	Orders     int
	Total      string
	Years      string
	Exported   bool
	ExportedAt string
}

func newRunView(r core.ReportRun) runView {
	v := runView{
		ID:        r.ID,
		FileName:  r.FileName,
		CreatedAt: formatDateTime(r.CreatedAt.Local()),
		Orders:    r.OrderCount,
		Total:     formatBRL(r.TotalSpend),
		Years:     strings.Join(lo.Map(r.Years, func(y int, _ int) string { return strconv.Itoa(y) }), ", "),
		Exported:  r.Exported(),
	}
	if r.ExportedAt != nil {
		v.ExportedAt = formatDateTime(r.ExportedAt.Local())
	}
	return v
}
