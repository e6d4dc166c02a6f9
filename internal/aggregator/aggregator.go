// Package aggregator turns an order-history export into the statistics shown on
// the dashboard. Everything here is a pure function of its inputs.
package aggregator

import (
	"io"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"pedidos/internal/core"
	"pedidos/internal/ingest"
)

// DefaultTopN is the size of the merchant ranking.
const DefaultTopN = 10

// Options parameterize one aggregation.
type Options struct {
	// Years selects the calendar years in scope. The zero value selects none.
	Years           core.YearFilter
	Status          core.StatusPolicy
	TopN            int
	Locale          string
	DedupeByOrderID bool
}

// Result is the bundle consumed by the presentation layer.
type Result = core.Summary

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Status.Mode == "" {
		o.Status = core.DefaultStatusPolicy()
	}
	if !core.IsSupportedLocale(o.Locale) {
		o.Locale = core.LocalePtBR
	}
	return o
}

// Run parses a delimited export from r and aggregates it.
func Run(r io.Reader, opts Options) (Result, error) {
	table, err := ingest.ReadCSV(r)
	if err != nil {
		return Result{}, err
	}
	return aggregateTable(table, opts)
}

// RunFile aggregates an uploaded file, reading it as a workbook or as
// delimited text depending on its name and content.
func RunFile(name string, data []byte, opts Options) (Result, error) {
	table, err := ingest.ReadAuto(name, data)
	if err != nil {
		return Result{}, err
	}
	return aggregateTable(table, opts)
}

func aggregateTable(table ingest.Table, opts Options) (Result, error) {
	orders, err := table.Orders()
	if err != nil {
		return Result{}, err
	}
	return Aggregate(orders, opts), nil
}

// Aggregate computes the result bundle over orders. Orders are expected in
// input order; Line is used for stable tie-breaking.
func Aggregate(orders []core.Order, opts Options) Result {
	opts = opts.withDefaults()
	diag := core.Diagnostics{RowsRead: len(orders)}

	candidates := make([]core.Order, 0, len(orders))
	seenIDs := map[string]struct{}{}
	// magnitude bounds every partial sum taken over candidates, so no total,
	// monthly, weekday or merchant sum can overflow.
	var magnitude int64
	for _, o := range orders {
		switch {
		case !o.AmountValid:
			diag.ExcludedAmount++
			continue
		case !o.DateValid:
			diag.ExcludedDate++
			continue
		case !opts.Status.Includes(o.Status):
			diag.ExcludedStatus++
			continue
		}
		if opts.DedupeByOrderID && o.OrderID != "" {
			if _, dup := seenIDs[o.OrderID]; dup {
				diag.ExcludedDuplicate++
				continue
			}
			seenIDs[o.OrderID] = struct{}{}
		}
		abs := o.Amount.Cents
		if abs < 0 {
			abs = -abs
		}
		if abs < 0 || abs > math.MaxInt64-magnitude {
			diag.ExcludedAmount++
			continue
		}
		magnitude += abs
		candidates = append(candidates, o)
	}

	available := lo.Uniq(lo.Map(candidates, func(o core.Order, _ int) int {
		return o.OrderDate.Year()
	}))
	sort.Ints(available)

	inScope := lo.Filter(candidates, func(o core.Order, _ int) bool {
		return opts.Years.Contains(o.OrderDate.Year())
	})
	diag.ExcludedYear = len(candidates) - len(inScope)

	res := Result{
		OrderCount:     len(inScope),
		AvailableYears: available,
		SelectedYears:  opts.Years.Sorted(),
		StatusPolicy:   opts.Status.String(),
		Diagnostics:    diag,
	}

	maxIdx, minIdx := -1, -1
	for i, o := range inScope {
		res.TotalSpend = res.TotalSpend.Add(o.Amount)
		if maxIdx < 0 || o.Amount.Cents > inScope[maxIdx].Amount.Cents {
			maxIdx = i
		}
		if minIdx < 0 || o.Amount.Cents < inScope[minIdx].Amount.Cents {
			minIdx = i
		}
	}
	if res.OrderCount > 0 {
		res.AverageOrderValue = res.TotalSpend.Float64() / float64(res.OrderCount)
		maxRow := toRow(inScope[maxIdx], opts.Locale)
		minRow := toRow(inScope[minIdx], opts.Locale)
		res.MaxOrder, res.MinOrder = &maxRow, &minRow
	}

	res.TopMerchants = topMerchants(inScope, opts.TopN)
	res.MonthlySpend = monthlySpend(inScope)
	res.WeekdaySpend = weekdaySpend(inScope, opts.Locale)
	res.OrdersTable = ordersTable(inScope, opts.Locale)
	return res
}

func toRow(o core.Order, locale string) core.OrderRow {
	return core.OrderRow{
		Line:       o.Line,
		OrderID:    o.OrderID,
		Restaurant: o.Restaurant,
		Amount:     o.Amount,
		OrderDate:  o.OrderDate,
		Weekday:    core.WeekdayName(o.OrderDate.Weekday(), locale),
		Status:     o.Status,
	}
}

// topMerchants ranks restaurants by summed amount. Ties keep the order in
// which restaurants were first seen. Rows without a restaurant count in the
// totals but are not ranked.
func topMerchants(orders []core.Order, n int) []core.MerchantAmount {
	byName := map[string]int{}
	var ranked []core.MerchantAmount
	for _, o := range orders {
		if strings.TrimSpace(o.Restaurant) == "" {
			continue
		}
		i, ok := byName[o.Restaurant]
		if !ok {
			i = len(ranked)
			byName[o.Restaurant] = i
			ranked = append(ranked, core.MerchantAmount{Restaurant: o.Restaurant})
		}
		ranked[i].Amount = ranked[i].Amount.Add(o.Amount)
		ranked[i].Orders++
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Amount.Cents > ranked[b].Amount.Cents
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []core.MerchantAmount{}
	}
	return ranked
}

func monthlySpend(orders []core.Order) []core.PeriodAmount {
	sums := map[core.YearMonth]int64{}
	for _, o := range orders {
		sums[core.PeriodOf(o.OrderDate)] += o.Amount.Cents
	}
	periods := lo.Keys(sums)
	sort.Slice(periods, func(a, b int) bool { return periods[a].Before(periods[b]) })

	out := make([]core.PeriodAmount, 0, len(periods))
	for _, p := range periods {
		out = append(out, core.PeriodAmount{
			Period: p.String(),
			Year:   p.Year,
			Month:  int(p.Month),
			Amount: core.Money{Cents: sums[p]},
		})
	}
	return out
}

// weekdaySpend always reports the full week, Sunday first.
func weekdaySpend(orders []core.Order, locale string) []core.WeekdayAmount {
	var sums [7]int64
	for _, o := range orders {
		sums[o.OrderDate.Weekday()] += o.Amount.Cents
	}
	out := make([]core.WeekdayAmount, 0, len(core.DisplayWeek))
	for _, d := range core.DisplayWeek {
		out = append(out, core.WeekdayAmount{
			Weekday: int(d),
			Name:    core.WeekdayName(d, locale),
			Amount:  core.Money{Cents: sums[d]},
		})
	}
	return out
}

// ordersTable lists in-scope orders newest first; equal dates keep input order.
func ordersTable(orders []core.Order, locale string) []core.OrderRow {
	rows := lo.Map(orders, func(o core.Order, _ int) core.OrderRow {
		return toRow(o, locale)
	})
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].OrderDate.After(rows[b].OrderDate)
	})
	return rows
}
