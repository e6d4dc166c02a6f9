package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	PolicyKeep PolicyMode = "keep"
	PolicyDrop PolicyMode = "drop"
	PolicyAll  PolicyMode = "all"
)

const (
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusDeclined  = "DECLINED"
)

type (
	PolicyMode string

	Money struct {
		Cents int64
	}

	// Order is one data row of an order history export.
	Order struct {
		Line        int // 1-based data row, original input order
		OrderID     string
		Restaurant  string
		Amount      Money
		AmountValid bool
		OrderDate   time.Time
		DateValid   bool
		Status      string
	}

	// YearMonth is the calendar period used for monthly grouping.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	// StatusPolicy decides which order statuses count toward aggregates.
	StatusPolicy struct {
		Mode     PolicyMode
		Statuses []string
	}

	// YearFilter is an explicit set of selected years. The zero value selects nothing.
	YearFilter struct {
		years map[int]struct{}
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidPolicy = errors.New("invalid status policy")
)

// DefaultStatusPolicy keeps only completed orders.
func DefaultStatusPolicy() StatusPolicy {
	return KeepOnly(StatusCompleted)
}

func KeepOnly(statuses ...string) StatusPolicy {
	return StatusPolicy{Mode: PolicyKeep, Statuses: normalizeStatuses(statuses)}
}

func DropStatuses(statuses ...string) StatusPolicy {
	return StatusPolicy{Mode: PolicyDrop, Statuses: normalizeStatuses(statuses)}
}

func IncludeAll() StatusPolicy {
	return StatusPolicy{Mode: PolicyAll}
}

// ParseStatusPolicy reads the textual form used in configuration:
// "keep:COMPLETED,CONCLUDED", "drop:DECLINED,CANCELLED" or "all".
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(PolicyAll)) {
		return IncludeAll(), nil
	}
	mode, list, ok := strings.Cut(s, ":")
	if !ok {
		return StatusPolicy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	statuses := strings.Split(list, ",")
	var p StatusPolicy
	switch PolicyMode(strings.ToLower(strings.TrimSpace(mode))) {
	case PolicyKeep:
		p = KeepOnly(statuses...)
	case PolicyDrop:
		p = DropStatuses(statuses...)
	default:
		return StatusPolicy{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, mode)
	}
	if err := p.Validate(); err != nil {
		return StatusPolicy{}, err
	}
	return p, nil
}

func (p StatusPolicy) Validate() error {
	switch p.Mode {
	case PolicyAll:
		return nil
	case PolicyKeep, PolicyDrop:
		if len(p.Statuses) == 0 {
			return fmt.Errorf("%w: %s mode needs at least one status", ErrInvalidPolicy, p.Mode)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, p.Mode)
	}
}

// Includes reports whether an order with the given status is in scope.
func (p StatusPolicy) Includes(status string) bool {
	if p.Mode == PolicyAll {
		return true
	}
	listed := false
	norm := NormalizeStatus(status)
	for _, s := range p.Statuses {
		if s == norm {
			listed = true
			break
		}
	}
	if p.Mode == PolicyDrop {
		return !listed
	}
	return listed
}

func (p StatusPolicy) String() string {
	if p.Mode == PolicyAll || p.Mode == "" {
		return string(p.Mode)
	}
	return string(p.Mode) + ":" + strings.Join(p.Statuses, ",")
}

// NormalizeStatus trims and upper-cases a raw status value.
func NormalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeStatuses(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = NormalizeStatus(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Years builds a filter selecting exactly the given years.
func Years(years ...int) YearFilter {
	f := YearFilter{years: make(map[int]struct{}, len(years))}
	for _, y := range years {
		f.years[y] = struct{}{}
	}
	return f
}

func (f YearFilter) Contains(year int) bool {
	_, ok := f.years[year]
	return ok
}

func (f YearFilter) Len() int {
	return len(f.years)
}

// Sorted returns the selected years in ascending order.
func (f YearFilter) Sorted() []int {
	out := make([]int, 0, len(f.years))
	for y := range f.years {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// PeriodOf returns the year-month of t as written.
func PeriodOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Before orders periods chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// String renders the period label, e.g. "2024-01".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
