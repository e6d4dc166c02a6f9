package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStatusPolicyIncludes(t *testing.T) {
	keep := KeepOnly("completed")
	drop := DropStatuses("DECLINED", " cancelled ")
	all := IncludeAll()

	cases := []struct {
		policy StatusPolicy
		status string
		want   bool
	}{
		{keep, "COMPLETED", true},
		{keep, " completed ", true},
		{keep, "CANCELLED", false},
		{keep, "", false},
		{drop, "COMPLETED", true},
		{drop, "PENDING", true},
		{drop, "cancelled", false},
		{drop, "DECLINED", false},
		{all, "ANYTHING", true},
		{all, "", true},
	}
	for i, tc := range cases {
		if got := tc.policy.Includes(tc.status); got != tc.want {
			t.Fatalf("case %d (%s, %q): expected %v, got %v", i, tc.policy, tc.status, tc.want, got)
		}
	}
}

func TestParseStatusPolicy(t *testing.T) {
	p, err := ParseStatusPolicy("keep:COMPLETED,concluded")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if p.Mode != PolicyKeep || len(p.Statuses) != 2 || p.Statuses[1] != "CONCLUDED" {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if p.String() != "keep:COMPLETED,CONCLUDED" {
		t.Fatalf("unexpected string: %s", p.String())
	}

	p, err = ParseStatusPolicy("drop:DECLINED,CANCELLED")
	if err != nil || p.Mode != PolicyDrop {
		t.Fatalf("unexpected drop policy: %+v err=%v", p, err)
	}

	p, err = ParseStatusPolicy("ALL")
	if err != nil || p.Mode != PolicyAll {
		t.Fatalf("unexpected all policy: %+v err=%v", p, err)
	}

	for _, bad := range []string{"", "keep", "keep:", "maybe:COMPLETED", "drop: , "} {
		if _, err := ParseStatusPolicy(bad); !errors.Is(err, ErrInvalidPolicy) {
			t.Fatalf("%q expected ErrInvalidPolicy, got %v", bad, err)
		}
	}
}

func TestYearFilter(t *testing.T) {
	var empty YearFilter
	if empty.Contains(2024) || empty.Len() != 0 {
		t.Fatalf("zero filter must select nothing")
	}
	f := Years(2024, 2022, 2024)
	if !f.Contains(2024) || !f.Contains(2022) || f.Contains(2023) {
		t.Fatalf("unexpected membership")
	}
	got := f.Sorted()
	if len(got) != 2 || got[0] != 2022 || got[1] != 2024 {
		t.Fatalf("unexpected sorted years: %v", got)
	}
}

func TestYearMonth(t *testing.T) {
	a := PeriodOf(time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC))
	b := PeriodOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if a.String() != "2023-12" {
		t.Fatalf("unexpected label %s", a)
	}
}

func TestWeekdayName(t *testing.T) {
	if WeekdayName(time.Sunday, LocalePtBR) != "domingo" {
		t.Fatalf("unexpected pt-BR sunday")
	}
	if WeekdayName(time.Saturday, LocaleEnglish) != "Saturday" {
		t.Fatalf("unexpected en saturday")
	}
	if WeekdayName(time.Wednesday, "xx") != "quarta-feira" {
		t.Fatalf("unknown locale must fall back to pt-BR")
	}
	if DisplayWeek[0] != time.Sunday || DisplayWeek[6] != time.Saturday {
		t.Fatalf("display week must be Sunday-first")
	}
}

func TestMalformedInputError(t *testing.T) {
	inner := errors.New("bare quote")
	err := error(&MalformedInputError{Missing: []string{"amount", "status"}, Err: inner})
	want := "malformed input: missing required column(s) amount, status: bare quote"
	if err.Error() != want {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	var mie *MalformedInputError
	if !errors.As(err, &mie) || len(mie.Missing) != 2 {
		t.Fatalf("expected errors.As to match")
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected wrapped error")
	}
}

func TestReportRunValidate(t *testing.T) {
	good := ReportRun{ID: "r1", CreatedAt: time.Now()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []ReportRun{
		{CreatedAt: time.Now()},
		{ID: "r1"},
		{ID: "r1", CreatedAt: time.Now(), OrderCount: -1},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDiagnosticsJSONIncludesTotal(t *testing.T) {
	d := Diagnostics{RowsRead: 9, ExcludedAmount: 1, ExcludedDate: 2, ExcludedYear: 3}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["excluded_total"] != 6 || got["rows_read"] != 9 || got["excluded_date"] != 2 {
		t.Fatalf("unexpected diagnostics JSON %s", data)
	}
}
