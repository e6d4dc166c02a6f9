package http

import (
	"testing"
	"time"

	"pedidos/internal/core"
)

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{2000, "R$ 20,00"},
		{123450, "R$ 1.234,50"},
		{123456789, "R$ 1.234.567,89"},
		{-500, "-R$ 5,00"},
	}
	for _, tt := range tests {
		if got := formatBRL(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("formatBRL(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 1, 6, 12, 30, 0, 0, time.UTC)
	if got := formatDate(d); got != "06/01/2024" {
		t.Errorf("formatDate = %q", got)
	}
	if got := formatDateTime(d); got != "06/01/2024 12:30" {
		t.Errorf("formatDateTime = %q", got)
	}
	if got := formatCount(12345); got != "12.345" {
		t.Errorf("formatCount = %q", got)
	}
}
