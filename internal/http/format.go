package http

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"pedidos/internal/core"
)

const displayDate = "02/01/2006"

var brl = message.NewPrinter(language.BrazilianPortuguese)

// formatBRL renders cents the Brazilian way, e.g. "R$ 1.234,50".
func formatBRL(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "R$ " + brl.Sprint(number.Decimal(float64(cents)/100, number.Scale(2)))
}

func formatDate(t time.Time) string {
	return t.Format(displayDate)
}

func formatDateTime(t time.Time) string {
	return t.Format(displayDate + " 15:04")
}

func formatCount(n int) string {
	return brl.Sprint(number.Decimal(n))
}
