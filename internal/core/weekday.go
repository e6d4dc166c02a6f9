package core

import "time"

const (
	LocalePtBR    = "pt-BR"
	LocaleEnglish = "en"
)

var weekdayNames = map[string][7]string{
	LocalePtBR:    {"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
	LocaleEnglish: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

// DisplayWeek is the Sunday-first order used to present weekday totals.
var DisplayWeek = [7]time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// WeekdayName returns the localized name of d. Unknown locales fall back to pt-BR.
func WeekdayName(d time.Weekday, locale string) string {
	names, ok := weekdayNames[locale]
	if !ok {
		names = weekdayNames[LocalePtBR]
	}
	return names[d]
}

func IsSupportedLocale(locale string) bool {
	_, ok := weekdayNames[locale]
	return ok
}
