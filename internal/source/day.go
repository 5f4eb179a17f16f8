package source

import (
	"strings"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// DayRepresentations - zapisy tego samego dnia spotykane w kolumnie
// transactions.date. Pobieramy je wszystkie, żeby wadliwe formaty
// trafiły do walidatora zamiast zniknąć po cichu.
func DayRepresentations(day db.Date) []string {
	return []string{
		day.Format("2006-01-02"),
		day.Format("2006/01/02"),
		day.Format("20060102"),
		day.Format("02-01-2006"),
		day.Format("Jan 02, 2006"),
	}
}

// timestampPrefixes - prefiksy znaczników czasu: ISO-8601 (2026-02-01T10:00:00Z)
// i zapis ze spacją (2026-02-01 10:00:00)
func timestampPrefixes(day db.Date) []string {
	return []string{day.String() + "T", day.String() + " "}
}

func MatchesDay(raw string, day db.Date) bool {
	for _, p := range timestampPrefixes(day) {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	for _, r := range DayRepresentations(day) {
		if raw == r {
			return true
		}
	}
	return false
}
