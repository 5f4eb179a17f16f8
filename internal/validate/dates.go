package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

var ErrBadDate = errors.New("unparseable date")

// ParseDate normalizuje datę transakcji do YYYY-MM-DD. Kolejność prób:
// ISO YYYY-MM-DD, YYYY/MM/DD, część datowa znacznika ISO-8601, YYYYMMDD.
func ParseDate(raw string) (db.Date, error) {
	if d, err := db.ParseDate(raw); err == nil {
		return d, nil
	}
	if t, err := time.Parse("2006/01/02", raw); err == nil {
		return db.DateOf(t), nil
	}
	if i := strings.IndexAny(raw, "Tt "); i > 0 {
		if d, err := db.ParseDate(raw[:i]); err == nil {
			return d, nil
		}
	}
	if len(raw) == 8 && allDigits(raw) {
		if t, err := time.Parse("20060102", raw); err == nil {
			return db.DateOf(t), nil
		}
	}
	return db.Date{}, fmt.Errorf("%w: %q", ErrBadDate, raw)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
