package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Date to dzień kalendarzowy (UTC, bez czasu). W bazie jako tekst YYYY-MM-DD,
// żeby sortowanie i porównania działały tak samo na sqlite, mysql i postgresie.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf obcina czas, zostawia dzień w strefie t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate przyjmuje wyłącznie YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string { return d.Format(time.DateOnly) }

func (d Date) AddDays(n int) Date { return Date{d.Time.AddDate(0, 0, n)} }

// Key zwraca klucz dim_date (YYYYMMDD).
func (d Date) Key() int {
	return d.Year()*10000 + int(d.Month())*100 + d.Day()
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Ptr przydaje się przy kolumnach nullable (end_date).
func (d Date) Ptr() *Date { return &d }

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(x)
	case []byte:
		return d.scanString(string(x))
	case time.Time:
		*d = DateOf(x)
		return nil
	}
	return fmt.Errorf("db: cannot scan %T into Date", v)
}

// mysql/postgres potrafią oddać "2026-02-01 00:00:00", bierzemy tylko datę
func (d *Date) scanString(s string) error {
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	p, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("db: bad date %q: %w", s, err)
	}
	*d = p
	return nil
}

func (Date) GormDataType() string { return "string" }
