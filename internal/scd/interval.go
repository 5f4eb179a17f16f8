package scd

import "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"

// Interval - okres ważności wersji, obustronnie domknięty; End == nil = otwarty.
type Interval struct {
	Start db.Date
	End   *db.Date
}

func (iv Interval) Open() bool { return iv.End == nil }

func (iv Interval) Contains(d db.Date) bool {
	if d.Before(iv.Start) {
		return false
	}
	return iv.End == nil || !d.After(*iv.End)
}

// Resolve wybiera wersję obowiązującą w dniu on. Przy nakładających się
// okresach wygrywa ta z najpóźniejszym startem.
func Resolve[V any](versions []V, span func(V) Interval, on db.Date) (V, bool) {
	var (
		best  V
		start db.Date
		found bool
	)
	for _, v := range versions {
		iv := span(v)
		if !iv.Contains(on) {
			continue
		}
		if !found || iv.Start.After(start) {
			best, start, found = v, iv.Start, true
		}
	}
	return best, found
}
