// Package warehouse zapisuje przyjęte rekordy do hurtowni: wymiary SCD2,
// kalendarz, historię stanów i fakty transakcji. Loader żyje w obrębie
// jednej transakcji bazy (jednego etapu runu).
package warehouse

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
)

type Loader struct {
	tx        *gorm.DB
	dates     *DateRegistrar
	anomalies *dq.Log
	log       zerolog.Logger
	batchSize int
}

func NewLoader(tx *gorm.DB, anomalies *dq.Log, log zerolog.Logger) *Loader {
	return &Loader{
		tx:        tx,
		dates:     NewDateRegistrar(tx),
		anomalies: anomalies,
		log:       log,
		batchSize: conf.DefaultBatchSize,
	}
}

// WithBatchSize - rozmiar paczek dla zapytań IN.
func (l *Loader) WithBatchSize(n int) *Loader {
	if n > 0 {
		l.batchSize = n
	}
	return l
}

func (l *Loader) Dates() *DateRegistrar { return l.dates }

// chunks tnie listę kluczy na paczki dla zapytań IN.
func chunks(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func uniqueIDs[T any](in []T, id func(T) int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		k := id(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
