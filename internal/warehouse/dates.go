package warehouse

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// DateRegistrar dopisuje dni do dim_date. Istniejących wierszy nie rusza.
type DateRegistrar struct {
	tx       *gorm.DB
	seen     map[int]bool
	inserted int
}

func NewDateRegistrar(tx *gorm.DB) *DateRegistrar {
	return &DateRegistrar{tx: tx, seen: map[int]bool{}}
}

// Ensure zwraca klucz YYYYMMDD; wstawia wiersz tylko, gdy go brak.
func (r *DateRegistrar) Ensure(d db.Date) (int, error) {
	key := d.Key()
	if r.seen[key] {
		return key, nil
	}

	row := db.NewDimDate(d)
	res := r.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("register date %s: %w", d, res.Error)
	}
	r.inserted += int(res.RowsAffected)
	r.seen[key] = true
	return key, nil
}

// Inserted - ile dni faktycznie dopisano.
func (r *DateRegistrar) Inserted() int { return r.inserted }
