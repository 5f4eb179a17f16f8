package warehouse

import (
	"fmt"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/validate"
)

type StockStats struct {
	Inserted  int
	Unchanged int
	Skipped   int // brak bieżącej wersji produktu
}

// Stock dopisuje wiersz historii tylko, gdy stan różni się od ostatnio
// zapisanego dla bieżącej wersji produktu.
func (l *Loader) Stock(in []validate.Product, runDate db.Date) (StockStats, error) {
	var st StockStats
	in = collapse(l, products, in)

	sks, err := l.currentProductKeys(uniqueIDs(in, func(p validate.Product) int64 { return p.ID }))
	if err != nil {
		return st, fmt.Errorf("resolve product keys: %w", err)
	}

	for _, p := range in {
		sk, ok := sks[p.ID]
		if !ok {
			l.anomalies.Warn(dq.OrphanProductTx, dq.EntityProduct, dq.TableFactStockHistory, p.ID,
				"Product %d has no current dimension version, stock not recorded", p.ID)
			st.Skipped++
			continue
		}

		last, found, err := l.lastStock(sk)
		if err != nil {
			return st, fmt.Errorf("last stock of product_sk %d: %w", sk, err)
		}
		if found && last == p.Stock {
			st.Unchanged++
			continue
		}

		dateID, err := l.dates.Ensure(runDate)
		if err != nil {
			return st, err
		}
		row := db.FactStockHistory{
			ProductSK: sk,
			DateID:    dateID,
			Stock:     p.Stock,
			LoadDate:  runDate,
		}
		if err := l.tx.Create(&row).Error; err != nil {
			return st, fmt.Errorf("insert stock of product_sk %d: %w", sk, err)
		}
		st.Inserted++
	}

	l.log.Info().
		Int("inserted", st.Inserted).
		Int("unchanged", st.Unchanged).
		Int("skipped", st.Skipped).
		Msg("fact_stock_history loaded")
	return st, nil
}

func (l *Loader) lastStock(productSK int64) (int, bool, error) {
	var rows []db.FactStockHistory
	err := l.tx.Where("product_sk = ?", productSK).
		Order("date_id DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0, false, err
	}
	return rows[0].Stock, true, nil
}
