package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// Totals - stan tabel hurtowni po udanym runie.
type Totals struct {
	DimUser           int64
	DimUserCurrent    int64
	DimProduct        int64
	DimProductCurrent int64
	DimDate           int64
	FactTransactions  int64
	FactStockHistory  int64
}

func (o *Orchestrator) totals(ctx context.Context) (*Totals, error) {
	q := o.target.WithContext(ctx)
	t := &Totals{}
	for _, c := range []struct {
		model any
		where string
		dst   *int64
	}{
		{&db.DimUser{}, "", &t.DimUser},
		{&db.DimUser{}, "current_flag = ?", &t.DimUserCurrent},
		{&db.DimProduct{}, "", &t.DimProduct},
		{&db.DimProduct{}, "current_flag = ?", &t.DimProductCurrent},
		{&db.DimDate{}, "", &t.DimDate},
		{&db.FactTransaction{}, "", &t.FactTransactions},
		{&db.FactStockHistory{}, "", &t.FactStockHistory},
	} {
		s := q.Model(c.model)
		if c.where != "" {
			s = s.Where(c.where, true)
		}
		if err := s.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
	}
	return t, nil
}

func (t *Totals) log(ev *zerolog.Event) {
	ev.Int64("dim_user", t.DimUser).
		Int64("dim_user_current", t.DimUserCurrent).
		Int64("dim_product", t.DimProduct).
		Int64("dim_product_current", t.DimProductCurrent).
		Int64("dim_date", t.DimDate).
		Int64("fact_transactions", t.FactTransactions).
		Int64("fact_stock_history", t.FactStockHistory).
		Msg("warehouse totals")
}
