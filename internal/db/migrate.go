package db

import (
	"fmt"
)

// indeksy zakładane tagami w modelach; sprawdzamy je jeszcze raz po
// AutoMigrate, bo starsze bazy mogły powstać bez nich
var namedIndexes = []struct {
	model any
	name  string
}{
	{&DimUser{}, "idx_dim_user_id_flag"},
	{&DimUser{}, "idx_dim_user_id_dates"},
	{&DimProduct{}, "idx_dim_product_id_flag"},
	{&DimProduct{}, "idx_dim_product_id_dates"},
	{&FactTransaction{}, "idx_fact_tx_id"},
	{&FactStockHistory{}, "idx_fact_stock_sk_date"},
	{&DimDate{}, "idx_dim_date_full"},
}

// Models - wszystkie tabele hurtowni i dziennika runów.
func Models() []any {
	return []any{
		&DimDate{},
		&DimUser{},
		&DimProduct{},
		&FactTransaction{},
		&FactStockHistory{},
		&RunRecord{},
		&ErrorLogEntry{},
		&RunMetric{},
	}
}

// Migrate tworzy/aktualizuje schemat hurtowni.
// Kolejność:
//  1. AutoMigrate
//  2. upewnij się, że nazwane indeksy istnieją
func (h *Handle) Migrate() error {
	gdb := h.DB

	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	m := gdb.Migrator()
	for _, ix := range namedIndexes {
		if m.HasIndex(ix.model, ix.name) {
			continue
		}
		if err := m.CreateIndex(ix.model, ix.name); err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}
	return nil
}
