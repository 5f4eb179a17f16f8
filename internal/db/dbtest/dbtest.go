// Package dbtest daje testom świeże bazy sqlite (czysty Go) w katalogu tymczasowym.
package dbtest

import (
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// Empty otwiera pustą bazę bez schematu.
func Empty(tb testing.TB, name string) *db.Handle {
	tb.Helper()
	h, err := db.OpenAt(tb.TempDir(), name, zerolog.Nop())
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	h.DB.Logger = h.DB.Logger.LogMode(logger.Silent)
	tb.Cleanup(func() { _ = h.Close() })
	return h
}

// DB zwraca zmigrowaną bazę hurtowni.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	h := Empty(tb, "olap.db")
	if err := h.Migrate(); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return h.DB
}

// Tx otwiera transakcję wycofywaną po teście.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}

// Count - liczba wierszy modelu spełniających warunek (pusty = wszystkie).
func Count(tb testing.TB, gdb *gorm.DB, model any, where string, args ...any) int64 {
	tb.Helper()
	q := gdb.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		tb.Fatalf("count %T: %v", model, err)
	}
	return n
}
