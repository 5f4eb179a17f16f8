// Package sourcetest buduje bazy OLTP z danymi dla testów.
package sourcetest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db/dbtest"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	h := dbtest.Empty(tb, "oltp.db")
	if err := source.Migrate(h.DB); err != nil {
		tb.Fatalf("migrate source: %v", err)
	}
	return h.DB
}

func Str(s string) *string { return &s }

func User(id int64, name, email, joinDate string) source.User {
	return source.User{UserID: id, Name: Str(name), Email: Str(email), JoinDate: Str(joinDate)}
}

func Product(id int64, name, category string, price float64, stock int) source.Product {
	return source.Product{ProductID: id, Name: name, Category: category, Price: price, Stock: stock}
}

func Tx(id int64, date string, userID, productID int64, qty int, total float64, payment, status string) source.Transaction {
	return source.Transaction{
		TransactionID: id,
		Date:          date,
		UserID:        userID,
		ProductID:     productID,
		Quantity:      qty,
		Total:         total,
		PaymentType:   Str(payment),
		Status:        Str(status),
	}
}

// Seed zapisuje rekordy do bazy źródłowej.
func Seed(tb testing.TB, gdb *gorm.DB, users []source.User, products []source.Product, txs []source.Transaction) {
	tb.Helper()
	if len(users) > 0 {
		if err := gdb.Create(&users).Error; err != nil {
			tb.Fatalf("seed users: %v", err)
		}
	}
	if len(products) > 0 {
		if err := gdb.Create(&products).Error; err != nil {
			tb.Fatalf("seed products: %v", err)
		}
	}
	if len(txs) > 0 {
		if err := gdb.Create(&txs).Error; err != nil {
			tb.Fatalf("seed transactions: %v", err)
		}
	}
}

// Static - Reader z gotowym snapshotem, bez bazy.
type Static struct {
	Snap *source.Snapshot
	Err  error
}
