package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db/dbtest"
)

func TestMigrateCreatesNamedIndexes(t *testing.T) {
	h := dbtest.Empty(t, "olap.db")
	if err := h.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// drugi raz bez błędów
	if err := h.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	m := h.DB.Migrator()
	for _, c := range []struct {
		model any
		name  string
	}{
		{&db.DimUser{}, "idx_dim_user_id_flag"},
		{&db.DimProduct{}, "idx_dim_product_id_dates"},
		{&db.FactTransaction{}, "idx_fact_tx_id"},
		{&db.FactStockHistory{}, "idx_fact_stock_sk_date"},
	} {
		if !m.HasIndex(c.model, c.name) {
			t.Errorf("missing index %s", c.name)
		}
	}
	for _, tbl := range []string{"dim_date", "dim_user", "dim_product", "fact_transactions", "fact_stock_history", "etl_run_log", "etl_error_log", "etl_run_metric"} {
		if !m.HasTable(tbl) {
			t.Errorf("missing table %s", tbl)
		}
	}
}

func TestDuplicateDateIsDuplicateKey(t *testing.T) {
	gdb := dbtest.DB(t)
	row := db.NewDimDate(db.MustDate("2026-02-01"))
	if err := gdb.Create(&row).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	again := db.NewDimDate(db.MustDate("2026-02-01"))
	err := gdb.Create(&again).Error
	if !db.IsDuplicateKey(err) {
		t.Fatalf("want duplicate key, got %v", err)
	}
	if db.IsDuplicateKey(nil) || db.IsDuplicateKey(errors.New("boom")) {
		t.Fatal("plain errors are not duplicates")
	}
}

func TestNewDimDate(t *testing.T) {
	got := db.NewDimDate(db.MustDate("2026-02-01"))
	want := db.DimDate{DateID: 20260201, FullDate: db.MustDate("2026-02-01"), Year: 2026, Month: 2, Day: 1, Week: 5, Weekday: 7}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDateRoundTrip(t *testing.T) {
	gdb := dbtest.DB(t)
	d := db.MustDate("2026-03-15")
	if err := gdb.Create(&db.DimDate{DateID: d.Key(), FullDate: d}).Error; err != nil {
		t.Fatal(err)
	}
	var back db.DimDate
	if err := gdb.First(&back, "full_date = ?", d).Error; err != nil {
		t.Fatal(err)
	}
	if !back.FullDate.Equal(d) {
		t.Fatalf("read back %s, want %s", back.FullDate, d)
	}
}

func TestDateScan(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"2026-02-01", "2026-02-01"},
		{[]byte("2026-02-01 00:00:00"), "2026-02-01"},
		{time.Date(2026, 2, 1, 23, 10, 0, 0, time.UTC), "2026-02-01"},
	}
	for _, c := range cases {
		var d db.Date
		if err := d.Scan(c.in); err != nil {
			t.Fatalf("scan %v: %v", c.in, err)
		}
		if d.String() != c.want {
			t.Errorf("scan %v = %s, want %s", c.in, d, c.want)
		}
	}

	var d db.Date
	if err := d.Scan(42); err == nil {
		t.Error("int should not scan")
	}
	if err := d.Scan("01/02/2026"); err == nil {
		t.Error("non-ISO text should not scan")
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("nil scan: %v %v", d, err)
	}
}

func TestDateHelpers(t *testing.T) {
	d := db.MustDate("2026-02-28")
	if got := d.AddDays(1).String(); got != "2026-03-01" {
		t.Fatalf("AddDays = %s", got)
	}
	if !d.Before(d.AddDays(1)) || !d.AddDays(1).After(d) || !d.Equal(db.NewDate(2026, time.February, 28)) {
		t.Fatal("comparisons")
	}
	if _, err := db.ParseDate("2026/02/28"); err == nil {
		t.Fatal("only YYYY-MM-DD is accepted")
	}
}
