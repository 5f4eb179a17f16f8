package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db/dbtest"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/metrics"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source/sourcetest"
)

type fixture struct {
	src    *gorm.DB
	target *gorm.DB
	orch   *Orchestrator
	rec    *metrics.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		src:    sourcetest.DB(t),
		target: dbtest.DB(t),
		rec:    metrics.New(),
	}
	f.orch = New(source.NewDBReader(f.src, zerolog.Nop()), f.target, zerolog.Nop(), Options{
		BatchSize: 2,
		Metrics:   f.rec,
		Now:       func() time.Time { return time.Date(2026, 2, 2, 2, 0, 0, 0, time.UTC) },
	})
	return f
}

func (f *fixture) run(t *testing.T, day string) *Report {
	t.Helper()
	rep, err := f.orch.Run(context.Background(), db.MustDate(day))
	if err != nil {
		t.Fatalf("Run(%s): %v", day, err)
	}
	return rep
}

func seedDay1(t *testing.T, src *gorm.DB) {
	sourcetest.Seed(t, src,
		[]source.User{
			sourcetest.User(1, "Ann", "ann@example.com", "2025-06-01"),
			sourcetest.User(2, "Bea", "bea@example.com", "2025-07-01"),
			sourcetest.User(3, "", "nobody@example.com", "2025-07-01"),
		},
		[]source.Product{
			sourcetest.Product(10, "Mug", "Home", 10.00, 5),
			sourcetest.Product(11, "Lamp", "Home", 9999.99, 1),
			sourcetest.Product(12, "Watch", "Lux", 10000, 1),
		},
		[]source.Transaction{
			sourcetest.Tx(100, "2026-02-01", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(101, "2026-02-01", 1, 10, 0, 0, "visa", "success"),
			sourcetest.Tx(102, "2026-02-01", 1, 10, -3, -30, "visa", "success"),
			sourcetest.Tx(103, "2026-02-01", 2, 10, 3, 30.06, "Mastercard", "SUCCESS"),
			sourcetest.Tx(104, "2026/02/01", 2, 11, 1, 9999.99, "wire transfer", "failed"),
			sourcetest.Tx(105, "01-02-2026", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(106, "2026-02-01", 3, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(107, "2026-02-01", 1, 12, 1, 10000, "visa", "success"),
			sourcetest.Tx(108, "2026-02-01T10:00:00Z", 2, 10, 2, 20, "other", "success"),
		},
	)
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t)
	seedDay1(t, f.src)

	rep := f.run(t, "2026-02-01")

	if rep.Status != db.StatusSuccess {
		t.Fatalf("Status = %s", rep.Status)
	}
	// przyjęte: 100, 103 (ostrzeżenie o cenie), 104, 108
	if rep.Facts.Inserted != 4 {
		t.Errorf("facts inserted = %d, want 4 (report %+v)", rep.Facts.Inserted, rep.Facts)
	}
	if rep.Users.Inserted != 2 || rep.Products.Inserted != 2 || rep.Stock.Inserted != 2 {
		t.Errorf("dims/stock = %+v %+v %+v", rep.Users, rep.Products, rep.Stock)
	}

	s := rep.Summary
	want := map[dq.Kind]int{
		dq.InvalidUserRecords:  1,
		dq.PriceGE10000Product: 1,
		dq.QtyZeroTx:           1,
		dq.QtyNegativeTx:       1,
		dq.PriceMismatchTx:     1,
		dq.BadDateFormatTx:     1,
		dq.OrphanUserTx:        1,
		dq.OrphanProductTx:     1,
	}
	for k, n := range want {
		if s.Count(k) != n {
			t.Errorf("%s = %d, want %d", k, s.Count(k), n)
		}
	}
	if s.Warnings != 1 || s.Errors != 7 {
		t.Errorf("errors/warnings = %d/%d, want 7/1", s.Errors, s.Warnings)
	}

	var rec db.RunRecord
	if err := f.target.First(&rec, rep.RunID).Error; err != nil {
		t.Fatal(err)
	}
	if rec.Status != db.StatusSuccess || rec.Rows.FactTransactionsInserted != 4 || rec.Rows.DimUserInserted != 2 {
		t.Errorf("run record = %+v", rec)
	}
	if rec.Rows.DimDateInserted != 1 {
		t.Errorf("dim_date inserted = %d, want 1", rec.Rows.DimDateInserted)
	}
	if n := dbtest.Count(t, f.target, &db.ErrorLogEntry{}, "run_id = ?", rep.RunID); n != 8 {
		t.Errorf("etl_error_log rows = %d, want 8", n)
	}
	if n := dbtest.Count(t, f.target, &db.RunMetric{}, "run_id = ?", rep.RunID); n != 12 {
		t.Errorf("etl_run_metric rows = %d, want 12", n)
	}

	// 2026/02/01 znormalizowane do klucza dnia
	var fact db.FactTransaction
	if err := f.target.Where("transaction_id = ?", 104).First(&fact).Error; err != nil {
		t.Fatal(err)
	}
	if fact.DateID != 20260201 || fact.PaymentType != "wire transfer" {
		t.Errorf("fact 104 = %+v", fact)
	}
	var fact103 db.FactTransaction
	if err := f.target.Where("transaction_id = ?", 103).First(&fact103).Error; err != nil {
		t.Fatal(err)
	}
	if fact103.Status != "success" || fact103.PaymentType != "mastercard" {
		t.Errorf("fact 103 = %+v", fact103)
	}

	if rep.Totals == nil || rep.Totals.FactTransactions != 4 || rep.Totals.DimUserCurrent != 2 {
		t.Errorf("totals = %+v", rep.Totals)
	}
	n, err := testutil.GatherAndCount(f.rec.Registry(), "olap_etl_runs_total")
	if err != nil || n != 2 {
		t.Errorf("runs_total series = %d, %v", n, err)
	}
}

func TestRunRefusesProcessedDate(t *testing.T) {
	f := newFixture(t)
	seedDay1(t, f.src)
	f.run(t, "2026-02-01")

	for _, day := range []string{"2026-02-01", "2026-01-31"} {
		rep, err := f.orch.Run(context.Background(), db.MustDate(day))
		if !errors.Is(err, ErrSourceDateProcessed) {
			t.Fatalf("Run(%s) = %v, want ErrSourceDateProcessed", day, err)
		}
		if rep != nil {
			t.Errorf("Run(%s) returned a report for a refused run", day)
		}
	}
	if n := dbtest.Count(t, f.target, &db.RunRecord{}, ""); n != 1 {
		t.Errorf("run records = %d, want 1", n)
	}
}

func TestRunsAcrossDaysVersionDimensions(t *testing.T) {
	f := newFixture(t)
	seedDay1(t, f.src)
	f.run(t, "2026-02-01")

	// dzień 2: zmiana ceny kubka i maila Ann, nowe transakcje
	if err := f.src.Model(&source.Product{}).Where("product_id = ?", 10).Updates(map[string]any{"price": 12.0, "stock": 4}).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.src.Model(&source.User{}).Where("user_id = ?", 1).Update("email", "ann@new.example.com").Error; err != nil {
		t.Fatal(err)
	}
	sourcetest.Seed(t, f.src, nil, nil, []source.Transaction{
		sourcetest.Tx(200, "2026-02-02", 1, 10, 1, 12, "visa", "success"),
	})

	rep := f.run(t, "2026-02-02")
	if rep.Users.Updated != 1 || rep.Users.Unchanged != 1 {
		t.Errorf("users = %+v", rep.Users)
	}
	if rep.Products.Updated != 1 || rep.Stock.Inserted != 1 || rep.Facts.Inserted != 1 {
		t.Errorf("products/stock/facts = %+v %+v %+v", rep.Products, rep.Stock, rep.Facts)
	}
	if rep.Summary.Count(dq.PriceMismatchTx) != 0 {
		t.Error("transaction at the new catalog price flagged as mismatch")
	}

	var old, cur db.DimProduct
	if err := f.target.Where("product_id = ? AND current_flag = ?", 10, false).First(&old).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.target.Where("product_id = ? AND current_flag = ?", 10, true).First(&cur).Error; err != nil {
		t.Fatal(err)
	}
	if old.EndDate == nil || old.EndDate.String() != "2026-02-01" || cur.StartDate.String() != "2026-02-02" {
		t.Errorf("old/cur = %+v / %+v", old, cur)
	}

	var f100, f200 db.FactTransaction
	f.target.Where("transaction_id = ?", 100).First(&f100)
	f.target.Where("transaction_id = ?", 200).First(&f200)
	if f100.ProductSK != old.ProductSK || f200.ProductSK != cur.ProductSK {
		t.Errorf("product_sk 100/200 = %d/%d, want %d/%d", f100.ProductSK, f200.ProductSK, old.ProductSK, cur.ProductSK)
	}

	// trzeci dzień bez zmian
	rep = f.run(t, "2026-02-03")
	if rep.Users.Inserted+rep.Users.Updated+rep.Products.Inserted+rep.Products.Updated != 0 {
		t.Errorf("unchanged snapshot produced versions: %+v %+v", rep.Users, rep.Products)
	}
	if rep.Stock.Inserted != 0 || rep.Facts.Inserted != 0 {
		t.Errorf("unchanged snapshot produced facts: %+v %+v", rep.Stock, rep.Facts)
	}
	for _, id := range []int64{1, 2} {
		if n := dbtest.Count(t, f.target, &db.DimUser{}, "user_id = ? AND current_flag = ?", id, true); n != 1 {
			t.Errorf("user %d current versions = %d", id, n)
		}
	}
}

func TestFailedStageRollsBackOnlyItself(t *testing.T) {
	f := newFixture(t)
	seedDay1(t, f.src)

	// brak tabeli faktów => etap facts pada
	if err := f.target.Migrator().DropTable(&db.FactTransaction{}); err != nil {
		t.Fatal(err)
	}

	rep, err := f.orch.Run(context.Background(), db.MustDate("2026-02-01"))
	if err == nil {
		t.Fatal("Run succeeded without fact_transactions")
	}
	if rep == nil || rep.Status != db.StatusFailed {
		t.Fatalf("report = %+v", rep)
	}

	// wymiary zostały, historia stanów z etapu facts wycofana
	if n := dbtest.Count(t, f.target, &db.DimUser{}, ""); n != 2 {
		t.Errorf("dim_user rows = %d, want 2", n)
	}
	if n := dbtest.Count(t, f.target, &db.FactStockHistory{}, ""); n != 0 {
		t.Errorf("fact_stock_history rows = %d, want 0", n)
	}
	if n := dbtest.Count(t, f.target, &db.DimDate{}, ""); n != 0 {
		t.Errorf("dim_date rows = %d, want 0", n)
	}

	var rec db.RunRecord
	if err := f.target.First(&rec, rep.RunID).Error; err != nil {
		t.Fatal(err)
	}
	if rec.Status != db.StatusFailed || rec.EndedAt == nil || rec.Notes == "" {
		t.Errorf("run record = %+v", rec)
	}
	if rec.Rows.DimUserInserted != 2 || rec.Rows.FactStockHistoryInserted != 0 {
		t.Errorf("rows = %+v", rec.Rows)
	}
	// anomalie walidacji zapisane mimo porażki
	if n := dbtest.Count(t, f.target, &db.ErrorLogEntry{}, "run_id = ?", rep.RunID); n < 8 {
		t.Errorf("etl_error_log rows = %d, want >= 8", n)
	}

	// po nieudanym runie ten sam dzień można powtórzyć
	if err := f.target.AutoMigrate(&db.FactTransaction{}); err != nil {
		t.Fatal(err)
	}
	rep = f.run(t, "2026-02-01")
	if rep.Facts.Inserted != 4 || rep.Users.Unchanged != 2 {
		t.Errorf("retry = %+v %+v", rep.Facts, rep.Users)
	}
}

func TestSourceFailureFailsRun(t *testing.T) {
	target := dbtest.DB(t)
	orch := New(&sourcetest.Static{Err: errors.New("connection refused")}, target, zerolog.Nop(), Options{})

	rep, err := orch.Run(context.Background(), db.MustDate("2026-02-01"))
	if err == nil {
		t.Fatal("Run succeeded with a broken source")
	}
	if rep == nil || rep.Status != db.StatusFailed {
		t.Fatalf("report = %+v", rep)
	}
	last, err := orch.Ledger().LastSuccessful(context.Background())
	if err != nil || last != nil {
		t.Errorf("LastSuccessful = %+v, %v", last, err)
	}
}

func TestEmptySnapshotSucceeds(t *testing.T) {
	target := dbtest.DB(t)
	orch := New(&sourcetest.Static{Snap: &source.Snapshot{}}, target, zerolog.Nop(), Options{})

	rep, err := orch.Run(context.Background(), db.MustDate("2026-02-01"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != db.StatusSuccess || rep.Summary.Errors != 0 {
		t.Errorf("report = %+v", rep)
	}
	// dzień runu zawsze w kalendarzu
	if n := dbtest.Count(t, target, &db.DimDate{}, "date_id = ?", 20260201); n != 1 {
		t.Errorf("dim_date rows = %d", n)
	}
}
