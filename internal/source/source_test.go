package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source/sourcetest"
)

func TestMatchesDay(t *testing.T) {
	day := db.MustDate("2026-02-01")
	cases := map[string]bool{
		"2026-02-01":           true,
		"2026/02/01":           true,
		"20260201":             true,
		"01-02-2026":           true,
		"Feb 01, 2026":         true,
		"2026-02-01T09:15:00Z": true,
		"2026-02-01 09:15:00":  true,
		"2026-02-01x":          false,
		"2026-02-02":           false,
		"2026-02-011":          false,
		"2026-01-31T23:59:59Z": false,
	}
	for raw, want := range cases {
		if got := source.MatchesDay(raw, day); got != want {
			t.Errorf("MatchesDay(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestDBReaderFiltersTransactionsBySourceDay(t *testing.T) {
	gdb := sourcetest.DB(t)
	sourcetest.Seed(t, gdb,
		[]source.User{
			sourcetest.User(2, "Bea", "bea@example.com", "2025-12-01"),
			sourcetest.User(1, "Ann", "ann@example.com", "2025-11-01"),
		},
		[]source.Product{sourcetest.Product(10, "Mug", "Home", 10, 5)},
		[]source.Transaction{
			sourcetest.Tx(1, "2026-02-01", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(2, "2026/02/01", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(3, "2026-02-01T08:00:00Z", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(4, "Feb 01, 2026", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(5, "2026-02-02", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(6, "2026-01-31", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(7, "2026-02-01 10:00:00", 1, 10, 1, 10, "visa", "success"),
			sourcetest.Tx(8, "2026-02-02 00:00:01", 1, 10, 1, 10, "visa", "success"),
		},
	)

	r := source.NewDBReader(gdb, zerolog.Nop())
	snap, err := r.Read(context.Background(), db.MustDate("2026-02-01"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(snap.Users) != 2 || snap.Users[0].UserID != 1 {
		t.Errorf("users = %+v, want both ordered by id", snap.Users)
	}
	if len(snap.Products) != 1 {
		t.Errorf("products = %d, want 1", len(snap.Products))
	}
	var ids []int64
	for _, tx := range snap.Transactions {
		ids = append(ids, tx.TransactionID)
	}
	if len(ids) != 5 || ids[0] != 1 || ids[3] != 4 || ids[4] != 7 {
		t.Errorf("transaction ids = %v, want [1 2 3 4 7]", ids)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := source.Open(conf.DBConfig{Driver: "csv", DSN: "x"}, zerolog.Nop())
	if err == nil {
		t.Fatal("Open accepted an unknown driver")
	}
	drivers := source.Drivers()
	if len(drivers) != 5 {
		t.Errorf("Drivers() = %v, want 5 registered", drivers)
	}
}

func TestXMLReaderDecodesDeclaredCharset(t *testing.T) {
	dir := t.TempDir()
	day := db.MustDate("2026-02-01")

	// "Łódź" w windows-1250
	lodz := string([]byte{0xA3, 0xF3, 'd', 0x9F})
	body := `<?xml version="1.0" encoding="cp1250"?>
<snapshot date="2026-02-01">
  <users>
    <user><user_id>1</user_id><name>` + lodz + `</name><email>a@b.pl</email><join_date>2025-01-01</join_date></user>
    <user><user_id>2</user_id><name></name><email>c@d.pl</email></user>
  </users>
  <products>
    <product><product_id>10</product_id><name> Mug </name><category>Home</category><price>12,50</price><stock>3</stock></product>
  </products>
  <transactions>
    <transaction><transaction_id>7</transaction_id><date>2026/02/01</date><user_id>1</user_id><product_id>10</product_id><quantity>2</quantity><price>25,00</price><payment_type>Visa</payment_type><status>success</status></transaction>
    <transaction><transaction_id>8</transaction_id><date>2026-01-30</date><user_id>1</user_id><product_id>10</product_id><quantity>1</quantity><price>12.5</price><payment_type>visa</payment_type><status>success</status></transaction>
    <transaction><transaction_id>9</transaction_id><date>2026-02-01</date><user_id>2</user_id><product_id>10</product_id><quantity>1</quantity><price>12.5</price></transaction>
  </transactions>
</snapshot>`
	if err := os.WriteFile(filepath.Join(dir, source.FileName(day)), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := source.Open(conf.DBConfig{Driver: conf.DriverXML, DSN: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	snap, err := r.Read(context.Background(), day)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(snap.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(snap.Users))
	}
	if got := *snap.Users[0].Name; got != "Łódź" {
		t.Errorf("name = %q, want Łódź", got)
	}
	if snap.Users[1].Name == nil || *snap.Users[1].Name != "" {
		t.Errorf("empty <name/> should be an empty string, got %v", snap.Users[1].Name)
	}
	if snap.Users[1].JoinDate != nil {
		t.Errorf("missing <join_date> should be nil, got %q", *snap.Users[1].JoinDate)
	}

	p := snap.Products[0]
	if p.Name != "Mug" || p.Price != 12.5 || p.Stock != 3 {
		t.Errorf("product = %+v", p)
	}

	if len(snap.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2 (other day filtered)", len(snap.Transactions))
	}
	tx := snap.Transactions[0]
	if tx.TransactionID != 7 || tx.Total != 25 || *tx.PaymentType != "Visa" {
		t.Errorf("tx = %+v", tx)
	}
	if snap.Transactions[1].Status != nil {
		t.Error("missing <status> should be nil")
	}
}

func TestXMLReaderMissingFile(t *testing.T) {
	r := source.NewXMLReader(t.TempDir(), "", zerolog.Nop())
	if _, err := r.Read(context.Background(), db.MustDate("2026-02-01")); err == nil {
		t.Fatal("Read succeeded without a snapshot file")
	}
}
