// Package dq opisuje zamkniętą taksonomię anomalii jakości danych
// i bufor, do którego etapy runu je zgłaszają.
package dq

import "fmt"

// Kind - rodzaj anomalii. Zbiór zamknięty, każdy rodzaj to osobny licznik runu.
type Kind uint8

const (
	OrphanUserTx Kind = iota + 1
	OrphanProductTx
	QtyZeroTx
	QtyNegativeTx
	PriceGE10000Product
	PriceMismatchTx
	InvalidPaymentTypeTx
	InvalidStatusTx
	BadDateFormatTx
	DuplicateTxID
	InvalidUserRecords
	NegativeStockProduct
)

var kindNames = [...]string{
	OrphanUserTx:         "orphan_user_tx",
	OrphanProductTx:      "orphan_product_tx",
	QtyZeroTx:            "qty_zero_tx",
	QtyNegativeTx:        "qty_negative_tx",
	PriceGE10000Product:  "price_ge_10000_product",
	PriceMismatchTx:      "price_mismatch_tx",
	InvalidPaymentTypeTx: "invalid_payment_type_tx",
	InvalidStatusTx:      "invalid_status_tx",
	BadDateFormatTx:      "bad_date_format_tx",
	DuplicateTxID:        "duplicate_tx_id",
	InvalidUserRecords:   "invalid_user_records",
	NegativeStockProduct: "negative_stock_product",
}

func (k Kind) Valid() bool { return k > 0 && int(k) < len(kindNames) }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Kinds zwraca wszystkie rodzaje w stałej kolejności.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := OrphanUserTx; k.Valid(); k++ {
		out = append(out, k)
	}
	return out
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("dq: unknown anomaly kind %q", s)
}

type Entity string

const (
	EntityUser        Entity = "user"
	EntityProduct     Entity = "product"
	EntityTransaction Entity = "transaction"
	EntityDate        Entity = "date"
)

type Table string

const (
	TableDimUser          Table = "dim_user"
	TableDimProduct       Table = "dim_product"
	TableDimDate          Table = "dim_date"
	TableFactTransactions Table = "fact_transactions"
	TableFactStockHistory Table = "fact_stock_history"
)

type Severity string

const (
	SeverityError   Severity = "error"   // rekord odrzucony
	SeverityWarning Severity = "warning" // rekord mimo to ładowany (albo pominięty bez błędu runu)
)
