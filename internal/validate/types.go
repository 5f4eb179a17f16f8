package validate

import (
	"github.com/shopspring/decimal"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

// Rekordy po walidacji, już znormalizowane.

type User struct {
	ID       int64
	Name     string
	Email    string
	JoinDate db.Date
}

type Product struct {
	ID       int64
	Name     string
	Category string
	Price    float64
	Stock    int
}

type Transaction struct {
	ID          int64
	Date        db.Date
	UserID      int64
	ProductID   int64
	Quantity    int
	Total       float64
	PaymentType string // lower-case
	Status      string // lower-case
}

// Result - podział partii na przyjęte i odrzucone.
type Result[A, R any] struct {
	Accepted []A
	Rejected []R
}

// Refs - zbiory referencyjne dla transakcji, z przyjętych userów i produktów.
type Refs struct {
	Users    map[int64]struct{}
	Products map[int64]struct{}
	Prices   map[int64]decimal.Decimal
}

func NewRefs(users []User, products []Product) Refs {
	r := Refs{
		Users:    make(map[int64]struct{}, len(users)),
		Products: make(map[int64]struct{}, len(products)),
		Prices:   make(map[int64]decimal.Decimal, len(products)),
	}
	for _, u := range users {
		r.Users[u.ID] = struct{}{}
	}
	for _, p := range products {
		r.Products[p.ID] = struct{}{}
		r.Prices[p.ID] = decimal.NewFromFloat(p.Price)
	}
	return r
}

// Outcome - wynik walidacji całego snapshotu.
type Outcome struct {
	Users        Result[User, source.User]
	Products     Result[Product, source.Product]
	Transactions Result[Transaction, source.Transaction]
}

func (o Outcome) Rejected() int {
	return len(o.Users.Rejected) + len(o.Products.Rejected) + len(o.Transactions.Rejected)
}
