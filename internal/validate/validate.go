// Package validate dzieli partie ze źródła na przyjęte i odrzucone.
// Każda niespełniona reguła to osobny wpis w dzienniku anomalii.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	maxPrice       = decimal.NewFromInt(10000)
	priceTolerance = decimal.RequireFromString("0.01")
)

var (
	paymentTypes = map[string]bool{"visa": true, "mastercard": true, "wire transfer": true, "other": true}
	statuses     = map[string]bool{"success": true, "failed": true}
)

type Validator struct {
	log       zerolog.Logger
	anomalies *dq.Log
}

func New(log zerolog.Logger, anomalies *dq.Log) *Validator {
	return &Validator{log: log, anomalies: anomalies}
}

// All waliduje snapshot w kolejności: userzy, produkty, transakcje
// (transakcje sprawdzane względem przyjętych userów i produktów).
func (v *Validator) All(snap *source.Snapshot) Outcome {
	var out Outcome
	out.Users = v.Users(snap.Users)
	out.Products = v.Products(snap.Products)
	out.Transactions = v.Transactions(snap.Transactions, NewRefs(out.Users.Accepted, out.Products.Accepted))

	v.log.Info().
		Int("users_ok", len(out.Users.Accepted)).
		Int("users_rejected", len(out.Users.Rejected)).
		Int("products_ok", len(out.Products.Accepted)).
		Int("products_rejected", len(out.Products.Rejected)).
		Int("transactions_ok", len(out.Transactions.Accepted)).
		Int("transactions_rejected", len(out.Transactions.Rejected)).
		Msg("validation done")
	return out
}

func (v *Validator) Users(in []source.User) Result[User, source.User] {
	var res Result[User, source.User]
	for _, u := range in {
		ok := true
		fail := func(format string, args ...any) {
			ok = false
			v.anomalies.Error(dq.InvalidUserRecords, dq.EntityUser, dq.TableDimUser, u.UserID, format, args...)
		}

		name := deref(u.Name)
		if strings.TrimSpace(name) == "" {
			fail("User %d has empty name", u.UserID)
		}
		email := deref(u.Email)
		if !emailRe.MatchString(email) {
			fail("User %d has invalid email %q", u.UserID, email)
		}

		var joinDate db.Date
		if u.JoinDate == nil {
			fail("User %d has null join_date", u.UserID)
		} else if d, err := ParseDate(*u.JoinDate); err != nil {
			fail("User %d has unparseable join_date %q", u.UserID, *u.JoinDate)
		} else {
			joinDate = d
		}

		if !ok {
			res.Rejected = append(res.Rejected, u)
			continue
		}
		res.Accepted = append(res.Accepted, User{
			ID:       u.UserID,
			Name:     name,
			Email:    email,
			JoinDate: joinDate,
		})
	}
	return res
}

func (v *Validator) Products(in []source.Product) Result[Product, source.Product] {
	var res Result[Product, source.Product]
	for _, p := range in {
		ok := true
		if decimal.NewFromFloat(p.Price).GreaterThanOrEqual(maxPrice) {
			ok = false
			v.anomalies.Error(dq.PriceGE10000Product, dq.EntityProduct, dq.TableDimProduct, p.ProductID,
				"Product %d price %s >= %s", p.ProductID, decimal.NewFromFloat(p.Price), maxPrice)
		}
		if p.Stock < 0 {
			ok = false
			v.anomalies.Error(dq.NegativeStockProduct, dq.EntityProduct, dq.TableDimProduct, p.ProductID,
				"Product %d has negative stock %d", p.ProductID, p.Stock)
		}
		if !ok {
			res.Rejected = append(res.Rejected, p)
			continue
		}
		res.Accepted = append(res.Accepted, Product{
			ID:       p.ProductID,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Stock:    p.Stock,
		})
	}
	return res
}

func (v *Validator) Transactions(in []source.Transaction, refs Refs) Result[Transaction, source.Transaction] {
	var res Result[Transaction, source.Transaction]
	seen := make(map[int64]bool, len(in))

	for _, t := range in {
		ok := true
		fail := func(kind dq.Kind, format string, args ...any) {
			ok = false
			v.anomalies.Error(kind, dq.EntityTransaction, dq.TableFactTransactions, t.TransactionID, format, args...)
		}

		if _, found := refs.Users[t.UserID]; !found {
			fail(dq.OrphanUserTx, "Transaction %d references non-existent user %d", t.TransactionID, t.UserID)
		}
		if _, found := refs.Products[t.ProductID]; !found {
			fail(dq.OrphanProductTx, "Transaction %d references non-existent product %d", t.TransactionID, t.ProductID)
		}

		switch {
		case t.Quantity == 0:
			fail(dq.QtyZeroTx, "Transaction %d has quantity 0", t.TransactionID)
		case t.Quantity < 0:
			fail(dq.QtyNegativeTx, "Transaction %d has negative quantity %d", t.TransactionID, t.Quantity)
		}

		payment := strings.ToLower(deref(t.PaymentType))
		if !paymentTypes[payment] {
			fail(dq.InvalidPaymentTypeTx, "Transaction %d has invalid payment_type %s", t.TransactionID, quoteNullable(t.PaymentType))
		}
		status := strings.ToLower(deref(t.Status))
		if !statuses[status] {
			fail(dq.InvalidStatusTx, "Transaction %d has invalid status %s", t.TransactionID, quoteNullable(t.Status))
		}

		date, err := ParseDate(t.Date)
		if err != nil {
			fail(dq.BadDateFormatTx, "Transaction %d has bad date format %q", t.TransactionID, t.Date)
		}

		if seen[t.TransactionID] {
			v.anomalies.Warn(dq.DuplicateTxID, dq.EntityTransaction, dq.TableFactTransactions, t.TransactionID,
				"Transaction id %d appears more than once in the batch", t.TransactionID)
		}
		seen[t.TransactionID] = true

		if !ok {
			res.Rejected = append(res.Rejected, t)
			continue
		}

		// cena jednostkowa vs katalog, tylko dla poprawnych rekordów
		if expected, found := refs.Prices[t.ProductID]; found && t.Quantity > 0 {
			unit := decimal.NewFromFloat(t.Total).Div(decimal.NewFromInt(int64(t.Quantity)))
			if unit.Sub(expected).Abs().GreaterThan(priceTolerance) {
				v.anomalies.Warn(dq.PriceMismatchTx, dq.EntityTransaction, dq.TableFactTransactions, t.TransactionID,
					"Transaction %d unit price %s differs from catalog price %s", t.TransactionID, unit.StringFixed(2), expected.StringFixed(2))
			}
		}

		res.Accepted = append(res.Accepted, Transaction{
			ID:          t.TransactionID,
			Date:        date,
			UserID:      t.UserID,
			ProductID:   t.ProductID,
			Quantity:    t.Quantity,
			Total:       t.Total,
			PaymentType: payment,
			Status:      status,
		})
	}
	return res
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func quoteNullable(s *string) string {
	if s == nil {
		return "NULL"
	}
	return fmt.Sprintf("%q", *s)
}
