package warehouse

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/scd"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/validate"
)

type FactStats struct {
	Inserted      int
	AlreadyLoaded int // transaction_id był w fact_transactions przed runem
	Orphaned      int // brak wersji wymiaru w dniu transakcji
	Duplicates    int // powtórzone id w partii albo kolizja przy insercie
}

func userSpan(u db.DimUser) scd.Interval {
	return scd.Interval{Start: u.StartDate, End: u.EndDate}
}

func productSpan(p db.DimProduct) scd.Interval {
	return scd.Interval{Start: p.StartDate, End: p.EndDate}
}

// Transactions ładuje fakty. Klucze wymiarów wybierane są po dacie
// transakcji, nie po dacie runu.
func (l *Loader) Transactions(in []validate.Transaction, runDate db.Date) (FactStats, error) {
	var st FactStats

	existing, err := l.existingTransactionIDs(uniqueIDs(in, func(t validate.Transaction) int64 { return t.ID }))
	if err != nil {
		return st, fmt.Errorf("existing transaction ids: %w", err)
	}

	userVers, err := versions(l.tx, "user_id",
		uniqueIDs(in, func(t validate.Transaction) int64 { return t.UserID }), l.batchSize,
		func(u db.DimUser) int64 { return u.UserID })
	if err != nil {
		return st, fmt.Errorf("load dim_user versions: %w", err)
	}
	productVers, err := versions(l.tx, "product_id",
		uniqueIDs(in, func(t validate.Transaction) int64 { return t.ProductID }), l.batchSize,
		func(p db.DimProduct) int64 { return p.ProductID })
	if err != nil {
		return st, fmt.Errorf("load dim_product versions: %w", err)
	}

	handled := make(map[int64]bool, len(in))
	for _, t := range in {
		if existing[t.ID] {
			st.AlreadyLoaded++
			continue
		}
		if handled[t.ID] {
			// walidator już zgłosił duplikat, liczy się pierwszy egzemplarz
			l.log.Debug().Int64("transaction_id", t.ID).Msg("repeated transaction id in batch, skipped")
			st.Duplicates++
			continue
		}
		handled[t.ID] = true

		dateID, err := l.dates.Ensure(t.Date)
		if err != nil {
			return st, err
		}

		user, ok := scd.Resolve(userVers[t.UserID], userSpan, t.Date)
		if !ok {
			l.anomalies.Warn(dq.OrphanUserTx, dq.EntityTransaction, dq.TableFactTransactions, t.ID,
				"Transaction %d: no dim_user version of user %d valid on %s", t.ID, t.UserID, t.Date)
			st.Orphaned++
			continue
		}
		product, ok := scd.Resolve(productVers[t.ProductID], productSpan, t.Date)
		if !ok {
			l.anomalies.Warn(dq.OrphanProductTx, dq.EntityTransaction, dq.TableFactTransactions, t.ID,
				"Transaction %d: no dim_product version of product %d valid on %s", t.ID, t.ProductID, t.Date)
			st.Orphaned++
			continue
		}

		fact := db.FactTransaction{
			TransactionID: t.ID,
			ProductSK:     product.ProductSK,
			UserSK:        user.UserSK,
			DateID:        dateID,
			Quantity:      t.Quantity,
			Total:         t.Total,
			PaymentType:   t.PaymentType,
			Status:        t.Status,
			LoadDate:      runDate,
		}
		if err := l.insertFact(&fact, &st); err != nil {
			return st, err
		}
	}

	l.log.Info().
		Int("inserted", st.Inserted).
		Int("already_loaded", st.AlreadyLoaded).
		Int("orphaned", st.Orphaned).
		Int("duplicates", st.Duplicates).
		Msg("fact_transactions loaded")
	return st, nil
}

// insertFact wstawia fakt w savepoincie: kolizja klucza nie może zepsuć
// całej transakcji etapu, kończy się ostrzeżeniem duplicate_tx_id.
func (l *Loader) insertFact(fact *db.FactTransaction, st *FactStats) error {
	err := l.tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(fact).Error
	})
	switch {
	case db.IsDuplicateKey(err):
		l.anomalies.Warn(dq.DuplicateTxID, dq.EntityTransaction, dq.TableFactTransactions, fact.TransactionID,
			"Transaction %d already present in fact_transactions, skipped", fact.TransactionID)
		st.Duplicates++
		return nil
	case err != nil:
		return fmt.Errorf("insert transaction %d: %w", fact.TransactionID, err)
	}
	st.Inserted++
	return nil
}

func (l *Loader) existingTransactionIDs(ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, part := range chunks(ids, l.batchSize) {
		var found []int64
		err := l.tx.Model(&db.FactTransaction{}).
			Where("transaction_id IN ?", part).
			Distinct().
			Pluck("transaction_id", &found).Error
		if err != nil {
			return nil, err
		}
		for _, id := range found {
			out[id] = true
		}
	}
	return out, nil
}
