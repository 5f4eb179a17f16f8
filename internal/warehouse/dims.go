package warehouse

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/scd"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/validate"
)

// DimStats - wynik synchronizacji jednego wymiaru.
type DimStats struct {
	Inserted  int
	Updated   int
	Unchanged int
}

func (s *DimStats) add(o scd.Outcome) {
	switch o {
	case scd.Inserted:
		s.Inserted++
	case scd.Updated:
		s.Updated++
	default:
		s.Unchanged++
	}
}

// user: pierwsza wersja obowiązuje od join_date
var users = scd.New(scd.Binding[validate.User, db.DimUser]{
	Key:    func(u validate.User) int64 { return u.ID },
	Anchor: func(u validate.User, _ db.Date) db.Date { return u.JoinDate },
	Changed: func(cur db.DimUser, u validate.User) bool {
		// wersjonujemy tylko name i email
		return cur.Name != u.Name || cur.Email != u.Email
	},
	Build: func(u validate.User, start db.Date) db.DimUser {
		return db.DimUser{
			UserID:      u.ID,
			Name:        u.Name,
			Email:       u.Email,
			JoinDate:    u.JoinDate,
			StartDate:   start,
			CurrentFlag: true,
		}
	},
})

// product: pierwsza wersja obowiązuje od daty runu; stock nie wersjonuje
var products = scd.New(scd.Binding[validate.Product, db.DimProduct]{
	Key:    func(p validate.Product) int64 { return p.ID },
	Anchor: func(_ validate.Product, asOf db.Date) db.Date { return asOf },
	Changed: func(cur db.DimProduct, p validate.Product) bool {
		return cur.Name != p.Name || cur.Category != p.Category ||
			!decimal.NewFromFloat(cur.Price).Equal(decimal.NewFromFloat(p.Price))
	},
	Build: func(p validate.Product, start db.Date) db.DimProduct {
		return db.DimProduct{
			ProductID:   p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Price:       p.Price,
			StartDate:   start,
			CurrentFlag: true,
		}
	},
})

func (l *Loader) Users(in []validate.User, asOf db.Date) (DimStats, error) {
	st, err := syncAll(l, users, scd.NewGormStore[db.DimUser](l.tx, "user_id"), in, asOf)
	if err != nil {
		return st, err
	}
	l.log.Info().Int("inserted", st.Inserted).Int("updated", st.Updated).Int("unchanged", st.Unchanged).Msg("dim_user synchronized")
	return st, nil
}

func (l *Loader) Products(in []validate.Product, asOf db.Date) (DimStats, error) {
	st, err := syncAll(l, products, scd.NewGormStore[db.DimProduct](l.tx, "product_id"), in, asOf)
	if err != nil {
		return st, err
	}
	l.log.Info().Int("inserted", st.Inserted).Int("updated", st.Updated).Int("unchanged", st.Unchanged).Msg("dim_product synchronized")
	return st, nil
}

func syncAll[S, R any](l *Loader, s *scd.Synchronizer[S, R], store scd.Store[R], in []S, asOf db.Date) (DimStats, error) {
	var st DimStats
	for _, rec := range collapse(l, s, in) {
		o, err := s.Synchronize(store, rec, asOf)
		if err != nil {
			return st, err
		}
		st.add(o)
	}
	return st, nil
}

// collapse zostawia jeden rekord na klucz (ostatni wygrywa), w kolejności
// pierwszego wystąpienia.
func collapse[S, R any](l *Loader, s *scd.Synchronizer[S, R], in []S) []S {
	pos := make(map[int64]int, len(in))
	out := make([]S, 0, len(in))
	for _, rec := range in {
		k := s.Key(rec)
		if i, ok := pos[k]; ok {
			l.log.Debug().Int64("key", k).Msg("duplicate business key in batch, keeping last")
			out[i] = rec
			continue
		}
		pos[k] = len(out)
		out = append(out, rec)
	}
	return out
}

// currentProductKeys - product_id -> product_sk bieżących wersji.
func (l *Loader) currentProductKeys(ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	for _, part := range chunks(ids, l.batchSize) {
		var rows []db.DimProduct
		err := l.tx.Select("product_sk", "product_id").
			Where("product_id IN ? AND current_flag = ?", part, true).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.ProductID] = r.ProductSK
		}
	}
	return out, nil
}

// versions ładuje wszystkie wersje dla podanych kluczy, pogrupowane po kluczu.
func versions[R any](tx *gorm.DB, column string, ids []int64, size int, key func(R) int64) (map[int64][]R, error) {
	out := make(map[int64][]R, len(ids))
	for _, part := range chunks(ids, size) {
		var rows []R
		if err := tx.Where(column+" IN ?", part).Order("start_date").Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			k := key(r)
			out[k] = append(out[k], r)
		}
	}
	return out, nil
}
