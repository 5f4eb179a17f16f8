package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// DBReader czyta snapshot z relacyjnej bazy OLTP.
type DBReader struct {
	db  *gorm.DB
	h   *db.Handle
	log zerolog.Logger
}

func NewDBReader(gdb *gorm.DB, log zerolog.Logger) *DBReader {
	return &DBReader{db: gdb, log: log}
}

func (r *DBReader) Read(ctx context.Context, day db.Date) (*Snapshot, error) {
	q := r.db.WithContext(ctx)
	snap := &Snapshot{}

	if err := q.Order("user_id").Find(&snap.Users).Error; err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	if err := q.Order("product_id").Find(&snap.Products).Error; err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	prefixes := timestampPrefixes(day)
	if err := q.Where("date IN ? OR date LIKE ? OR date LIKE ?", DayRepresentations(day), prefixes[0]+"%", prefixes[1]+"%").
		Order("transaction_id").
		Find(&snap.Transactions).Error; err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	r.log.Info().
		Str("source_date", day.String()).
		Int("users", len(snap.Users)).
		Int("products", len(snap.Products)).
		Int("transactions", len(snap.Transactions)).
		Msg("source snapshot read")
	return snap, nil
}

func (r *DBReader) Close() error {
	if r.h == nil {
		return nil
	}
	return r.h.Close()
}

// Migrate zakłada tabele OLTP (dev i testy; produkcyjne źródło ma własny schemat).
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&User{}, &Product{}, &Transaction{}); err != nil {
		return fmt.Errorf("source AutoMigrate error: %w", err)
	}
	return nil
}

func openDB(c conf.DBConfig, log zerolog.Logger) (Reader, error) {
	h, err := db.Open(c, log)
	if err != nil {
		return nil, err
	}
	return &DBReader{db: h.DB, h: h, log: log}, nil
}

func init() {
	for _, d := range []string{conf.DriverSQLite, conf.DriverSQLitePure, conf.DriverMySQL, conf.DriverPostgres} {
		Register(d, openDB)
	}
}
