// internal/db/models.go
package db

import "time"

// dim_date (SCD0, raz wstawiony nigdy się nie zmienia)
type DimDate struct {
	DateID   int  `gorm:"primaryKey;autoIncrement:false;column:date_id"` // YYYYMMDD
	FullDate Date `gorm:"type:varchar(10);not null;index:idx_dim_date_full"`
	Year     int  `gorm:"not null"`
	Month    int  `gorm:"not null"`
	Day      int  `gorm:"not null"`
	Week     int  `gorm:"not null"` // ISO
	Weekday  int  `gorm:"not null"` // ISO 1=pon .. 7=niedz
}

func (DimDate) TableName() string { return "dim_date" }

func NewDimDate(d Date) DimDate {
	_, week := d.ISOWeek()
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return DimDate{
		DateID:   d.Key(),
		FullDate: d,
		Year:     d.Year(),
		Month:    int(d.Month()),
		Day:      d.Day(),
		Week:     week,
		Weekday:  wd,
	}
}

// dim_user (SCD2)
type DimUser struct {
	UserSK      int64  `gorm:"primaryKey;column:user_sk"`
	UserID      int64  `gorm:"not null;index:idx_dim_user_id_flag,priority:1;index:idx_dim_user_id_dates,priority:1"`
	Name        string `gorm:"size:255;not null"`
	Email       string `gorm:"size:255;not null"`
	JoinDate    Date   `gorm:"type:varchar(10);not null"`
	StartDate   Date   `gorm:"type:varchar(10);not null;index:idx_dim_user_id_dates,priority:2"`
	EndDate     *Date  `gorm:"type:varchar(10);index:idx_dim_user_id_dates,priority:3"`
	CurrentFlag bool   `gorm:"not null;default:true;index:idx_dim_user_id_flag,priority:2"`
}

func (DimUser) TableName() string { return "dim_user" }

// dim_product (SCD2). Stan magazynowy celowo poza wymiarem, patrz fact_stock_history.
type DimProduct struct {
	ProductSK   int64   `gorm:"primaryKey;column:product_sk"`
	ProductID   int64   `gorm:"not null;index:idx_dim_product_id_flag,priority:1;index:idx_dim_product_id_dates,priority:1"`
	Name        string  `gorm:"size:255;not null"`
	Category    string  `gorm:"size:100;not null"`
	Price       float64 `gorm:"not null"`
	StartDate   Date    `gorm:"type:varchar(10);not null;index:idx_dim_product_id_dates,priority:2"`
	EndDate     *Date   `gorm:"type:varchar(10);index:idx_dim_product_id_dates,priority:3"`
	CurrentFlag bool    `gorm:"not null;default:true;index:idx_dim_product_id_flag,priority:2"`
}

func (DimProduct) TableName() string { return "dim_product" }

// fact_transactions, PK złożony jak w źródłowym modelu
type FactTransaction struct {
	TransactionID int64   `gorm:"primaryKey;autoIncrement:false;column:transaction_id;index:idx_fact_tx_id"`
	ProductSK     int64   `gorm:"primaryKey;autoIncrement:false;column:product_sk"`
	UserSK        int64   `gorm:"not null;column:user_sk"`
	DateID        int     `gorm:"not null;index"`
	Quantity      int     `gorm:"not null"`
	Total         float64 `gorm:"not null"`
	PaymentType   string  `gorm:"size:50;not null"`
	Status        string  `gorm:"size:20;not null"`
	LoadDate      Date    `gorm:"type:varchar(10);not null"`
}

func (FactTransaction) TableName() string { return "fact_transactions" }

// fact_stock_history, tylko dopisywanie
type FactStockHistory struct {
	ID        int64 `gorm:"primaryKey;column:id"`
	ProductSK int64 `gorm:"not null;column:product_sk;index:idx_fact_stock_sk_date,priority:1"`
	DateID    int   `gorm:"not null;index:idx_fact_stock_sk_date,priority:2"`
	Stock     int   `gorm:"not null"`
	LoadDate  Date  `gorm:"type:varchar(10);not null"`
}

func (FactStockHistory) TableName() string { return "fact_stock_history" }

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RowCounts - liczniki per tabela w etl_run_log
type RowCounts struct {
	DimUserInserted          int `gorm:"column:rows_dim_user_inserted;not null;default:0"`
	DimUserUpdated           int `gorm:"column:rows_dim_user_updated;not null;default:0"`
	DimProductInserted       int `gorm:"column:rows_dim_product_inserted;not null;default:0"`
	DimProductUpdated        int `gorm:"column:rows_dim_product_updated;not null;default:0"`
	DimDateInserted          int `gorm:"column:rows_dim_date_inserted;not null;default:0"`
	FactTransactionsInserted int `gorm:"column:rows_fact_transactions_inserted;not null;default:0"`
	FactStockHistoryInserted int `gorm:"column:rows_fact_stock_history_inserted;not null;default:0"`
}

// etl_run_log
type RunRecord struct {
	RunID      int64      `gorm:"primaryKey;column:run_id"`
	RunDate    Date       `gorm:"type:varchar(10);not null"`
	SourceDate Date       `gorm:"type:varchar(10);not null;index"`
	Status     string     `gorm:"size:20;not null;index"`
	StartedAt  time.Time  `gorm:"not null"`
	EndedAt    *time.Time // nil = run w toku albo przerwany
	DurationMS int64      `gorm:"column:duration_ms;not null;default:0"`
	Rows       RowCounts  `gorm:"embedded"`
	Errors     int        `gorm:"not null;default:0"`
	Warnings   int        `gorm:"not null;default:0"`
	Notes      string     `gorm:"type:text"`
}

func (RunRecord) TableName() string { return "etl_run_log" }

// EffectiveStatus - rekord bez ended_at pokazujemy jako running
func (r RunRecord) EffectiveStatus() string {
	if r.EndedAt == nil {
		return StatusRunning
	}
	return r.Status
}

// etl_error_log
type ErrorLogEntry struct {
	ErrorID   int64     `gorm:"primaryKey;column:error_id"`
	RunID     int64     `gorm:"not null;index"`
	Entity    string    `gorm:"size:20;not null"`
	Table     string    `gorm:"column:table_name;size:50;not null"`
	RecordID  string    `gorm:"size:100"`
	ErrorType string    `gorm:"size:50;not null;index"`
	Message   string    `gorm:"type:text"`
	Severity  string    `gorm:"size:10;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ErrorLogEntry) TableName() string { return "etl_error_log" }

// etl_run_metric, jeden wiersz na licznik z taksonomii
type RunMetric struct {
	RunID     int64  `gorm:"primaryKey;autoIncrement:false"`
	ErrorType string `gorm:"primaryKey;size:50"`
	Count     int    `gorm:"not null;default:0"`
}

func (RunMetric) TableName() string { return "etl_run_metric" }
