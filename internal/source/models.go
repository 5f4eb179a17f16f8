// internal/source/models.go
package source

// Tabele OLTP. Pola tekstowe są nullable i surowe, walidacja jest dalej.

// users
type User struct {
	UserID   int64   `gorm:"primaryKey;autoIncrement:false;column:user_id"`
	Name     *string `gorm:"size:255"`
	Email    *string `gorm:"size:255"`
	JoinDate *string `gorm:"size:32"`
}

func (User) TableName() string { return "users" }

// products
type Product struct {
	ProductID int64   `gorm:"primaryKey;autoIncrement:false;column:product_id"`
	Name      string  `gorm:"size:255;not null"`
	Category  string  `gorm:"size:100;not null"`
	Price     float64 `gorm:"not null"`
	Stock     int     `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// transactions; kolumna price to wartość całej linii (ilość * cena)
type Transaction struct {
	TransactionID int64   `gorm:"primaryKey;column:transaction_id"`
	Date          string  `gorm:"size:32;not null;index"`
	UserID        int64   `gorm:"not null"`
	ProductID     int64   `gorm:"not null"`
	Quantity      int     `gorm:"not null"`
	Total         float64 `gorm:"column:price;not null"`
	PaymentType   *string `gorm:"size:50"`
	Status        *string `gorm:"size:20"`
}

func (Transaction) TableName() string { return "transactions" }

// Snapshot - stan źródła dla jednego dnia.
type Snapshot struct {
	Users        []User
	Products     []Product
	Transactions []Transaction
}
