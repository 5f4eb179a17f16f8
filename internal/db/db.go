// internal/db/db.go
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	puresqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	Path   string // tylko dla sqlite, dla serwerów puste
}

// Dialector dobiera sterownik gorm po nazwie z configa.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case conf.DriverSQLite:
		return sqlite.Open(dsn), nil
	case conf.DriverSQLitePure:
		return puresqlite.Open(dsn), nil
	case conf.DriverMySQL:
		return mysql.Open(dsn), nil
	case conf.DriverPostgres:
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("%w: %q", conf.ErrUnknownDriver, driver)
}

// Open otwiera bazę wg configa. TranslateError jest włączone, żeby
// naruszenia unikalności wracały jako gorm.ErrDuplicatedKey.
func Open(c conf.DBConfig, log zerolog.Logger) (*Handle, error) {
	dial, err := Dialector(c.Driver, c.DSN)
	if err != nil {
		return nil, err
	}

	h := &Handle{Driver: c.Driver}
	if isSQLite(c.Driver) {
		h.Path = sqlitePath(c.DSN)
		if h.Path != "" && h.Path != ":memory:" {
			_ = os.MkdirAll(filepath.Dir(h.Path), 0o755)
		}
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	h.DB = gdb
	return h, nil
}

// OpenAt to skrót dla lokalnej bazy sqlite w katalogu aplikacji.
func OpenAt(dir, name string, log zerolog.Logger) (*Handle, error) {
	return Open(conf.DBConfig{
		Driver: conf.DriverSQLitePure,
		DSN:    filepath.Join(dir, name),
	}, log)
}

func (h *Handle) Close() error {
	if h == nil || h.DB == nil {
		return nil
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isSQLite(driver string) bool {
	return driver == conf.DriverSQLite || driver == conf.DriverSQLitePure
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// IsDuplicateKey rozpoznaje naruszenie klucza unikalnego. Poza
// gorm.ErrDuplicatedKey sprawdzamy też treść błędu sterownika,
// bo nie każdy dialekt tłumaczy wszystkie warianty.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"UNIQUE constraint failed",
		"duplicate key value",
		"Duplicate entry",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
