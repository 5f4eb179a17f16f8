// internal/config/config.go
package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite     = "sqlite"      // gorm.io/driver/sqlite (cgo)
	DriverSQLitePure = "sqlite-pure" // glebarez, bez cgo
	DriverMySQL      = "mysql"
	DriverPostgres   = "postgres"
	DriverXML        = "xml" // tylko źródło: katalog ze snapshotami XML
)

var ErrUnknownDriver = errors.New("unknown driver")

const DefaultBatchSize = 500

// DBConfig - połączenie do bazy (albo katalog XML dla źródła)
type DBConfig struct {
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
	Charset string `json:"charset,omitempty" yaml:"charset,omitempty"` // tylko xml, gdy plik nie deklaruje kodowania
}

type LogConfig struct {
	File    string `json:"file" yaml:"file"`
	Console bool   `json:"console" yaml:"console"`
	Level   string `json:"level" yaml:"level"` // debug/info/warn/error
}

type ScheduleConfig struct {
	At       string `json:"at" yaml:"at"`             // HH:MM
	Timezone string `json:"timezone" yaml:"timezone"` // np. Europe/Warsaw, puste = lokalna
	LagDays  int    `json:"lag_days" yaml:"lag_days"` // source_date = dziś - lag
}

type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"` // plik dla node_exporter textfile collector
}

// Główny config aplikacji
type Config struct {
	Source    DBConfig       `json:"source" yaml:"source"`
	Target    DBConfig       `json:"target" yaml:"target"`
	Log       LogConfig      `json:"log" yaml:"log"`
	Schedule  ScheduleConfig `json:"schedule" yaml:"schedule"`
	Metrics   MetricsConfig  `json:"metrics" yaml:"metrics"`
	BatchSize int            `json:"batch_size" yaml:"batch_size"`
}

// Default buduje config z bazami sqlite w katalogu aplikacji.
func Default(appDir string) *Config {
	return &Config{
		Source: DBConfig{
			Driver: DriverSQLitePure,
			DSN:    filepath.Join(appDir, "ecommerce-OLTP.db"),
		},
		Target: DBConfig{
			Driver: DriverSQLitePure,
			DSN:    filepath.Join(appDir, "ecommerce-OLAP.db"),
		},
		Log: LogConfig{
			File:    filepath.Join(appDir, "etl.log"),
			Console: true,
			Level:   "info",
		},
		Schedule: ScheduleConfig{
			At:      "02:00",
			LagDays: 1,
		},
		BatchSize: DefaultBatchSize,
	}
}

func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default(filepath.Dir(path))
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("save default config: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("open config: %w", err)
	}

	// braki uzupełniamy domyślnymi
	cfg := Default(filepath.Dir(path))
	if isYAML(path) {
		err = yaml.Unmarshal(raw, cfg)
	} else {
		err = json.Unmarshal(raw, cfg)
	}
	if err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// Validate zbiera wszystkie problemy naraz.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Driver {
	case DriverSQLite, DriverSQLitePure, DriverMySQL, DriverPostgres, DriverXML:
	default:
		errs = append(errs, fmt.Errorf("source: %w: %q", ErrUnknownDriver, c.Source.Driver))
	}
	switch c.Target.Driver {
	case DriverSQLite, DriverSQLitePure, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("target: %w: %q", ErrUnknownDriver, c.Target.Driver))
	}
	if strings.TrimSpace(c.Source.DSN) == "" {
		errs = append(errs, errors.New("source: dsn is required"))
	}
	if strings.TrimSpace(c.Target.DSN) == "" {
		errs = append(errs, errors.New("target: dsn is required"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize))
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		errs = append(errs, fmt.Errorf("schedule.at %q: expected HH:MM", c.Schedule.At))
	}
	if c.Schedule.LagDays < 0 {
		errs = append(errs, fmt.Errorf("schedule.lag_days must be >= 0, got %d", c.Schedule.LagDays))
	}
	if _, err := c.Schedule.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location - strefa harmonogramu, pusta = lokalna
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
