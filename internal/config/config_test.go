package conf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOrCreateWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl", "config.json")

	cfg, first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if !first {
		t.Fatal("first = false, want true for a missing file")
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, DefaultBatchSize)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	again, first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}
	if first {
		t.Error("first = true on second load")
	}
	if again.Target.DSN != cfg.Target.DSN {
		t.Errorf("Target.DSN = %q, want %q", again.Target.DSN, cfg.Target.DSN)
	}
}

func TestLoadYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
source:
  driver: xml
  dsn: /srv/oltp/export
  charset: windows-1250
target:
  driver: postgres
  dsn: host=localhost user=etl dbname=olap
schedule:
  at: "03:30"
  timezone: Europe/Warsaw
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if first {
		t.Error("first = true for an existing file")
	}
	if cfg.Source.Driver != DriverXML || cfg.Source.Charset != "windows-1250" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if cfg.Target.Driver != DriverPostgres {
		t.Errorf("Target.Driver = %q, want %q", cfg.Target.Driver, DriverPostgres)
	}
	if cfg.Schedule.At != "03:30" || cfg.Schedule.LagDays != 1 {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want default", cfg.BatchSize)
	}
	if cfg.Log.File != filepath.Join(dir, "etl.log") {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default(filepath.Dir(path))
	cfg.Metrics.Textfile = "/var/lib/node_exporter/etl.prom"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if got.Metrics.Textfile != cfg.Metrics.Textfile {
		t.Errorf("Metrics.Textfile = %q, want %q", got.Metrics.Textfile, cfg.Metrics.Textfile)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default ok", func(*Config) {}, ""},
		{"xml target", func(c *Config) { c.Target.Driver = DriverXML }, "target: unknown driver"},
		{"unknown source", func(c *Config) { c.Source.Driver = "oracle" }, "source: unknown driver"},
		{"empty dsn", func(c *Config) { c.Target.DSN = " " }, "target: dsn is required"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"bad time", func(c *Config) { c.Schedule.At = "2am" }, "schedule.at"},
		{"negative lag", func(c *Config) { c.Schedule.LagDays = -1 }, "lag_days"},
		{"bad zone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateUnknownDriverIsSentinel(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Target.Driver = "sqlserver"
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Validate() = %v, want ErrUnknownDriver", err)
	}
}
