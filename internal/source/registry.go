// internal/source/registry.go
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// Reader zwraca snapshot OLTP: wszyscy userzy i produkty plus
// transakcje z danego dnia.
type Reader interface {
	Read(ctx context.Context, day db.Date) (*Snapshot, error)
	Close() error
}

type Factory func(c conf.DBConfig, log zerolog.Logger) (Reader, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

func Register(driver string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[driver] = f
}

func Get(driver string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := registry[driver]
	return f, ok
}

func Drivers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open buduje reader dla sterownika z configa.
func Open(c conf.DBConfig, log zerolog.Logger) (Reader, error) {
	f, ok := Get(c.Driver)
	if !ok {
		return nil, fmt.Errorf("source: %w: %q", conf.ErrUnknownDriver, c.Driver)
	}
	return f(c, log.With().Str("source", c.Driver).Logger())
}
