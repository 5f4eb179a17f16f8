// Package scd prowadzi wersjonowanie wymiarów typu SCD2: najwyżej jedna
// bieżąca wersja na klucz biznesowy, zamknięcie poprzedniej dzień przed
// datą efektywną nowej.
package scd

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

type Outcome uint8

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Binding opisuje jeden wymiar: S to rekord przychodzący, R wiersz wymiaru.
type Binding[S, R any] struct {
	Key     func(S) int64
	Anchor  func(incoming S, asOf db.Date) db.Date // start_date pierwszej wersji
	Changed func(current R, incoming S) bool
	Build   func(incoming S, start db.Date) R
}

// Store - dostęp do wersji bieżących.
type Store[R any] interface {
	Current(key int64) (*R, error)
	Close(row *R, end db.Date) error
	Insert(row *R) error
}

// Plan - decyzja dla jednego rekordu, bez efektów ubocznych.
type Plan[R any] struct {
	Outcome Outcome
	Close   *R      // wersja do zamknięcia (Updated)
	CloseAt db.Date // end_date zamykanej wersji
	Open    *R      // nowa wersja (Inserted/Updated)
}

type Synchronizer[S, R any] struct {
	b Binding[S, R]
}

func New[S, R any](b Binding[S, R]) *Synchronizer[S, R] {
	return &Synchronizer[S, R]{b: b}
}

func (s *Synchronizer[S, R]) Key(incoming S) int64 { return s.b.Key(incoming) }

// Decide: brak bieżącej => nowa wersja od kotwicy; zmiana atrybutów =>
// zamknięcie na asOf-1 i nowa wersja od asOf; inaczej nic.
func (s *Synchronizer[S, R]) Decide(current *R, incoming S, asOf db.Date) Plan[R] {
	if current == nil {
		row := s.b.Build(incoming, s.b.Anchor(incoming, asOf))
		return Plan[R]{Outcome: Inserted, Open: &row}
	}
	if !s.b.Changed(*current, incoming) {
		return Plan[R]{Outcome: Unchanged}
	}
	row := s.b.Build(incoming, asOf)
	return Plan[R]{
		Outcome: Updated,
		Close:   current,
		CloseAt: asOf.AddDays(-1),
		Open:    &row,
	}
}

func (s *Synchronizer[S, R]) Synchronize(store Store[R], incoming S, asOf db.Date) (Outcome, error) {
	key := s.b.Key(incoming)
	cur, err := store.Current(key)
	if err != nil {
		return Unchanged, fmt.Errorf("lookup current version of %d: %w", key, err)
	}

	p := s.Decide(cur, incoming, asOf)
	if p.Close != nil {
		if err := store.Close(p.Close, p.CloseAt); err != nil {
			return Unchanged, fmt.Errorf("close version of %d: %w", key, err)
		}
	}
	if p.Open != nil {
		if err := store.Insert(p.Open); err != nil {
			return Unchanged, fmt.Errorf("insert version of %d: %w", key, err)
		}
	}
	return p.Outcome, nil
}

// GormStore - Store na tabeli wymiaru z kolumnami current_flag i end_date.
type GormStore[R any] struct {
	tx        *gorm.DB
	keyColumn string
}

func NewGormStore[R any](tx *gorm.DB, keyColumn string) *GormStore[R] {
	return &GormStore[R]{tx: tx, keyColumn: keyColumn}
}

func (g *GormStore[R]) Current(key int64) (*R, error) {
	var rows []R
	err := g.tx.
		Where(g.keyColumn+" = ? AND current_flag = ?", key, true).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	}
	return nil, fmt.Errorf("%s %d has more than one current version", g.keyColumn, key)
}

func (g *GormStore[R]) Close(row *R, end db.Date) error {
	res := g.tx.Model(row).Updates(map[string]any{
		"end_date":     end,
		"current_flag": false,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("close version: %d rows affected", res.RowsAffected)
	}
	return nil
}

func (g *GormStore[R]) Insert(row *R) error {
	return g.tx.Create(row).Error
}
