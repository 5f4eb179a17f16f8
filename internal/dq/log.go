package dq

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Anomaly - pojedynczy wpis do etl_error_log.
type Anomaly struct {
	Kind     Kind
	Entity   Entity
	Table    Table
	RecordID string
	Message  string
	Severity Severity
	At       time.Time
}

// Log zbiera anomalie jednego runu (albo jednego etapu, patrz Fork/Merge).
// Nie jest bezpieczny współbieżnie, run jest jednowątkowy.
type Log struct {
	log     zerolog.Logger
	now     func() time.Time
	entries []Anomaly
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log, now: time.Now}
}

// WithClock podmienia zegar dla znaczników czasu wpisów.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Fork daje pusty log z tym samym loggerem i zegarem.
func (l *Log) Fork() *Log {
	return &Log{log: l.log, now: l.now}
}

// Merge dokleja wpisy z o (zwykle z Fork po zakończeniu etapu).
func (l *Log) Merge(o *Log) {
	if o == nil {
		return
	}
	l.entries = append(l.entries, o.entries...)
}

func (l *Log) Error(kind Kind, entity Entity, table Table, recordID any, format string, args ...any) {
	l.add(SeverityError, kind, entity, table, recordID, format, args...)
}

func (l *Log) Warn(kind Kind, entity Entity, table Table, recordID any, format string, args ...any) {
	l.add(SeverityWarning, kind, entity, table, recordID, format, args...)
}

func (l *Log) add(sev Severity, kind Kind, entity Entity, table Table, recordID any, format string, args ...any) {
	a := Anomaly{
		Kind:     kind,
		Entity:   entity,
		Table:    table,
		RecordID: fmt.Sprint(recordID),
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
		At:       l.now(),
	}
	l.entries = append(l.entries, a)

	l.log.Warn().
		Str("error_type", kind.String()).
		Str("severity", string(sev)).
		Str("entity", string(entity)).
		Str("record_id", a.RecordID).
		Msg(a.Message)
}

func (l *Log) Len() int { return len(l.entries) }

// Entries zwraca wpisy w kolejności zgłoszenia. Nie modyfikować.
func (l *Log) Entries() []Anomaly { return l.entries }

// Since - wpisy od pozycji i (do zapisu przyrostowego).
func (l *Log) Since(i int) []Anomaly {
	if i >= len(l.entries) {
		return nil
	}
	return l.entries[i:]
}

func (l *Log) Summary() Summary {
	s := Summary{ByKind: make(map[Kind]int, len(kindNames))}
	for _, a := range l.entries {
		s.ByKind[a.Kind]++
		switch a.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

// Summary - liczniki runu per rodzaj i per severity.
type Summary struct {
	Errors   int
	Warnings int
	ByKind   map[Kind]int
}

func (s Summary) Count(k Kind) int { return s.ByKind[k] }

// Counts - pełna mapa nazw liczników, łącznie z zerami.
func (s Summary) Counts() map[string]int {
	out := make(map[string]int, len(kindNames))
	for _, k := range Kinds() {
		out[k.String()] = s.ByKind[k]
	}
	return out
}
