// Package ledger holds the in-memory model of one calendar day's visit
// ledger: the ordered executive roster, per-row histories and the grand total.
package ledger

import (
	"errors"
	"strings"

	"visitledger/internal/visit"
)

var (
	ErrEmptyName         = errors.New("executive name is required")
	ErrDuplicateName     = errors.New("executive already exists")
	ErrExecutiveNotFound = errors.New("executive not found")
)

// Row is one executive line. Seq is always 1..N in roster order after any
// mutation completes.
type Row struct {
	Seq     int
	Name    string
	History string
	Agg     visit.Aggregate
}

type Ledger struct {
	Date  DateKey
	Rows  []Row
	Total visit.Aggregate
}

// New builds an empty ledger for the given day, optionally seeded with a
// roster. Names are stored trimmed and upper-cased.
func New(date DateKey, names []string) *Ledger {
	l := &Ledger{Date: date, Total: visit.ZeroAggregate()}
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" || l.find(name) >= 0 {
			continue
		}
		l.Rows = append(l.Rows, Row{Name: name, Agg: visit.ZeroAggregate()})
	}
	l.renumber()
	return l
}

// find returns the index of the executive with the given name, matching
// trimmed and case-insensitive, or -1.
func (l *Ledger) find(name string) int {
	target := strings.ToUpper(strings.TrimSpace(name))
	for i := range l.Rows {
		if strings.ToUpper(strings.TrimSpace(l.Rows[i].Name)) == target {
			return i
		}
	}
	return -1
}

func (l *Ledger) renumber() {
	for i := range l.Rows {
		l.Rows[i].Seq = i + 1
	}
}

func (l *Ledger) recomputeTotal() {
	total := visit.ZeroAggregate()
	for i := range l.Rows {
		total = total.Add(l.Rows[i].Agg)
	}
	l.Total = total
}

// LogVisit appends one visit token to an executive's history and refreshes
// the row's aggregates and the grand total.
func (l *Ledger) LogVisit(name, visitType, visitTime string) error {
	idx := l.find(name)
	if idx < 0 {
		return ErrExecutiveNotFound
	}
	history, err := visit.Append(l.Rows[idx].History, visitType, visitTime)
	if err != nil {
		return err
	}
	l.Rows[idx].History = history
	l.Rows[idx].Agg = visit.Recompute(history)
	l.recomputeTotal()
	return nil
}

// AddExecutive appends a new zeroed row at the end of the roster.
func (l *Ledger) AddExecutive(name string) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ErrEmptyName
	}
	if l.find(name) >= 0 {
		return ErrDuplicateName
	}
	l.Rows = append(l.Rows, Row{Name: name, Agg: visit.ZeroAggregate()})
	l.renumber()
	l.recomputeTotal()
	return nil
}

// RemoveExecutive drops a row, renumbers the roster and refreshes the grand
// total. The total is summed fresh over the remaining rows, which is
// equivalent to subtracting the departing row's contribution.
func (l *Ledger) RemoveExecutive(name string) error {
	idx := l.find(name)
	if idx < 0 {
		return ErrExecutiveNotFound
	}
	l.Rows = append(l.Rows[:idx], l.Rows[idx+1:]...)
	l.renumber()
	l.recomputeTotal()
	return nil
}

// Reset clears every history and aggregate while keeping the roster.
func (l *Ledger) Reset() {
	for i := range l.Rows {
		l.Rows[i].History = ""
		l.Rows[i].Agg = visit.ZeroAggregate()
	}
	l.recomputeTotal()
}

// Zero returns a copy for a new day: same names in the same order, all
// histories and aggregates cleared.
func (l *Ledger) Zero(date DateKey) *Ledger {
	names := make([]string, 0, len(l.Rows))
	for i := range l.Rows {
		names = append(names, l.Rows[i].Name)
	}
	return New(date, names)
}

func (l *Ledger) Names() []string {
	names := make([]string, 0, len(l.Rows))
	for i := range l.Rows {
		names = append(names, l.Rows[i].Name)
	}
	return names
}
