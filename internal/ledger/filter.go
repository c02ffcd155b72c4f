package ledger

import (
	"strings"

	"visitledger/internal/visit"
)

const (
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
)

// Filter answers a filtered view over the roster. Filters apply in order:
// exact case-insensitive executive name, containment of the visit type token
// in the raw history, then time of day ("morning"/"afternoon": at least one
// decoded entry classified that way). The returned total is computed over
// exactly the filtered rows; it is transient and never persisted.
func (l *Ledger) Filter(executive, visitType, timeOfDay string) ([]Row, visit.Aggregate) {
	executive = strings.ToUpper(strings.TrimSpace(executive))
	visitType = strings.ToUpper(strings.TrimSpace(visitType))

	rows := make([]Row, 0, len(l.Rows))
	total := visit.ZeroAggregate()
	for _, row := range l.Rows {
		if executive != "" && strings.ToUpper(strings.TrimSpace(row.Name)) != executive {
			continue
		}
		if visitType != "" && !strings.Contains(strings.ToUpper(row.History), visitType) {
			continue
		}
		if timeOfDay == TimeOfDayMorning || timeOfDay == TimeOfDayAfternoon {
			if !hasEntryAt(row.History, timeOfDay) {
				continue
			}
		}
		rows = append(rows, row)
		total = total.Add(row.Agg)
	}
	return rows, total
}

func hasEntryAt(history, timeOfDay string) bool {
	for _, entry := range visit.Decode(history) {
		if timeOfDay == TimeOfDayMorning && entry.Morning() {
			return true
		}
		if timeOfDay == TimeOfDayAfternoon && entry.Afternoon() {
			return true
		}
	}
	return false
}
