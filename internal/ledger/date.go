package ledger

import (
	"regexp"
	"strings"
	"time"
)

// DateKey identifies one calendar day, formatted YYYY-MM-DD. The fixed width
// makes lexicographic order match chronological order.
type DateKey string

const dateLayout = "2006-01-02"

// KeyOf derives the date key from an instant using the UTC day boundary.
func KeyOf(t time.Time) DateKey {
	return DateKey(t.UTC().Format(dateLayout))
}

func (k DateKey) Valid() bool {
	_, err := time.Parse(dateLayout, string(k))
	return err == nil
}

const (
	primaryPrefix = "VisitLog_"
	viewPrefix    = "VisitLog_ViewOnly_"
	objectSuffix  = ".xlsx"
)

var (
	primaryPattern = regexp.MustCompile(`^VisitLog_(\d{4}-\d{2}-\d{2})\.xlsx$`)
	viewPattern    = regexp.MustCompile(`^VisitLog_ViewOnly_(\d{4}-\d{2}-\d{2})\.xlsx$`)
)

// PrimaryObject names the read-write ledger blob for this day.
func (k DateKey) PrimaryObject() string {
	return primaryPrefix + string(k) + objectSuffix
}

// ViewObject names the read-only view snapshot for this day.
func (k DateKey) ViewObject() string {
	return viewPrefix + string(k) + objectSuffix
}

// PrimaryDateKey extracts the date key from a primary object name. View
// snapshots do not match.
func PrimaryDateKey(object string) (DateKey, bool) {
	m := primaryPattern.FindStringSubmatch(object)
	if m == nil {
		return "", false
	}
	return DateKey(m[1]), true
}

// ViewDateKey extracts the date key from a view snapshot object name.
func ViewDateKey(object string) (DateKey, bool) {
	m := viewPattern.FindStringSubmatch(object)
	if m == nil {
		return "", false
	}
	return DateKey(m[1]), true
}

// PrimaryObjectPrefix is the listing prefix shared by every ledger blob,
// primary and view.
func PrimaryObjectPrefix() string {
	return primaryPrefix
}

// IsLedgerObject reports whether a name is a well-formed primary or view
// object name, with no path separators. Used to validate caller-supplied
// filenames before hitting the store.
func IsLedgerObject(object string) bool {
	if strings.ContainsAny(object, "/\\") {
		return false
	}
	return primaryPattern.MatchString(object) || viewPattern.MatchString(object)
}
