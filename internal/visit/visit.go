// Package visit encodes and decodes the per-day visit history carried in a
// single roster cell, and derives the aggregate counters from it.
package visit

import (
	"errors"
	"strconv"
	"strings"
)

const (
	entrySeparator = "/"
	tokenSeparator = "-"
)

// KnownTypes is the fixed set of visit tool types tracked by the report
// columns, in column order.
var KnownTypes = []string{"CD3", "CD5", "CD7", "YB", "MIS"}

var ErrDuplicateEntry = errors.New("duplicate visit entry")

// Entry is one decoded token of a visit history. Raw keeps the token exactly
// as stored so a history re-encodes byte for byte. Parsed is false when the
// time portion is not numeric; such tokens are carried verbatim but never
// contribute to any derived count.
type Entry struct {
	Type   string
	Time   float64
	Raw    string
	Parsed bool
}

func (e Entry) Morning() bool {
	return e.Parsed && e.Time < 12
}

func (e Entry) Afternoon() bool {
	return e.Parsed && e.Time >= 12
}

// Token builds the canonical stored form of a visit: the upper-cased type and
// the time literal exactly as given by the caller.
func Token(visitType, visitTime string) string {
	return strings.ToUpper(strings.TrimSpace(visitType)) + tokenSeparator + strings.TrimSpace(visitTime)
}

// Decode splits a raw history cell into entries in append order.
func Decode(raw string) []Entry {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	tokens := strings.Split(raw, entrySeparator)
	entries := make([]Entry, 0, len(tokens))
	for _, token := range tokens {
		entries = append(entries, decodeToken(token))
	}
	return entries
}

func decodeToken(token string) Entry {
	entry := Entry{Raw: token}
	idx := strings.LastIndex(token, tokenSeparator)
	if idx < 0 {
		return entry
	}
	entry.Type = strings.ToUpper(strings.TrimSpace(token[:idx]))
	parsed, err := strconv.ParseFloat(strings.TrimSpace(token[idx+1:]), 64)
	if err != nil {
		return entry
	}
	entry.Time = parsed
	entry.Parsed = true
	return entry
}

// Encode re-joins entries in their original order. Inverse of Decode for any
// history, well formed or not.
func Encode(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	tokens := make([]string, len(entries))
	for i, entry := range entries {
		tokens[i] = entry.Raw
	}
	return strings.Join(tokens, entrySeparator)
}

// Append adds a new visit token to a history. Duplicate detection is by exact
// token match against the stored tokens, so "9.5" and "09.50" are distinct.
func Append(raw, visitType, visitTime string) (string, error) {
	token := Token(visitType, visitTime)
	for _, entry := range Decode(raw) {
		if entry.Raw == token {
			return "", ErrDuplicateEntry
		}
	}
	if strings.TrimSpace(raw) == "" {
		return token, nil
	}
	return raw + entrySeparator + token, nil
}
