package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"visitledger/internal/config"
	"visitledger/internal/export"
	"visitledger/internal/ledger"
	"visitledger/internal/lock"
	"visitledger/internal/sheet"
	"visitledger/internal/store"
)

// Service is the visit ledger engine. Every mutating operation runs as one
// atomic unit per date key: acquire the key's lock, download the primary
// blob, decode, mutate, re-encode, upload primary and view snapshot. The blob
// is never cached across requests.
type Service struct {
	store store.Store
	locks lock.Locker
	clock func() time.Time

	historyLimit   int
	seedRoster     []string
	templateObject string
}

func New(cfg config.Config, st store.Store, locker lock.Locker) *Service {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 7
	}
	return &Service{
		store:          st,
		locks:          locker,
		clock:          time.Now,
		historyLimit:   limit,
		seedRoster:     cfg.SeedExecutives,
		templateObject: cfg.TemplateObject,
	}
}

// todayKey is recomputed from the wall clock on every operation so a
// long-running process rolls over cleanly at the day boundary.
func (s *Service) todayKey() ledger.DateKey {
	return ledger.KeyOf(s.clock())
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap makes sure today's ledger exists at startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.EnsureToday(ctx)
}

// EnsureToday creates today's primary ledger and view snapshot if the store
// does not hold them yet.
func (s *Service) EnsureToday(ctx context.Context) error {
	key := s.todayKey()
	release, err := s.locks.Acquire(ctx, string(key))
	if err != nil {
		return err
	}
	defer release()
	_, err = s.ensureLocked(ctx, key)
	return err
}

// ensureLocked must run with the key's lock held. It returns today's primary
// blob, creating it first when the store does not hold it yet. Creation also
// sweeps view snapshots left behind by earlier days.
func (s *Service) ensureLocked(ctx context.Context, key ledger.DateKey) ([]byte, error) {
	data, err := s.store.Download(ctx, key.PrimaryObject())
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure(err)
	}

	data, err = s.freshBlob(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.persistBlob(ctx, key, data); err != nil {
		return nil, err
	}
	s.pruneViewSnapshots(ctx, key)
	return data, nil
}

// freshBlob builds a new day's ledger: a structural clone of the configured
// base template when one exists, otherwise an empty ledger with the seed
// roster.
func (s *Service) freshBlob(ctx context.Context, key ledger.DateKey) ([]byte, error) {
	if s.templateObject != "" {
		tmpl, err := s.store.Download(ctx, s.templateObject)
		if err == nil {
			return sheet.CloneZeroed(tmpl)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, storeFailure(err)
		}
		log.Printf("template object %s not found, starting empty", s.templateObject)
	}
	return sheet.Encode(ledger.New(key, s.seedRoster))
}

const persistTimeout = 30 * time.Second

// persistBlob commits the primary blob and its view snapshot as a pair. The
// uploads run detached from the caller's context: once a mutation is applied,
// a client disconnect must not leave the primary updated with a stale view.
func (s *Service) persistBlob(ctx context.Context, key ledger.DateKey, data []byte) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Upload(ctx, key.PrimaryObject(), data); err != nil {
		return storeFailure(err)
	}
	if err := s.store.Upload(ctx, key.ViewObject(), data); err != nil {
		return storeFailure(err)
	}
	return nil
}

// withToday runs one mutation against today's ledger under the date key's
// lock. Nothing is persisted when fn fails.
func (s *Service) withToday(ctx context.Context, fn func(*ledger.Ledger) error) error {
	key := s.todayKey()
	release, err := s.locks.Acquire(ctx, string(key))
	if err != nil {
		return err
	}
	defer release()

	data, err := s.ensureLocked(ctx, key)
	if err != nil {
		return err
	}
	led, err := sheet.Decode(data, key)
	if err != nil {
		return err
	}
	if err := fn(led); err != nil {
		return err
	}
	encoded, err := sheet.Encode(led)
	if err != nil {
		return err
	}
	return s.persistBlob(ctx, key, encoded)
}

// loadToday reads today's ledger without holding the lock; the store's
// object-level upload atomicity guarantees a self-consistent snapshot.
func (s *Service) loadToday(ctx context.Context) (*ledger.Ledger, error) {
	key := s.todayKey()
	data, err := s.store.Download(ctx, key.PrimaryObject())
	if errors.Is(err, store.ErrNotFound) {
		if err := s.EnsureToday(ctx); err != nil {
			return nil, err
		}
		data, err = s.store.Download(ctx, key.PrimaryObject())
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return sheet.Decode(data, key)
}

// LogVisit appends one visit for an executive on today's ledger.
func (s *Service) LogVisit(ctx context.Context, name, visitType, visitTime string) error {
	return s.withToday(ctx, func(led *ledger.Ledger) error {
		return led.LogVisit(name, visitType, visitTime)
	})
}

// Reset clears every history and aggregate on today's ledger.
func (s *Service) Reset(ctx context.Context) error {
	return s.withToday(ctx, func(led *ledger.Ledger) error {
		led.Reset()
		return nil
	})
}

func (s *Service) AddExecutive(ctx context.Context, name string) error {
	return s.withToday(ctx, func(led *ledger.Ledger) error {
		return led.AddExecutive(name)
	})
}

func (s *Service) RemoveExecutive(ctx context.Context, name string) error {
	return s.withToday(ctx, func(led *ledger.Ledger) error {
		return led.RemoveExecutive(name)
	})
}

// Executives lists the roster names in order, total row excluded.
func (s *Service) Executives(ctx context.Context) ([]string, error) {
	led, err := s.loadToday(ctx)
	if err != nil {
		return nil, err
	}
	return led.Names(), nil
}

// Report answers the filtered report table: header row, filtered executive
// rows, then a total row computed over exactly the filtered rows.
func (s *Service) Report(ctx context.Context, executive, visitType, timeOfDay string) ([][]any, error) {
	led, err := s.loadToday(ctx)
	if err != nil {
		return nil, err
	}
	rows, total := led.Filter(executive, visitType, timeOfDay)
	table := make([][]any, 0, len(rows)+2)
	table = append(table, sheet.HeaderRow())
	for _, row := range rows {
		table = append(table, sheet.TableRow(row))
	}
	table = append(table, sheet.TotalTableRow(total))
	return table, nil
}

// Rollover creates today's ledger by cloning the most recent prior primary
// ledger with histories and aggregates zeroed, then prunes stale view
// snapshots. Conflict if today already exists.
func (s *Service) Rollover(ctx context.Context) (ledger.DateKey, error) {
	key := s.todayKey()
	release, err := s.locks.Acquire(ctx, string(key))
	if err != nil {
		return "", err
	}
	defer release()

	_, err = s.store.Download(ctx, key.PrimaryObject())
	if err == nil {
		return "", ErrTodayExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", storeFailure(err)
	}

	latest, err := s.latestPrimaryBefore(ctx, key)
	if err != nil {
		return "", err
	}
	data, err := s.store.Download(ctx, latest.PrimaryObject())
	if err != nil {
		return "", storeFailure(err)
	}
	cloned, err := sheet.CloneZeroed(data)
	if err != nil {
		return "", err
	}
	if err := s.persistBlob(ctx, key, cloned); err != nil {
		return "", err
	}
	s.pruneViewSnapshots(ctx, key)
	return key, nil
}

func (s *Service) latestPrimaryBefore(ctx context.Context, key ledger.DateKey) (ledger.DateKey, error) {
	names, err := s.store.List(ctx, ledger.PrimaryObjectPrefix())
	if err != nil {
		return "", storeFailure(err)
	}
	var latest ledger.DateKey
	for _, name := range names {
		k, ok := ledger.PrimaryDateKey(name)
		if !ok || k >= key {
			continue
		}
		if k > latest {
			latest = k
		}
	}
	if latest == "" {
		return "", ErrNoPriorLedger
	}
	return latest, nil
}

// pruneViewSnapshots deletes every view snapshot for a date other than
// keepKey. Best effort: failures are logged, never surfaced.
func (s *Service) pruneViewSnapshots(ctx context.Context, keepKey ledger.DateKey) {
	names, err := s.store.List(ctx, ledger.PrimaryObjectPrefix())
	if err != nil {
		log.Printf("prune view snapshots: list failed: %v", err)
		return
	}
	for _, name := range names {
		k, ok := ledger.ViewDateKey(name)
		if !ok || k == keepKey {
			continue
		}
		if err := s.store.Delete(ctx, name); err != nil {
			log.Printf("prune view snapshot %s: %v", name, err)
			continue
		}
		log.Printf("deleted old view-only ledger %s", name)
	}
}

// History lists the primary ledger date keys, most recent first, bounded to
// the configured window.
func (s *Service) History(ctx context.Context) ([]ledger.DateKey, error) {
	names, err := s.store.List(ctx, ledger.PrimaryObjectPrefix())
	if err != nil {
		return nil, storeFailure(err)
	}
	keys := make([]ledger.DateKey, 0, len(names))
	for _, name := range names {
		if k, ok := ledger.PrimaryDateKey(name); ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	if len(keys) > s.historyLimit {
		keys = keys[:s.historyLimit]
	}
	return keys, nil
}

// LedgerBlob fetches a ledger blob by its object name, for inline viewing or
// download. The name must be a well-formed primary or view object name.
func (s *Service) LedgerBlob(ctx context.Context, object string) ([]byte, error) {
	if !ledger.IsLedgerObject(object) {
		return nil, domainError(404, "NOT_FOUND", "File not found", nil)
	}
	data, err := s.store.Download(ctx, object)
	if err != nil {
		return nil, storeFailure(err)
	}
	return data, nil
}

// ViewBlob serves today's read-only view snapshot.
func (s *Service) ViewBlob(ctx context.Context) ([]byte, string, error) {
	key := s.todayKey()
	if err := s.EnsureToday(ctx); err != nil {
		return nil, "", err
	}
	data, err := s.store.Download(ctx, key.ViewObject())
	if err != nil {
		return nil, "", storeFailure(err)
	}
	return data, key.ViewObject(), nil
}

// PrimaryBlob serves today's primary ledger for download.
func (s *Service) PrimaryBlob(ctx context.Context) ([]byte, error) {
	if err := s.EnsureToday(ctx); err != nil {
		return nil, err
	}
	data, err := s.store.Download(ctx, s.todayKey().PrimaryObject())
	if err != nil {
		return nil, storeFailure(err)
	}
	return data, nil
}

// RenderReportFile renders a historical ledger blob as an HTML table,
// excluding the total row.
func (s *Service) RenderReportFile(ctx context.Context, object string) ([]byte, error) {
	data, err := s.LedgerBlob(ctx, object)
	if err != nil {
		return nil, err
	}
	rows, err := sheet.Rows(data)
	if err != nil {
		return nil, err
	}
	header := padRow(rows[0], len(sheet.Header))
	body := make([][]string, 0, len(rows))
	for _, row := range rows[1:] {
		name := strings.ToLower(strings.TrimSpace(cellAt(row, 1)))
		label := strings.ToLower(strings.TrimSpace(cellAt(row, 0)))
		if label == "total" || strings.Contains(name, "total") {
			continue
		}
		body = append(body, padRow(row, len(header)))
	}
	return export.RenderReport(object, header, body)
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func storeFailure(err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
