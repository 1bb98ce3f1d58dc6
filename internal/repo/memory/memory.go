package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo"
)

// Store keeps everything in process memory. It is used when no DATABASE_URL is
// configured and by tests.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	checks    map[int64]*domain.CheckDefinition
	addresses map[int64]*domain.NotificationAddress
	results   []*domain.CheckResult
	alerts    map[int64]repo.AlertRecord
}

func New() *Store {
	return &Store{
		checks:    make(map[int64]*domain.CheckDefinition),
		addresses: make(map[int64]*domain.NotificationAddress),
		results:   make([]*domain.CheckResult, 0, 128),
		alerts:    make(map[int64]repo.AlertRecord),
	}
}

func (m *Store) Close() {}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

// ---- CheckStore ----

func (m *Store) CreateCheck(ctx context.Context, c *domain.CheckDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.urlTaken(c.URL, 0) {
		return repo.ErrConflict
	}
	c.ID = m.id()
	stored := *c
	stored.EmailAddresses = nil
	m.checks[c.ID] = &stored
	for i := range c.EmailAddresses {
		a := c.EmailAddresses[i]
		a.ID = m.id()
		a.CheckID = c.ID
		m.addresses[a.ID] = &a
	}
	c.EmailAddresses = m.addressesOf(c.ID)
	return nil
}

func (m *Store) GetCheck(ctx context.Context, id int64) (*domain.CheckDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := *c
	out.EmailAddresses = m.addressesOf(id)
	return &out, nil
}

func (m *Store) UpdateCheck(ctx context.Context, c *domain.CheckDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.checks[c.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if m.urlTaken(c.URL, c.ID) {
		return repo.ErrConflict
	}
	cur.URL = c.URL
	cur.Frequency = c.Frequency
	cur.ExpectedStatus = c.ExpectedStatus
	cur.ExpectedString = c.ExpectedString
	c.EmailAddresses = m.addressesOf(c.ID)
	return nil
}

func (m *Store) DeleteCheck(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.checks, id)
	delete(m.alerts, id)
	for aid, a := range m.addresses {
		if a.CheckID == id {
			delete(m.addresses, aid)
		}
	}
	kept := m.results[:0]
	for _, r := range m.results {
		if r.CheckID != id {
			kept = append(kept, r)
		}
	}
	m.results = kept
	return nil
}

func (m *Store) ListChecks(ctx context.Context, q repo.ListQuery) ([]domain.CheckDefinition, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckDefinition
	for _, c := range m.checks {
		if !matchID(q.IDs, c.ID) || !q.MatchURL(c.URL) {
			continue
		}
		cp := *c
		cp.EmailAddresses = m.addressesOf(c.ID)
		out = append(out, cp)
	}
	field := q.SortField(repo.CheckSortFields...)
	sortBy(out, q.Desc(), func(a, b domain.CheckDefinition) int {
		switch field {
		case "url":
			return strings.Compare(a.URL, b.URL)
		case "frequency":
			return cmp.Compare(a.Frequency, b.Frequency)
		case "expectedStatus":
			return cmp.Compare(a.ExpectedStatus, b.ExpectedStatus)
		case "expectedString":
			return strings.Compare(a.ExpectedString, b.ExpectedString)
		}
		return 0
	}, func(c domain.CheckDefinition) int64 { return c.ID })
	return page(out, q)
}

func (m *Store) urlTaken(url string, except int64) bool {
	for _, c := range m.checks {
		if c.URL == url && c.ID != except {
			return true
		}
	}
	return false
}

func (m *Store) addressesOf(checkID int64) []domain.NotificationAddress {
	out := []domain.NotificationAddress{}
	for _, a := range m.addresses {
		if a.CheckID == checkID {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b domain.NotificationAddress) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ---- AddressStore ----

func (m *Store) CreateAddress(ctx context.Context, a *domain.NotificationAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[a.CheckID]; !ok {
		return repo.ErrInvalidReference
	}
	a.ID = m.id()
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

func (m *Store) GetAddress(ctx context.Context, id int64) (*domain.NotificationAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *Store) UpdateAddress(ctx context.Context, a *domain.NotificationAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.addresses[a.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if _, ok := m.checks[a.CheckID]; !ok {
		return repo.ErrInvalidReference
	}
	cur.CheckID = a.CheckID
	cur.EmailAddress = a.EmailAddress
	return nil
}

func (m *Store) DeleteAddress(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.addresses[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.addresses, id)
	return nil
}

func (m *Store) ListAddresses(ctx context.Context, q repo.ListQuery) ([]domain.NotificationAddress, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.NotificationAddress
	for _, a := range m.addresses {
		if matchID(q.IDs, a.ID) && matchID(q.CheckIDs, a.CheckID) {
			out = append(out, *a)
		}
	}
	field := q.SortField(repo.AddressSortFields...)
	sortBy(out, q.Desc(), func(a, b domain.NotificationAddress) int {
		switch field {
		case "checkId":
			return cmp.Compare(a.CheckID, b.CheckID)
		case "emailAddress":
			return strings.Compare(a.EmailAddress, b.EmailAddress)
		}
		return 0
	}, func(a domain.NotificationAddress) int64 { return a.ID })
	return page(out, q)
}

// ---- ResultStore ----

func (m *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[r.CheckID]; !ok {
		return repo.ErrInvalidReference
	}
	if r.TimeChecked.IsZero() {
		r.TimeChecked = time.Now().UTC()
	}
	r.ID = m.id()
	cp := *r
	cp.CheckDefinition = nil
	m.results = append(m.results, &cp)
	return nil
}

func (m *Store) GetResult(ctx context.Context, id int64) (*domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.results {
		if r.ID == id {
			out := m.withCheck(r)
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) withCheck(r *domain.CheckResult) domain.CheckResult {
	out := *r
	if c, ok := m.checks[r.CheckID]; ok {
		cp := *c
		out.CheckDefinition = &cp
	}
	return out
}

func (m *Store) ListResults(ctx context.Context, q repo.ListQuery) ([]domain.CheckResult, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckResult
	for _, r := range m.results {
		if !matchID(q.IDs, r.ID) || !matchID(q.CheckIDs, r.CheckID) {
			continue
		}
		row := m.withCheck(r)
		if q.URLContains != "" && (row.CheckDefinition == nil || !q.MatchURL(row.CheckDefinition.URL)) {
			continue
		}
		out = append(out, row)
	}
	field := q.SortField(repo.ResultSortFields...)
	sortBy(out, q.Desc(), func(a, b domain.CheckResult) int {
		switch field {
		case "checkId":
			return cmp.Compare(a.CheckID, b.CheckID)
		case "timeChecked":
			return a.TimeChecked.Compare(b.TimeChecked)
		case "statusCode":
			return cmp.Compare(a.StatusCode, b.StatusCode)
		case "state":
			return strings.Compare(a.State, b.State)
		case "checkDefinition.url":
			return strings.Compare(urlOf(a), urlOf(b))
		}
		return 0
	}, func(r domain.CheckResult) int64 { return r.ID })
	return page(out, q)
}

func urlOf(r domain.CheckResult) string {
	if r.CheckDefinition == nil {
		return ""
	}
	return r.CheckDefinition.URL
}

func (m *Store) newest(checkID int64) *domain.CheckResult {
	var cur *domain.CheckResult
	for _, r := range m.results {
		if r.CheckID != checkID {
			continue
		}
		if cur == nil || !r.TimeChecked.Before(cur.TimeChecked) {
			cur = r
		}
	}
	return cur
}

func (m *Store) GetLatest(ctx context.Context, checkID int64) (*domain.LatestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[checkID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	lr := domain.LatestOf(*c, m.newest(checkID))
	return &lr, nil
}

func (m *Store) ListLatest(ctx context.Context, q repo.ListQuery) ([]domain.LatestResult, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.LatestResult
	for _, c := range m.checks {
		if matchID(q.IDs, c.ID) && q.MatchURL(c.URL) {
			out = append(out, domain.LatestOf(*c, m.newest(c.ID)))
		}
	}
	field := q.SortField(repo.LatestSortFields...)
	sortBy(out, q.Desc(), func(a, b domain.LatestResult) int {
		switch field {
		case "url":
			return strings.Compare(a.URL, b.URL)
		case "frequency":
			return cmp.Compare(a.Frequency, b.Frequency)
		case "expectedStatus":
			return cmp.Compare(a.ExpectedStatus, b.ExpectedStatus)
		case "expectedString":
			return strings.Compare(a.ExpectedString, b.ExpectedString)
		case "lastChecked":
			return compareTime(a.LastChecked, b.LastChecked)
		case "lastState":
			return strings.Compare(a.LastState, b.LastState)
		}
		return 0
	}, func(l domain.LatestResult) int64 { return l.ID })
	return page(out, q)
}

// ---- AlertStore ----

func (m *Store) GetAlert(ctx context.Context, checkID int64) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.alerts[checkID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Store) SetAlert(ctx context.Context, rec repo.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[rec.CheckID]; !ok {
		return repo.ErrInvalidReference
	}
	m.alerts[rec.CheckID] = rec
	return nil
}

// ---- helpers ----

func matchID(ids []int64, id int64) bool {
	return len(ids) == 0 || slices.Contains(ids, id)
}

// sortBy orders by the given comparison and falls back to ascending id.
func sortBy[T any](items []T, desc bool, compare func(a, b T) int, id func(T) int64) {
	slices.SortStableFunc(items, func(a, b T) int {
		c := compare(a, b)
		if c == 0 {
			c = cmp.Compare(id(a), id(b))
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func page[T any](items []T, q repo.ListQuery) ([]T, int, error) {
	from, to := q.Window(len(items))
	out := make([]T, 0, to-from)
	out = append(out, items[from:to]...)
	return out, len(items), nil
}

var _ repo.Store = (*Store)(nil)
