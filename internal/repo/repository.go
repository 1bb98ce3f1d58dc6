package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/hamed0406/urlchecker/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInvalidReference = errors.New("referenced check definition does not exist")
)

// ListQuery carries the filter, sort and range of a list request.
// End is exclusive; zero means no upper bound.
type ListQuery struct {
	IDs         []int64
	CheckIDs    []int64
	URLContains string
	Sort        string
	Order       string
	Start       int
	End         int
}

func (q ListQuery) Desc() bool { return strings.EqualFold(q.Order, "DESC") }

// SortField returns q.Sort when it is one of allowed, otherwise "id".
func (q ListQuery) SortField(allowed ...string) string {
	for _, f := range allowed {
		if f == q.Sort {
			return f
		}
	}
	return "id"
}

// Window clamps the requested range to a collection of n items.
func (q ListQuery) Window(n int) (from, to int) {
	from, to = q.Start, q.End
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > n {
		to = n
	}
	if from > to {
		from = to
	}
	return from, to
}

// Limit returns the page size for SQL adapters, or -1 when unbounded.
func (q ListQuery) Limit() int {
	if q.End <= 0 {
		return -1
	}
	if q.End <= q.Start {
		return 0
	}
	return q.End - q.Start
}

// MatchURL reports whether url passes the urlcontains filter.
func (q ListQuery) MatchURL(url string) bool {
	if q.URLContains == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(q.URLContains))
}

var (
	CheckSortFields   = []string{"id", "url", "frequency", "expectedStatus", "expectedString"}
	AddressSortFields = []string{"id", "checkId", "emailAddress"}
	ResultSortFields  = []string{"id", "checkId", "timeChecked", "statusCode", "state", "checkDefinition.url"}
	LatestSortFields  = []string{"id", "url", "frequency", "expectedStatus", "expectedString", "lastChecked", "lastState"}
)

// Ports (interfaces): swap in any DB adapter later.
type CheckStore interface {
	CreateCheck(ctx context.Context, c *domain.CheckDefinition) error
	GetCheck(ctx context.Context, id int64) (*domain.CheckDefinition, error)
	UpdateCheck(ctx context.Context, c *domain.CheckDefinition) error
	// DeleteCheck removes the check together with its addresses, results and alert state.
	DeleteCheck(ctx context.Context, id int64) error
	ListChecks(ctx context.Context, q ListQuery) ([]domain.CheckDefinition, int, error)
}

type AddressStore interface {
	CreateAddress(ctx context.Context, a *domain.NotificationAddress) error
	GetAddress(ctx context.Context, id int64) (*domain.NotificationAddress, error)
	UpdateAddress(ctx context.Context, a *domain.NotificationAddress) error
	DeleteAddress(ctx context.Context, id int64) error
	ListAddresses(ctx context.Context, q ListQuery) ([]domain.NotificationAddress, int, error)
}

type ResultStore interface {
	AppendResult(ctx context.Context, r *domain.CheckResult) error
	GetResult(ctx context.Context, id int64) (*domain.CheckResult, error)
	ListResults(ctx context.Context, q ListQuery) ([]domain.CheckResult, int, error)
	GetLatest(ctx context.Context, checkID int64) (*domain.LatestResult, error)
	ListLatest(ctx context.Context, q ListQuery) ([]domain.LatestResult, int, error)
}

// Store is everything the API and the scheduler need from persistence.
type Store interface {
	CheckStore
	AddressStore
	ResultStore
	AlertStore
	Close()
}
