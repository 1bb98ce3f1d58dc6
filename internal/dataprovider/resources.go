package dataprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hamed0406/urlchecker/internal/domain"
)

const (
	CheckDefinitions      = "checkdefinitions"
	NotificationAddresses = "notificationaddresses"
	CheckResults          = "checkresults"
	LatestResults         = "latestresults"
)

// Endpoint is the typed set of operations on one resource.
type Endpoint[T any] struct {
	c    *Client
	name string
}

func (c *Client) CheckDefinitions() Endpoint[domain.CheckDefinition] {
	return Endpoint[domain.CheckDefinition]{c: c, name: CheckDefinitions}
}

func (c *Client) NotificationAddresses() Endpoint[domain.NotificationAddress] {
	return Endpoint[domain.NotificationAddress]{c: c, name: NotificationAddresses}
}

func (c *Client) CheckResults() Endpoint[domain.CheckResult] {
	return Endpoint[domain.CheckResult]{c: c, name: CheckResults}
}

func (c *Client) LatestResults() Endpoint[domain.LatestResult] {
	return Endpoint[domain.LatestResult]{c: c, name: LatestResults}
}

func (e Endpoint[T]) Name() string { return e.name }

// GetList fetches one page and the total number of matching records.
func (e Endpoint[T]) GetList(ctx context.Context, p ListParams) ([]T, int, error) {
	var out []T
	h, err := e.c.do(ctx, http.MethodGet, e.c.endpoint(e.name, nil, p.query()), nil, &out)
	if err != nil {
		return nil, 0, err
	}
	raw := h.Get(totalCountHeader)
	if raw == "" {
		return nil, 0, fmt.Errorf("%s: %w", e.name, ErrMissingTotal)
	}
	total, err := strconv.Atoi(raw)
	if err != nil {
		return nil, 0, communicate(err, "invalid "+totalCountHeader)
	}
	if out == nil {
		out = []T{}
	}
	return out, total, nil
}

func (e Endpoint[T]) GetOne(ctx context.Context, id int64) (T, error) {
	var out T
	_, err := e.c.do(ctx, http.MethodGet, e.c.endpoint(e.name, &id, nil), nil, &out)
	return out, err
}

// GetMany fetches the records with the given ids in one request.
func (e Endpoint[T]) GetMany(ctx context.Context, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	q := url.Values{}
	addFilter(q, "id", ids)
	var out []T
	if _, err := e.c.do(ctx, http.MethodGet, e.c.endpoint(e.name, nil, q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetManyReference lists the records whose target field equals any of ids.
// Passing several ids batches the lookups for many parents in one request.
func (e Endpoint[T]) GetManyReference(ctx context.Context, target string, ids []int64, p ListParams) ([]T, int, error) {
	filter := make(map[string]any, len(p.Filter)+1)
	for k, v := range p.Filter {
		filter[k] = v
	}
	filter[target] = ids
	p.Filter = filter
	return e.GetList(ctx, p)
}

// Create posts rec and returns the stored record, id included.
func (e Endpoint[T]) Create(ctx context.Context, rec any) (T, error) {
	var out T
	_, err := e.c.do(ctx, http.MethodPost, e.c.endpoint(e.name, nil, nil), rec, &out)
	return out, err
}

// Update replaces the record with the given id.
func (e Endpoint[T]) Update(ctx context.Context, id int64, rec any) (T, error) {
	var out T
	_, err := e.c.do(ctx, http.MethodPut, e.c.endpoint(e.name, &id, nil), rec, &out)
	return out, err
}

func (e Endpoint[T]) Delete(ctx context.Context, id int64) error {
	_, err := e.c.do(ctx, http.MethodDelete, e.c.endpoint(e.name, &id, nil), nil, nil)
	return err
}

// GroupAddresses splits a batched reference result by owning check.
func GroupAddresses(addrs []domain.NotificationAddress) map[int64][]domain.NotificationAddress {
	out := make(map[int64][]domain.NotificationAddress)
	for _, a := range addrs {
		out[a.CheckID] = append(out[a.CheckID], a)
	}
	return out
}

// Record is an untyped resource record as decoded from JSON.
type Record = map[string]any

// Resource returns an untyped endpoint for any resource name.
func (c *Client) Resource(name string) Endpoint[Record] {
	return Endpoint[Record]{c: c, name: name}
}

// RecordID reads the numeric id of an untyped record, or 0.
func RecordID(r Record) int64 {
	switch v := r["id"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
