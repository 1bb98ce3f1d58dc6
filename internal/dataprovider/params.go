package dataprovider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Sort struct {
	Field string
	Order string // ASC or DESC
}

type Pagination struct {
	Page    int // 1-based
	PerPage int
}

// ListParams describe a list request. Filter values that are slices become
// repeated query keys; anything else becomes a single key.
type ListParams struct {
	Filter     map[string]any
	Sort       Sort
	Pagination Pagination
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	for k, v := range p.Filter {
		addFilter(q, k, v)
	}
	if p.Sort.Field != "" {
		q.Set("_sort", p.Sort.Field)
		order := strings.ToUpper(p.Sort.Order)
		if order != "DESC" {
			order = "ASC"
		}
		q.Set("_order", order)
	}
	if p.Pagination.Page > 0 && p.Pagination.PerPage > 0 {
		start := (p.Pagination.Page - 1) * p.Pagination.PerPage
		q.Set("_start", strconv.Itoa(start))
		q.Set("_end", strconv.Itoa(start+p.Pagination.PerPage))
	}
	return q
}

func addFilter(q url.Values, key string, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		if x != "" {
			q.Add(key, x)
		}
	case []string:
		for _, s := range x {
			q.Add(key, s)
		}
	case []int64:
		for _, n := range x {
			q.Add(key, strconv.FormatInt(n, 10))
		}
	case []int:
		for _, n := range x {
			q.Add(key, strconv.Itoa(n))
		}
	case int64:
		q.Add(key, strconv.FormatInt(x, 10))
	case int:
		q.Add(key, strconv.Itoa(x))
	default:
		q.Add(key, fmt.Sprint(x))
	}
}
