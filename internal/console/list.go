package console

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hamed0406/urlchecker/internal/dataprovider"
	"github.com/hamed0406/urlchecker/internal/resource"
)

type columnHead struct {
	Label  string
	Href   string // empty when not sortable
	Sorted string // "", "ASC" or "DESC"
}

type listCell struct {
	Text  string
	Title string
	Href  string
	Items []string
}

type listRow struct {
	ID    int64
	Href  string // edit target on row click
	Cells []listCell
}

type filterView struct {
	Source, Label, Value string
}

type listView struct {
	Columns    []columnHead
	Rows       []listRow
	Filters    []filterView
	Action     string
	Sort       string
	Order      string
	PerPage    int
	Range      string
	PrevHref   string
	NextHref   string
	CreateHref string
	Empty      bool
}

type listQuery struct {
	page, perPage int
	sort, order   string
	filter        map[string]string
}

func (c *Console) parseListQuery(res *resource.Resource, q url.Values) listQuery {
	lq := listQuery{page: 1, perPage: c.opts.PerPage, sort: res.DefaultSort, order: res.DefaultOrder, filter: map[string]string{}}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		lq.page = n
	}
	if n, err := strconv.Atoi(q.Get("perPage")); err == nil && n > 0 {
		lq.perPage = min(n, maxPerPage)
	}
	if s := q.Get("sort"); s != "" {
		if col, ok := res.Column(s); ok && col.Sortable && col.Kind != resource.ReferenceMany {
			lq.sort = s
		}
	}
	switch strings.ToUpper(q.Get("order")) {
	case "ASC":
		lq.order = "ASC"
	case "DESC":
		lq.order = "DESC"
	}
	for _, f := range res.Filters {
		if v := strings.TrimSpace(q.Get(f.Source)); v != "" {
			lq.filter[f.Source] = v
		}
	}
	return lq
}

func (lq listQuery) params() dataprovider.ListParams {
	filter := make(map[string]any, len(lq.filter))
	for k, v := range lq.filter {
		filter[k] = v
	}
	return dataprovider.ListParams{
		Filter:     filter,
		Sort:       dataprovider.Sort{Field: lq.sort, Order: lq.order},
		Pagination: dataprovider.Pagination{Page: lq.page, PerPage: lq.perPage},
	}
}

func (lq listQuery) values() url.Values {
	v := url.Values{}
	for k, f := range lq.filter {
		v.Set(k, f)
	}
	v.Set("sort", lq.sort)
	v.Set("order", lq.order)
	v.Set("page", strconv.Itoa(lq.page))
	v.Set("perPage", strconv.Itoa(lq.perPage))
	return v
}

func (c *Console) handleList(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}
	p := c.newPage(w, r, res, res.ListTitle)
	lq := c.parseListQuery(res, r.URL.Query())
	lv := &listView{
		Action:  c.href(res.Name),
		Sort:    lq.sort,
		Order:   lq.order,
		PerPage: lq.perPage,
	}
	p.List = lv
	if res.Views.Create {
		lv.CreateHref = c.href(res.Name, "create")
	}
	for _, f := range res.Filters {
		lv.Filters = append(lv.Filters, filterView{Source: f.Source, Label: f.Label, Value: lq.filter[f.Source]})
	}
	for _, col := range res.Columns {
		lv.Columns = append(lv.Columns, c.columnHead(res, col, lq))
	}

	records, total, err := c.api.Resource(res.Name).GetList(r.Context(), lq.params())
	if err != nil {
		c.fetchFailed(r, res.Name, err)
		p.Error = dataprovider.Message(err)
		lv.Empty = true
		c.render(w, "list", http.StatusOK, p)
		return
	}

	refs := c.loadReferences(r, res, records, p)
	for _, rec := range records {
		id := dataprovider.RecordID(rec)
		row := listRow{ID: id}
		if res.RowClickEdit && res.Views.Edit {
			row.Href = c.href(res.Name, strconv.FormatInt(id, 10))
		}
		for _, col := range res.Columns {
			row.Cells = append(row.Cells, c.cell(col, rec, refs))
		}
		lv.Rows = append(lv.Rows, row)
	}
	lv.Empty = len(records) == 0
	c.paginate(lv, res, lq, len(records), total)
	c.render(w, "list", http.StatusOK, p)
}

func (c *Console) columnHead(res *resource.Resource, col resource.Column, lq listQuery) columnHead {
	h := columnHead{Label: col.Label}
	if !col.Sortable || col.Kind == resource.ReferenceMany {
		return h
	}
	next := lq
	next.page = 1
	next.sort = col.Source
	next.order = "ASC"
	if lq.sort == col.Source {
		h.Sorted = lq.order
		if lq.order == "ASC" {
			next.order = "DESC"
		}
	}
	h.Href = c.href(res.Name) + "?" + next.values().Encode()
	return h
}

func (c *Console) paginate(lv *listView, res *resource.Resource, lq listQuery, shown, total int) {
	start := (lq.page - 1) * lq.perPage
	if shown > 0 {
		lv.Range = c.printer.Sprintf("%d-%d of %d", start+1, start+shown, total)
	}
	if lq.page > 1 {
		prev := lq
		prev.page--
		lv.PrevHref = c.href(res.Name) + "?" + prev.values().Encode()
	}
	if start+shown < total {
		next := lq
		next.page++
		lv.NextHref = c.href(res.Name) + "?" + next.values().Encode()
	}
}

// references holds the records each reference column points at, keyed by
// column source then by id (Reference) or by owning id (ReferenceMany).
type references struct {
	one  map[string]map[int64]dataprovider.Record
	many map[string]map[int64][]dataprovider.Record
}

// loadReferences issues one batched request per reference column.
func (c *Console) loadReferences(r *http.Request, res *resource.Resource, records []dataprovider.Record, p *page) references {
	refs := references{
		one:  map[string]map[int64]dataprovider.Record{},
		many: map[string]map[int64][]dataprovider.Record{},
	}
	if len(records) == 0 {
		return refs
	}
	for _, col := range res.Columns {
		switch col.Kind {
		case resource.Reference:
			ids := distinctIDs(records, col.Source)
			found, err := c.api.Resource(col.RefResource).GetMany(r.Context(), ids)
			if err != nil {
				c.fetchFailed(r, col.RefResource, err)
				p.Error = dataprovider.Message(err)
				continue
			}
			byID := make(map[int64]dataprovider.Record, len(found))
			for _, f := range found {
				byID[dataprovider.RecordID(f)] = f
			}
			refs.one[col.Source] = byID
		case resource.ReferenceMany:
			ids := distinctIDs(records, "id")
			found, _, err := c.api.Resource(col.RefResource).GetManyReference(r.Context(), col.RefTarget, ids,
				dataprovider.ListParams{Sort: dataprovider.Sort{Field: "id", Order: "ASC"}})
			if err != nil {
				c.fetchFailed(r, col.RefResource, err)
				p.Error = dataprovider.Message(err)
				continue
			}
			byOwner := make(map[int64][]dataprovider.Record)
			for _, f := range found {
				if owner, ok := asID(f[col.RefTarget]); ok {
					byOwner[owner] = append(byOwner[owner], f)
				}
			}
			refs.many[col.Source] = byOwner
		}
	}
	return refs
}

func distinctIDs(records []dataprovider.Record, source string) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, rec := range records {
		v, _ := resource.Lookup(rec, source)
		if id, ok := asID(v); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Console) cell(col resource.Column, rec dataprovider.Record, refs references) listCell {
	switch col.Kind {
	case resource.Reference:
		v, _ := resource.Lookup(rec, col.Source)
		id, ok := asID(v)
		if !ok {
			return listCell{Text: col.EmptyText}
		}
		target, found := refs.one[col.Source][id]
		if !found {
			return listCell{Text: col.EmptyText}
		}
		return listCell{
			Text: plain(target[col.RefField]),
			Href: c.href(col.RefResource, strconv.FormatInt(id, 10)),
		}
	case resource.ReferenceMany:
		var items []string
		for _, t := range refs.many[col.Source][dataprovider.RecordID(rec)] {
			items = append(items, plain(t[col.RefField]))
		}
		return listCell{Items: items}
	}

	v, _ := resource.Lookup(rec, col.Source)
	text, title := c.cellText(col, v)
	cell := listCell{Text: text, Title: title}
	if col.Kind == resource.URL && isHTTPURL(text) {
		cell.Href = text
	}
	return cell
}
