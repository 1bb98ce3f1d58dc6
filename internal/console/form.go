package console

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hamed0406/urlchecker/internal/dataprovider"
	"github.com/hamed0406/urlchecker/internal/resource"
)

type option struct {
	Value, Label string
	Selected     bool
}

type formInput struct {
	Source   string
	Label    string
	Kind     string
	Value    string
	Display  string // ShowInput: the referenced record's field
	Required bool
	Error    string
	Options  []option
}

type relatedRow struct {
	Text         string
	EditHref     string
	DeleteAction string
}

type relatedView struct {
	Label    string
	Rows     []relatedRow
	AddHref  string
	AddLabel string
	Redirect string
}

type formView struct {
	Action       string
	Inputs       []formInput
	Redirect     string
	CancelHref   string
	DeleteAction string
	Related      *relatedView
}

// Form values by input source.
type values map[string]string

func (c *Console) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok || !res.Views.Create {
		http.NotFound(w, r)
		return
	}
	vals := values{}
	for _, in := range res.CreateInputs {
		vals[in.Source] = r.URL.Query().Get(in.Source)
	}
	c.renderForm(w, r, res, res.CreateInputs, 0, vals, nil, http.StatusOK, nil)
}

func (c *Console) handleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok || !res.Views.Create {
		http.NotFound(w, r)
		return
	}
	vals, fieldErrs, err := c.readForm(w, r, res.CreateInputs)
	if err != nil {
		http.Error(w, "malformed form submission", http.StatusBadRequest)
		return
	}
	if len(fieldErrs) > 0 {
		c.renderForm(w, r, res, res.CreateInputs, 0, vals, fieldErrs, http.StatusUnprocessableEntity, nil)
		return
	}
	_, err = c.api.Resource(res.Name).Create(r.Context(), payload(res.CreateInputs, vals))
	if err != nil {
		c.fetchFailed(r, res.Name, err)
		c.renderForm(w, r, res, res.CreateInputs, 0, vals, nil, failureStatus(err), err)
		return
	}
	http.Redirect(w, r, c.afterWrite(r, res, "created"), http.StatusSeeOther)
}

func (c *Console) handleEditForm(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok || !res.Views.Edit {
		http.NotFound(w, r)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := c.api.Resource(res.Name).GetOne(r.Context(), id)
	if err != nil {
		c.fetchFailed(r, res.Name, err)
		if dataprovider.StatusOf(err) == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		p := c.newPage(w, r, res, res.EditTitle)
		p.Error = dataprovider.Message(err)
		c.render(w, "form", failureStatus(err), p)
		return
	}
	vals := values{}
	for _, in := range res.EditInputs {
		v, _ := resource.Lookup(rec, in.Source)
		vals[in.Source] = plain(v)
	}
	c.renderForm(w, r, res, res.EditInputs, id, vals, nil, http.StatusOK, nil)
}

func (c *Console) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok || !res.Views.Edit {
		http.NotFound(w, r)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	vals, fieldErrs, err := c.readForm(w, r, res.EditInputs)
	if err != nil {
		http.Error(w, "malformed form submission", http.StatusBadRequest)
		return
	}
	if len(fieldErrs) > 0 {
		c.renderForm(w, r, res, res.EditInputs, id, vals, fieldErrs, http.StatusUnprocessableEntity, nil)
		return
	}
	_, err = c.api.Resource(res.Name).Update(r.Context(), id, payload(res.EditInputs, vals))
	if err != nil {
		c.fetchFailed(r, res.Name, err)
		c.renderForm(w, r, res, res.EditInputs, id, vals, nil, failureStatus(err), err)
		return
	}
	http.Redirect(w, r, c.afterWrite(r, res, "updated"), http.StatusSeeOther)
}

func (c *Console) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok || !res.Views.Edit {
		http.NotFound(w, r)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := c.api.Resource(res.Name).Delete(r.Context(), id)
	if err != nil {
		c.fetchFailed(r, res.Name, err)
		back := c.href(res.Name, strconv.FormatInt(id, 10))
		if to := r.FormValue("redirect"); c.local(to) {
			back = to
		}
		c.setFlash(w, dataprovider.Message(err))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, c.afterWrite(r, res, "deleted"), http.StatusSeeOther)
}

// readForm collects the posted inputs and validates them locally. The error
// is only set when the body itself could not be read.
func (c *Console) readForm(w http.ResponseWriter, r *http.Request, inputs []resource.Input) (values, map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	vals := values{}
	errs := map[string]string{}
	for _, in := range inputs {
		v := strings.TrimSpace(r.PostForm.Get(in.Source))
		vals[in.Source] = v
		if in.Rules == "" {
			continue
		}
		if err := c.validate.Var(v, in.Rules); err != nil {
			errs[in.Source] = ruleMessage(err)
		}
	}
	return vals, errs, nil
}

func ruleMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Invalid value"
	}
	switch ve[0].Tag() {
	case "required":
		return "Required"
	case "url":
		return "Must be a valid URL"
	case "number", "numeric":
		return "Must be a number"
	case "email":
		return "Must be a valid e-mail"
	}
	return "Invalid value"
}

// payload types the form values the way the backend expects them.
func payload(inputs []resource.Input, vals values) map[string]any {
	out := make(map[string]any, len(inputs))
	for _, in := range inputs {
		v := vals[in.Source]
		switch in.Kind {
		case resource.NumberInput, resource.SelectInput, resource.ShowInput:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				out[in.Source] = v
				continue
			}
			out[in.Source] = n
		default:
			out[in.Source] = v
		}
	}
	return out
}

func failureStatus(err error) int {
	if s := dataprovider.StatusOf(err); s >= 400 && s < 500 {
		return s
	}
	return http.StatusBadGateway
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// renderForm draws a create (id == 0) or edit form. submitErr is a backend
// rejection shown above the retained input.
func (c *Console) renderForm(w http.ResponseWriter, r *http.Request, res *resource.Resource, inputs []resource.Input, id int64, vals values, fieldErrs map[string]string, status int, submitErr error) {
	title := res.CreateTitle
	fv := &formView{
		Action:     c.href(res.Name, "create"),
		CancelHref: c.href(res.Name),
	}
	if id != 0 {
		title = res.EditTitle
		fv.Action = c.href(res.Name, strconv.FormatInt(id, 10))
		fv.DeleteAction = fv.Action + "/delete"
	}
	if to := r.FormValue("redirect"); c.local(to) {
		fv.Redirect = to
		fv.CancelHref = to
	}
	p := c.newPage(w, r, res, title)
	p.Form = fv
	if submitErr != nil {
		p.Error = dataprovider.Message(submitErr)
	}

	for _, in := range inputs {
		fi := formInput{
			Source:   in.Source,
			Label:    in.Label,
			Kind:     string(in.Kind),
			Value:    vals[in.Source],
			Required: in.Required(),
			Error:    fieldErrs[in.Source],
		}
		switch in.Kind {
		case resource.SelectInput:
			fi.Options = c.options(r, in, fi.Value, p)
		case resource.ShowInput:
			fi.Display = c.display(r, in, fi.Value, p)
		}
		fv.Inputs = append(fv.Inputs, fi)
	}
	// related rows are left out when re-rendering a rejected submission
	if id != 0 && res.EditRelated != nil && r.Method == http.MethodGet {
		fv.Related = c.related(r, res, id, p)
	}
	c.render(w, "form", status, p)
}

func (c *Console) options(r *http.Request, in resource.Input, selected string, p *page) []option {
	recs, _, err := c.api.Resource(in.RefResource).GetList(r.Context(), dataprovider.ListParams{
		Sort: dataprovider.Sort{Field: in.RefField, Order: "ASC"},
	})
	if err != nil {
		c.fetchFailed(r, in.RefResource, err)
		p.Error = dataprovider.Message(err)
		return nil
	}
	opts := make([]option, 0, len(recs))
	for _, rec := range recs {
		v := strconv.FormatInt(dataprovider.RecordID(rec), 10)
		opts = append(opts, option{Value: v, Label: plain(rec[in.RefField]), Selected: v == selected})
	}
	return opts
}

func (c *Console) display(r *http.Request, in resource.Input, value string, p *page) string {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return ""
	}
	rec, err := c.api.Resource(in.RefResource).GetOne(r.Context(), id)
	if err != nil {
		c.fetchFailed(r, in.RefResource, err)
		p.Error = dataprovider.Message(err)
		return ""
	}
	return plain(rec[in.RefField])
}

// related lists the records that point at the edited one, each editable and
// deletable in place, returning here afterwards.
func (c *Console) related(r *http.Request, res *resource.Resource, id int64, p *page) *relatedView {
	col := res.EditRelated
	here := c.href(res.Name, strconv.FormatInt(id, 10))
	rv := &relatedView{Label: col.Label, AddLabel: res.RelatedAddLabel, Redirect: here}

	add := url.Values{}
	add.Set(col.RefTarget, strconv.FormatInt(id, 10))
	add.Set("redirect", here)
	rv.AddHref = c.href(col.RefResource, "create") + "?" + add.Encode()

	recs, _, err := c.api.Resource(col.RefResource).GetManyReference(r.Context(), col.RefTarget, []int64{id},
		dataprovider.ListParams{Sort: dataprovider.Sort{Field: "id", Order: "ASC"}})
	if err != nil {
		c.fetchFailed(r, col.RefResource, err)
		p.Error = dataprovider.Message(err)
		return rv
	}
	back := url.Values{}
	back.Set("redirect", here)
	for _, rec := range recs {
		rid := strconv.FormatInt(dataprovider.RecordID(rec), 10)
		rv.Rows = append(rv.Rows, relatedRow{
			Text:         plain(rec[col.RefField]),
			EditHref:     c.href(col.RefResource, rid) + "?" + back.Encode(),
			DeleteAction: c.href(col.RefResource, rid, "delete"),
		})
	}
	return rv
}
