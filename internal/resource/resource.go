// Package resource declares the console's resources: which views each one
// has, how its list renders and which inputs its forms carry.
package resource

import "strings"

type ColumnKind string

const (
	Text          ColumnKind = "text"
	Number        ColumnKind = "number"
	URL           ColumnKind = "url"
	Date          ColumnKind = "date"
	Reference     ColumnKind = "reference"
	ReferenceMany ColumnKind = "reference_many"
)

type Column struct {
	Source    string // dotted path into the record, e.g. "checkDefinition.url"
	Label     string
	Kind      ColumnKind
	Unit      string // Number: singular unit, pluralized by value
	ShowTime  bool   // Date
	EmptyText string
	Sortable  bool

	// Reference: Source holds the id of a record in RefResource, shown by RefField.
	// ReferenceMany: records of RefResource whose RefTarget equals this row's id.
	RefResource string
	RefField    string
	RefTarget   string
}

type InputKind string

const (
	TextInput   InputKind = "text"
	URLInput    InputKind = "url"
	NumberInput InputKind = "number"
	SelectInput InputKind = "select" // options are the records of Input.RefResource
	ShowInput   InputKind = "show"   // read-only display of a referenced record, value kept hidden
)

type Input struct {
	Source string
	Label  string
	Kind   InputKind
	// Rules is a validator tag checked in the console before submitting.
	Rules       string
	RefResource string
	RefField    string
}

func (i Input) Required() bool {
	for _, r := range strings.Split(i.Rules, ",") {
		if r == "required" {
			return true
		}
	}
	return false
}

type Filter struct {
	Source   string
	Label    string
	AlwaysOn bool
}

type Views struct {
	List, Create, Edit bool
}

type Resource struct {
	Name  string
	Label string
	Icon  string
	Views Views

	ListTitle   string
	CreateTitle string
	EditTitle   string

	Columns      []Column
	Filters      []Filter
	RowClickEdit bool
	DefaultSort  string
	DefaultOrder string

	CreateInputs []Input
	EditInputs   []Input

	// EditRelated names a ReferenceMany shown under the edit form with
	// inline edit and delete, plus a link to create a new related record.
	EditRelated     *Column
	RelatedAddLabel string
}

// ReadOnly reports whether the resource has neither create nor edit views.
func (r *Resource) ReadOnly() bool { return !r.Views.Create && !r.Views.Edit }

// Column returns the column for source.
func (r *Resource) Column(source string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Source == source {
			return c, true
		}
	}
	return Column{}, false
}

// Registry keeps resources in navigation order.
type Registry struct {
	order  []*Resource
	byName map[string]*Resource
}

func NewRegistry(rs ...*Resource) *Registry {
	reg := &Registry{byName: make(map[string]*Resource, len(rs))}
	for _, r := range rs {
		reg.order = append(reg.order, r)
		reg.byName[r.Name] = r
	}
	return reg
}

func (reg *Registry) Get(name string) (*Resource, bool) {
	r, ok := reg.byName[name]
	return r, ok
}

func (reg *Registry) All() []*Resource { return reg.order }

// First is the resource the console opens on.
func (reg *Registry) First() *Resource {
	if len(reg.order) == 0 {
		return nil
	}
	return reg.order[0]
}
