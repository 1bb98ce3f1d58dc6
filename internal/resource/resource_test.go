package resource

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_NavigationAndViews(t *testing.T) {
	reg := Default()
	var got []string
	for _, r := range reg.All() {
		got = append(got, r.Label)
	}
	want := []string{"Latest Results", "URL Checks", "E-mails", "Results"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("navigation (-want +got):\n%s", diff)
	}
	if reg.First().Name != "latestresults" {
		t.Fatalf("console should open on latestresults")
	}

	for name, readOnly := range map[string]bool{
		"latestresults":         true,
		"checkresults":          true,
		"checkdefinitions":      false,
		"notificationaddresses": false,
	} {
		r, ok := reg.Get(name)
		if !ok {
			t.Fatalf("missing resource %s", name)
		}
		if r.ReadOnly() != readOnly {
			t.Fatalf("%s: ReadOnly=%v want %v", name, r.ReadOnly(), readOnly)
		}
		if readOnly && r.RowClickEdit {
			t.Fatalf("%s: read-only lists must not open an editor", name)
		}
	}
}

func TestCheckDefinitions_InputsAndRelated(t *testing.T) {
	r := CheckDefinitions()
	required := map[string]bool{}
	for _, in := range r.CreateInputs {
		required[in.Source] = in.Required()
	}
	want := map[string]bool{"url": true, "frequency": true, "expectedStatus": true, "expectedString": false}
	if diff := cmp.Diff(want, required); diff != "" {
		t.Fatalf("required inputs (-want +got):\n%s", diff)
	}
	if r.EditRelated == nil || r.EditRelated.RefTarget != "checkId" {
		t.Fatalf("edit view should embed addresses by checkId")
	}
}

func TestLatestResults_Columns(t *testing.T) {
	r := LatestResults()
	freq, ok := r.Column("frequency")
	if !ok || freq.Unit != "second" {
		t.Fatalf("frequency column should carry unit second: %+v", freq)
	}
	es, _ := r.Column("expectedString")
	if es.EmptyText != "None" {
		t.Fatalf("expectedString empty text = %q", es.EmptyText)
	}
	if len(r.Filters) != 1 || r.Filters[0].Source != "urlcontains" || !r.Filters[0].AlwaysOn {
		t.Fatalf("urlcontains filter missing: %+v", r.Filters)
	}
}

func TestLookup(t *testing.T) {
	rec := map[string]any{"id": 1.0, "checkDefinition": map[string]any{"url": "https://example.com"}}
	if v, ok := Lookup(rec, "checkDefinition.url"); !ok || v != "https://example.com" {
		t.Fatalf("nested lookup failed: %v %v", v, ok)
	}
	if _, ok := Lookup(rec, "checkDefinition.missing"); ok {
		t.Fatalf("missing key should not be found")
	}
	if _, ok := Lookup(rec, "id.url"); ok {
		t.Fatalf("lookup through a scalar should fail")
	}
}
