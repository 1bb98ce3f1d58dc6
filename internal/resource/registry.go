package resource

import "github.com/hamed0406/urlchecker/internal/dataprovider"

var urlcontains = Filter{Source: "urlcontains", Label: "Search", AlwaysOn: true}

func LatestResults() *Resource {
	return &Resource{
		Name:         dataprovider.LatestResults,
		Label:        "Latest Results",
		Icon:         "notifications_active",
		Views:        Views{List: true},
		ListTitle:    "Latest Results",
		DefaultSort:  "id",
		DefaultOrder: "ASC",
		Filters:      []Filter{urlcontains},
		Columns: []Column{
			{Source: "url", Label: "URL", Kind: URL, Sortable: true},
			{Source: "frequency", Label: "Frequency", Kind: Number, Unit: "second", Sortable: true},
			{Source: "expectedStatus", Label: "Expected Status", Kind: Number, Sortable: true},
			{Source: "expectedString", Label: "Expected String", Kind: Text, EmptyText: "None", Sortable: true},
			{Source: "lastChecked", Label: "Last Checked", Kind: Date, ShowTime: true, Sortable: true},
			{Source: "lastState", Label: "Last State", Kind: Text, Sortable: true},
		},
	}
}

var checkInputs = []Input{
	{Source: "url", Label: "URL", Kind: URLInput, Rules: "required,url"},
	{Source: "frequency", Label: "Frequency", Kind: NumberInput, Rules: "required,number"},
	{Source: "expectedStatus", Label: "Expected Status", Kind: NumberInput, Rules: "required,number"},
	{Source: "expectedString", Label: "Expected String", Kind: TextInput},
}

func CheckDefinitions() *Resource {
	related := Column{
		Source:      "emailAddress",
		Label:       "E-mail Addresses",
		Kind:        ReferenceMany,
		RefResource: dataprovider.NotificationAddresses,
		RefField:    "emailAddress",
		RefTarget:   "checkId",
	}
	return &Resource{
		Name:         dataprovider.CheckDefinitions,
		Label:        "URL Checks",
		Icon:         "tune",
		Views:        Views{List: true, Create: true, Edit: true},
		ListTitle:    "URL Checks",
		CreateTitle:  "Create new URL Check Definition",
		EditTitle:    "Edit URL Check Definition",
		DefaultSort:  "id",
		DefaultOrder: "ASC",
		Filters:      []Filter{urlcontains},
		RowClickEdit: true,
		Columns: []Column{
			{Source: "id", Label: "Id", Kind: Number, Sortable: true},
			{Source: "url", Label: "URL", Kind: URL, Sortable: true},
			{Source: "frequency", Label: "Frequency", Kind: Number, Sortable: true},
			{Source: "expectedStatus", Label: "Expected Status", Kind: Number, Sortable: true},
			{Source: "expectedString", Label: "Expected String", Kind: Text, Sortable: true},
			related,
		},
		CreateInputs:    checkInputs,
		EditInputs:      checkInputs,
		EditRelated:     &related,
		RelatedAddLabel: "Add a new e-mail address",
	}
}

func NotificationAddresses() *Resource {
	return &Resource{
		Name:         dataprovider.NotificationAddresses,
		Label:        "E-mails",
		Icon:         "email",
		Views:        Views{List: true, Create: true, Edit: true},
		ListTitle:    "E-mails",
		CreateTitle:  "Create new Notification E-mail",
		EditTitle:    "Edit Notification E-mail Address",
		DefaultSort:  "id",
		DefaultOrder: "ASC",
		RowClickEdit: true,
		Columns: []Column{
			{Source: "checkId", Label: "URL Check", Kind: Reference, RefResource: dataprovider.CheckDefinitions, RefField: "url", Sortable: true},
			{Source: "emailAddress", Label: "Email Address", Kind: Text, Sortable: true},
			{Source: "id", Label: "Id", Kind: Text, Sortable: true},
		},
		CreateInputs: []Input{
			{Source: "checkId", Label: "URL Check", Kind: SelectInput, Rules: "required", RefResource: dataprovider.CheckDefinitions, RefField: "url"},
			{Source: "emailAddress", Label: "E-mail Address", Kind: TextInput, Rules: "required"},
		},
		EditInputs: []Input{
			{Source: "checkId", Label: "URL Check", Kind: ShowInput, RefResource: dataprovider.CheckDefinitions, RefField: "url"},
			{Source: "emailAddress", Label: "E-mail Address", Kind: TextInput, Rules: "required"},
		},
	}
}

func CheckResults() *Resource {
	return &Resource{
		Name:         dataprovider.CheckResults,
		Label:        "Results",
		Icon:         "list",
		Views:        Views{List: true},
		ListTitle:    "Results",
		DefaultSort:  "id",
		DefaultOrder: "DESC",
		Columns: []Column{
			{Source: "checkDefinition.url", Label: "Check URL", Kind: URL, Sortable: true},
			{Source: "timeChecked", Label: "Time Checked", Kind: Date, ShowTime: true, Sortable: true},
			{Source: "statusCode", Label: "Status Code", Kind: Number, Sortable: true},
			{Source: "state", Label: "State", Kind: Text, Sortable: true},
			{Source: "id", Label: "Id", Kind: Text, Sortable: true},
		},
	}
}

// Default is the console's resource set in navigation order.
func Default() *Registry {
	return NewRegistry(LatestResults(), CheckDefinitions(), NotificationAddresses(), CheckResults())
}
