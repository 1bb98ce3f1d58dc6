package domain

// CheckDefinition is a URL that is probed every Frequency seconds.
type CheckDefinition struct {
	ID             int64                 `json:"id"`
	URL            string                `json:"url" validate:"required,url,startswith=http"`
	Frequency      int                   `json:"frequency" validate:"required,gt=0"`
	ExpectedStatus int                   `json:"expectedStatus" validate:"required,gte=100,lte=599"`
	ExpectedString string                `json:"expectedString"`
	EmailAddresses []NotificationAddress `json:"emailAddresses"`
}

// NotificationAddress is an e-mail recipient for failures of one check.
type NotificationAddress struct {
	ID           int64  `json:"id"`
	CheckID      int64  `json:"checkId" validate:"required,gt=0"`
	EmailAddress string `json:"emailAddress" validate:"required"`
}

// Recipients returns the e-mail addresses of the check, skipping blanks.
func (c CheckDefinition) Recipients() []string {
	out := make([]string, 0, len(c.EmailAddresses))
	for _, a := range c.EmailAddresses {
		if a.EmailAddress != "" {
			out = append(out, a.EmailAddress)
		}
	}
	return out
}
