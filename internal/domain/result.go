package domain

import "time"

const (
	StateSuccess = "SUCCESS"
	StateFailure = "FAILURE"
)

type CheckResult struct {
	ID              int64            `json:"id"`
	CheckID         int64            `json:"checkId"`
	TimeChecked     time.Time        `json:"timeChecked"`
	StatusCode      int              `json:"statusCode"`
	State           string           `json:"state"`
	CheckDefinition *CheckDefinition `json:"checkDefinition,omitempty"`
}

func (r CheckResult) Succeeded() bool { return r.State == StateSuccess }

// LatestResult is one row per check with the state of its most recent run.
// LastChecked is nil and LastState empty for a check that never ran.
type LatestResult struct {
	ID             int64      `json:"id"`
	URL            string     `json:"url"`
	Frequency      int        `json:"frequency"`
	ExpectedStatus int        `json:"expectedStatus"`
	ExpectedString string     `json:"expectedString"`
	LastChecked    *time.Time `json:"lastChecked"`
	LastState      string     `json:"lastState"`
}

// LatestOf builds the projection row of c from its newest result, which may be nil.
func LatestOf(c CheckDefinition, newest *CheckResult) LatestResult {
	lr := LatestResult{
		ID:             c.ID,
		URL:            c.URL,
		Frequency:      c.Frequency,
		ExpectedStatus: c.ExpectedStatus,
		ExpectedString: c.ExpectedString,
	}
	if newest != nil {
		t := newest.TimeChecked
		lr.LastChecked = &t
		lr.LastState = newest.State
	}
	return lr
}
