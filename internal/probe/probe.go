package probe

import "context"

// Target is what a single probe verifies.
type Target struct {
	URL            string
	ExpectedStatus int
	ExpectedString string
}

// Outcome is the unified result of a single probe.
//
// StatusCode is 0 for transport and DNS errors. DNSClass is only filled in
// when a failed probe was diagnosed.
type Outcome struct {
	Success    bool
	StatusCode int
	LatencyMS  float64
	Message    string
	DNSClass   string
}

// Checker performs a single check for a given target.
type Checker interface {
	Check(ctx context.Context, t Target) Outcome
}
