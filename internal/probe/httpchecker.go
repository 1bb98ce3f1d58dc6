package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBody caps how much of a response is searched for the expected string.
const maxBody = 4 << 20

type HTTPChecker struct {
	Client *http.Client
}

// NewHTTPChecker returns a checker that issues GET requests and does not
// follow redirects, so a 301 can be the expected status.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, t Target) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return Outcome{Message: err.Error()}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Outcome{Message: err.Error(), LatencyMS: msSince(start)}
	}
	defer resp.Body.Close()

	out := Outcome{StatusCode: resp.StatusCode, Message: resp.Status}
	if resp.StatusCode != t.ExpectedStatus {
		out.LatencyMS = msSince(start)
		out.Message = fmt.Sprintf("%s, expected %d", resp.Status, t.ExpectedStatus)
		return out
	}
	if t.ExpectedString != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		out.LatencyMS = msSince(start)
		if err != nil {
			out.Message = "read body: " + err.Error()
			return out
		}
		if !strings.Contains(string(body), t.ExpectedString) {
			out.Message = fmt.Sprintf("%s, body does not contain %q", resp.Status, t.ExpectedString)
			return out
		}
	}
	if out.LatencyMS == 0 {
		out.LatencyMS = msSince(start)
	}
	out.Success = true
	return out
}

func msSince(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}
