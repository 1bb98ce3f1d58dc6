package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo/memory"
)

// ---- test helpers ----

type fakeJobs struct {
	mu          sync.Mutex
	scheduled   []int64
	unscheduled []int64
}

func (f *fakeJobs) Schedule(c domain.CheckDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, c.ID)
}

func (f *fakeJobs) Unschedule(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unscheduled = append(f.unscheduled, id)
}

func setup(t *testing.T) (*httptest.Server, *memory.Store, *fakeJobs) {
	t.Helper()
	store := memory.New()
	jobs := &fakeJobs{}
	srv := NewServer(zap.NewNop(), store, jobs)
	ts := httptest.NewServer(srv.Router(RouterOptions{Origins: []string{"*"}}))
	t.Cleanup(ts.Close)
	return ts, store, jobs
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func createCheck(t *testing.T, base, url string) domain.CheckDefinition {
	t.Helper()
	resp := do(t, "POST", base+"/checkdefinitions", map[string]any{
		"url": url, "frequency": 30, "expectedStatus": 200,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create %s: status %d", url, resp.StatusCode)
	}
	return decodeBody[domain.CheckDefinition](t, resp)
}

// ---- tests ----

func TestCreateCheck_OK_Duplicate_Invalid(t *testing.T) {
	ts, _, jobs := setup(t)

	c := createCheck(t, ts.URL, "https://Example.com/")
	if c.ID == 0 || c.URL != "https://example.com" {
		t.Fatalf("unexpected created check: %+v", c)
	}
	if len(jobs.scheduled) != 1 || jobs.scheduled[0] != c.ID {
		t.Fatalf("create should schedule a job: %v", jobs.scheduled)
	}

	resp := do(t, "POST", ts.URL+"/checkdefinitions", map[string]any{"url": "https://example.com", "frequency": 10, "expectedStatus": 200})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: want 409, got %d", resp.StatusCode)
	}

	resp = do(t, "POST", ts.URL+"/checkdefinitions", map[string]any{"url": "", "frequency": 10, "expectedStatus": 200})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty url: want 400, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["message"] == "" {
		t.Fatalf("error body should carry a message: %v", body)
	}
}

func TestListChecks_FilterAndTotalHeader(t *testing.T) {
	ts, _, _ := setup(t)
	createCheck(t, ts.URL, "https://a.example.com")
	createCheck(t, ts.URL, "https://golang.org")
	createCheck(t, ts.URL, "https://b.example.com")

	resp := do(t, "GET", ts.URL+"/checkdefinitions?urlcontains=example&_sort=url&_order=DESC&_start=0&_end=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Total-Count"); got != "2" {
		t.Fatalf("X-Total-Count = %q, want 2", got)
	}
	items := decodeBody[[]domain.CheckDefinition](t, resp)
	if len(items) != 1 || items[0].URL != "https://b.example.com" {
		t.Fatalf("unexpected page: %+v", items)
	}
}

func TestUpdateAndDeleteCheck_DriveJobs(t *testing.T) {
	ts, store, jobs := setup(t)
	c := createCheck(t, ts.URL, "https://example.com")
	id := strconv.FormatInt(c.ID, 10)

	resp := do(t, "PUT", ts.URL+"/checkdefinitions/"+id, map[string]any{
		"id": c.ID, "url": "https://example.com/health", "frequency": 60, "expectedStatus": 204, "emailAddresses": []any{},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d", resp.StatusCode)
	}
	if got := decodeBody[domain.CheckDefinition](t, resp); got.Frequency != 60 || got.ExpectedStatus != 204 {
		t.Fatalf("update not applied: %+v", got)
	}
	if len(jobs.scheduled) != 2 {
		t.Fatalf("update should reschedule: %v", jobs.scheduled)
	}

	resp = do(t, "POST", ts.URL+"/notificationaddresses", map[string]any{"checkId": c.ID, "emailAddress": "ops@example.com"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create address status %d", resp.StatusCode)
	}

	resp = do(t, "DELETE", ts.URL+"/checkdefinitions/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if len(jobs.unscheduled) != 1 || jobs.unscheduled[0] != c.ID {
		t.Fatalf("delete should unschedule: %v", jobs.unscheduled)
	}
	resp = do(t, "GET", ts.URL+"/notificationaddresses?checkId="+id, nil)
	if resp.Header.Get("X-Total-Count") != "0" {
		t.Fatalf("addresses should cascade, total=%s", resp.Header.Get("X-Total-Count"))
	}
	if _, err := store.GetCheck(resp.Request.Context(), c.ID); err == nil {
		t.Fatalf("check still stored")
	}

	resp = do(t, "DELETE", ts.URL+"/checkdefinitions/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: want 404, got %d", resp.StatusCode)
	}
}

func TestCreateAddress_UnknownCheck(t *testing.T) {
	ts, _, _ := setup(t)
	resp := do(t, "POST", ts.URL+"/notificationaddresses", map[string]any{"checkId": 99, "emailAddress": "x@example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	resp = do(t, "POST", ts.URL+"/notificationaddresses", map[string]any{"checkId": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing email: want 400, got %d", resp.StatusCode)
	}
}

func TestResultsAreReadOnly_LatestOnePerCheck(t *testing.T) {
	ts, store, _ := setup(t)
	a := createCheck(t, ts.URL, "https://a.example.com")
	createCheck(t, ts.URL, "https://b.example.com")
	ctx := context.Background()
	_ = store.AppendResult(ctx, &domain.CheckResult{CheckID: a.ID, StatusCode: 200, State: domain.StateSuccess})
	_ = store.AppendResult(ctx, &domain.CheckResult{CheckID: a.ID, StatusCode: 500, State: domain.StateFailure})

	resp := do(t, "GET", ts.URL+"/latestresults", nil)
	rows := decodeBody[[]domain.LatestResult](t, resp)
	if len(rows) != 2 || resp.Header.Get("X-Total-Count") != "2" {
		t.Fatalf("want one latest row per check, got %d", len(rows))
	}

	resp = do(t, "GET", ts.URL+"/checkresults?checkId="+strconv.FormatInt(a.ID, 10), nil)
	results := decodeBody[[]domain.CheckResult](t, resp)
	if len(results) != 2 || results[0].CheckDefinition == nil || results[0].CheckDefinition.URL != a.URL {
		t.Fatalf("results should embed check definition: %+v", results)
	}

	for _, method := range []string{"POST", "DELETE"} {
		target := ts.URL + "/checkresults"
		if method == "DELETE" {
			target += "/1"
		}
		if resp := do(t, method, target, map[string]any{}); resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s checkresults: want 405, got %d", method, resp.StatusCode)
		}
	}
}

func TestCORS_ExposesTotalCount(t *testing.T) {
	ts, _, _ := setup(t)
	req, _ := http.NewRequest("GET", ts.URL+"/checkdefinitions", nil)
	req.Header.Set("Origin", "https://console.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Expose-Headers"); got == "" {
		t.Fatalf("expected exposed headers, got none")
	}
}
