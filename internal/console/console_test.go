package console

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/httpapi"
	"github.com/hamed0406/urlchecker/internal/repo"
	"github.com/hamed0406/urlchecker/internal/repo/memory"
)

type fixture struct {
	store   *memory.Store
	console http.Handler
	calls   *atomic.Int64
}

// setup runs a backend on the memory store and a console pointed at it.
func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	api := httpapi.NewServer(zap.NewNop(), store, nil).Router(httpapi.RouterOptions{Origins: []string{"*"}})
	calls := &atomic.Int64{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	c, err := New(zap.NewNop(), Options{APIBase: ts.URL, Prefix: "/ui", HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{store: store, console: c.Handler(), calls: calls}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.console.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func (f *fixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.console.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedCheck(t *testing.T, u string, emails ...string) domain.CheckDefinition {
	t.Helper()
	ctx := context.Background()
	c := domain.CheckDefinition{URL: u, Frequency: 30, ExpectedStatus: 200}
	if err := f.store.CreateCheck(ctx, &c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	for _, e := range emails {
		a := domain.NotificationAddress{CheckID: c.ID, EmailAddress: e}
		if err := f.store.CreateAddress(ctx, &a); err != nil {
			t.Fatalf("CreateAddress: %v", err)
		}
	}
	return c
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func repoQuery(checkID int64) repo.ListQuery { return repo.ListQuery{CheckIDs: []int64{checkID}} }

func TestConsole_RootRedirectsToFirstResource(t *testing.T) {
	f := setup(t)
	rec := httptest.NewRecorder()
	f.console.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/ui/latestresults" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestConsole_CreateThenListShowsRecord(t *testing.T) {
	f := setup(t)
	rec := f.post(t, "/checkdefinitions/create", url.Values{
		"url":            {"https://example.com/health"},
		"frequency":      {"60"},
		"expectedStatus": {"200"},
		"expectedString": {"ok"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create: want 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/ui/checkdefinitions?notice=created" {
		t.Fatalf("redirect = %q", loc)
	}

	code, body := f.get(t, "/checkdefinitions?notice=created")
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	for _, want := range []string{"Element created", "https://example.com/health", "URL Checks", `class="clickable"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("list missing %q:\n%s", want, body)
		}
	}
}

func TestConsole_InvalidEditMakesNoBackendCall(t *testing.T) {
	f := setup(t)
	c := f.seedCheck(t, "https://example.com")
	before := f.calls.Load()

	rec := f.post(t, "/checkdefinitions/"+itoa(c.ID), url.Values{
		"url":            {""},
		"frequency":      {"30"},
		"expectedStatus": {"200"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Required") {
		t.Fatalf("missing field error:\n%s", rec.Body.String())
	}
	if n := f.calls.Load() - before; n != 0 {
		t.Fatalf("expected no backend call, got %d", n)
	}
	got, err := f.store.GetCheck(context.Background(), c.ID)
	if err != nil || got.URL != "https://example.com" {
		t.Fatalf("record changed: %+v %v", got, err)
	}
}

func TestConsole_BackendRejectionKeepsInput(t *testing.T) {
	f := setup(t)
	f.seedCheck(t, "https://dup.example.com")

	rec := f.post(t, "/checkdefinitions/create", url.Values{
		"url":            {"https://dup.example.com"},
		"frequency":      {"45"},
		"expectedStatus": {"204"},
		"expectedString": {"pong"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"a check for this url already exists", `value="45"`, `value="pong"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("form missing %q:\n%s", want, body)
		}
	}
}

func TestConsole_URLContainsFilter(t *testing.T) {
	f := setup(t)
	f.seedCheck(t, "https://example.com")
	f.seedCheck(t, "https://other.org")

	_, body := f.get(t, "/checkdefinitions?urlcontains=EXAMPLE")
	if !strings.Contains(body, "https://example.com") || strings.Contains(body, "https://other.org") {
		t.Fatalf("filter not applied:\n%s", body)
	}
}

func TestConsole_CheckListShowsAddressesPerRow(t *testing.T) {
	f := setup(t)
	f.seedCheck(t, "https://a.example.com", "ops@example.com", "dev@example.com")
	f.seedCheck(t, "https://b.example.com")

	_, body := f.get(t, "/checkdefinitions")
	for _, want := range []string{"<li>ops@example.com</li>", "<li>dev@example.com</li>", "E-mail Addresses"} {
		if !strings.Contains(body, want) {
			t.Fatalf("list missing %q:\n%s", want, body)
		}
	}
}

func TestConsole_AddressListResolvesCheckURL(t *testing.T) {
	f := setup(t)
	c := f.seedCheck(t, "https://ref.example.com", "ops@example.com")

	_, body := f.get(t, "/notificationaddresses")
	if !strings.Contains(body, "https://ref.example.com") {
		t.Fatalf("reference not resolved:\n%s", body)
	}
	if !strings.Contains(body, "/ui/checkdefinitions/"+itoa(c.ID)) {
		t.Fatalf("reference should link to the check:\n%s", body)
	}
}

func TestConsole_LatestResultsOneRowPerCheck(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.seedCheck(t, "https://a.example.com")
	f.seedCheck(t, "https://b.example.com")
	now := time.Now().UTC()
	for i, st := range []string{domain.StateSuccess, domain.StateFailure} {
		r := domain.CheckResult{CheckID: a.ID, TimeChecked: now.Add(time.Duration(i) * time.Second), StatusCode: 200, State: st}
		if err := f.store.AppendResult(ctx, &r); err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}

	_, body := f.get(t, "/latestresults")
	if n := strings.Count(body, "<tr>\n"); n != 3 { // header + two checks
		t.Fatalf("want 2 data rows, got %d:\n%s", n-1, body)
	}
	if !strings.Contains(body, domain.StateFailure) || strings.Contains(body, domain.StateSuccess) {
		t.Fatalf("lastState should be the newest result:\n%s", body)
	}
	for _, want := range []string{"30 seconds", "None"} {
		if !strings.Contains(body, want) {
			t.Fatalf("latest missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, `class="clickable"`) {
		t.Fatalf("latest results rows must not be clickable")
	}
}

func TestConsole_ResultsAreReadOnly(t *testing.T) {
	f := setup(t)
	c := f.seedCheck(t, "https://a.example.com")
	r := domain.CheckResult{CheckID: c.ID, TimeChecked: time.Now().UTC(), StatusCode: 500, State: domain.StateFailure}
	if err := f.store.AppendResult(context.Background(), &r); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	code, body := f.get(t, "/checkresults")
	if code != http.StatusOK || !strings.Contains(body, "https://a.example.com") {
		t.Fatalf("list: %d\n%s", code, body)
	}
	if strings.Contains(body, "Delete") || strings.Contains(body, ">Create<") || strings.Contains(body, `class="clickable"`) {
		t.Fatalf("results list must carry no controls:\n%s", body)
	}
	if code, _ := f.get(t, "/checkresults/"+itoa(r.ID)); code != http.StatusNotFound {
		t.Fatalf("edit on read-only resource: want 404 got %d", code)
	}
	if rec := f.post(t, "/checkresults/create", url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("create on read-only resource: want 404 got %d", rec.Code)
	}
}

func TestConsole_EditEmbedsAddressesAndDeleteReturns(t *testing.T) {
	f := setup(t)
	c := f.seedCheck(t, "https://a.example.com", "ops@example.com")
	addrs, _, err := f.store.ListAddresses(context.Background(), repoQuery(c.ID))
	if err != nil || len(addrs) != 1 {
		t.Fatalf("ListAddresses: %v %d", err, len(addrs))
	}

	code, body := f.get(t, "/checkdefinitions/"+itoa(c.ID))
	if code != http.StatusOK {
		t.Fatalf("edit: %d", code)
	}
	for _, want := range []string{"Edit URL Check Definition", "ops@example.com", "Add a new e-mail address", "checkId=" + itoa(c.ID)} {
		if !strings.Contains(body, want) {
			t.Fatalf("edit missing %q:\n%s", want, body)
		}
	}

	here := "/ui/checkdefinitions/" + itoa(c.ID)
	rec := f.post(t, "/notificationaddresses/"+itoa(addrs[0].ID)+"/delete", url.Values{"redirect": {here}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != here+"?notice=deleted" {
		t.Fatalf("delete: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, err := f.store.GetAddress(context.Background(), addrs[0].ID); err == nil {
		t.Fatalf("address should be gone")
	}
}

func TestConsole_AddressCreateOffersChecks(t *testing.T) {
	f := setup(t)
	c := f.seedCheck(t, "https://a.example.com")

	code, body := f.get(t, "/notificationaddresses/create?checkId="+itoa(c.ID))
	if code != http.StatusOK {
		t.Fatalf("create form: %d", code)
	}
	if !strings.Contains(body, `<option value="`+itoa(c.ID)+`" selected>https://a.example.com</option>`) {
		t.Fatalf("check should be preselected:\n%s", body)
	}

	rec := f.post(t, "/notificationaddresses/create", url.Values{"checkId": {itoa(c.ID)}, "emailAddress": {""}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty e-mail: want 422 got %d", rec.Code)
	}
	rec = f.post(t, "/notificationaddresses/create", url.Values{"checkId": {itoa(c.ID)}, "emailAddress": {"ops@example.com"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create: want 303 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConsole_UnreachableBackendShowsNotice(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c, err := New(zap.NewNop(), Options{APIBase: base, Prefix: "/ui"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkdefinitions", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "Could not reach the server") {
		t.Fatalf("got %d:\n%s", rec.Code, body)
	}
}

func TestConsole_RequiresAPIBase(t *testing.T) {
	if _, err := New(zap.NewNop(), Options{Prefix: "/ui"}); err == nil {
		t.Fatalf("a console without an api base should be rejected")
	}
}

func TestConsole_IgnoresRequestHost(t *testing.T) {
	f := setup(t)
	f.seedCheck(t, "https://real.example.com")

	var foreign atomic.Int64
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreign.Add(1)
		w.Header().Set("X-Total-Count", "1")
		w.Write([]byte(`[{"id":1,"url":"https://planted.example.com"}]`))
	}))
	defer other.Close()

	req := httptest.NewRequest(http.MethodGet, "/checkdefinitions", nil)
	req.Host = strings.TrimPrefix(other.URL, "http://")
	req.Header.Set("X-Forwarded-Proto", "http")
	rec := httptest.NewRecorder()
	f.console.ServeHTTP(rec, req)

	if n := foreign.Load(); n != 0 {
		t.Fatalf("the Host header must not pick the backend; foreign server got %d requests", n)
	}
	body := rec.Body.String()
	if strings.Contains(body, "planted.example.com") || !strings.Contains(body, "https://real.example.com") {
		t.Fatalf("page should show the configured backend's data:\n%s", body)
	}
}

func TestConsole_MalformedFormIsBadRequest(t *testing.T) {
	f := setup(t)
	before := f.calls.Load()

	req := httptest.NewRequest(http.MethodPost, "/checkdefinitions/create", strings.NewReader("url=%zz&frequency=30"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.console.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: want 400 got %d", rec.Code)
	}

	big := "url=" + strings.Repeat("a", maxFormBody+1)
	req = httptest.NewRequest(http.MethodPost, "/checkdefinitions/create", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	f.console.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: want 400 got %d", rec.Code)
	}
	if n := f.calls.Load() - before; n != 0 {
		t.Fatalf("rejected submissions should not reach the backend, got %d calls", n)
	}
}

func TestConsole_ErrorBannerNotTakenFromURL(t *testing.T) {
	f := setup(t)
	_, body := f.get(t, "/checkdefinitions?error=Your+session+expired")
	if strings.Contains(body, "Your session expired") {
		t.Fatalf("error banner must not echo the query string:\n%s", body)
	}
}

func TestConsole_FailedDeleteShowsBackendMessageOnce(t *testing.T) {
	f := setup(t)
	rec := f.post(t, "/notificationaddresses/999/delete", url.Values{"redirect": {"/ui/notificationaddresses"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/ui/notificationaddresses" {
		t.Fatalf("delete: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	var flash *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == flashCookie {
			flash = ck
		}
	}
	if flash == nil {
		t.Fatalf("failed delete should leave a message for the next page")
	}

	req := httptest.NewRequest(http.MethodGet, "/notificationaddresses", nil)
	req.AddCookie(flash)
	next := httptest.NewRecorder()
	f.console.ServeHTTP(next, req)
	if !strings.Contains(next.Body.String(), `role="alert">not found<`) {
		t.Fatalf("backend message missing from banner:\n%s", next.Body.String())
	}
	cleared := false
	for _, ck := range next.Result().Cookies() {
		if ck.Name == flashCookie && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("message should be cleared once shown")
	}
}
