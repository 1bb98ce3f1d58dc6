package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	if err := store.EnsureSchema(ctx, false); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// Use a unique URL per run to avoid UNIQUE(url) collisions with previous runs.
func uniqueURL(name string) string {
	return fmt.Sprintf("https://example.com/%s-%d", name, time.Now().UTC().UnixNano())
}

func TestPostgresStore_CheckLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	c := &domain.CheckDefinition{
		URL:            uniqueURL("lifecycle"),
		Frequency:      30,
		ExpectedStatus: 200,
		EmailAddresses: []domain.NotificationAddress{{EmailAddress: "ops@example.com"}},
	}
	if err := store.CreateCheck(ctx, c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	if c.ID == 0 || len(c.EmailAddresses) != 1 || c.EmailAddresses[0].ID == 0 {
		t.Fatalf("ids not assigned: %+v", c)
	}

	dup := &domain.CheckDefinition{URL: c.URL, Frequency: 30, ExpectedStatus: 200}
	if err := store.CreateCheck(ctx, dup); !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("duplicate url: want ErrConflict, got %v", err)
	}

	list, total, err := store.ListChecks(ctx, repo.ListQuery{URLContains: "lifecycle"})
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	found := false
	for _, x := range list {
		if x.ID == c.ID {
			found = len(x.EmailAddresses) == 1
		}
	}
	if !found || total < 1 {
		t.Fatalf("created check not in filtered list; total=%d", total)
	}

	if err := store.AppendResult(ctx, &domain.CheckResult{CheckID: c.ID, StatusCode: 200, State: domain.StateSuccess}); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	latest, err := store.GetLatest(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.LastState != domain.StateSuccess || latest.LastChecked == nil {
		t.Fatalf("unexpected latest row: %+v", latest)
	}

	if err := store.DeleteCheck(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCheck: %v", err)
	}
	_, total, _ = store.ListResults(ctx, repo.ListQuery{CheckIDs: []int64{c.ID}})
	if total != 0 {
		t.Fatalf("results not cascaded: %d", total)
	}
	if _, err := store.GetCheck(ctx, c.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresStore_NeverRunCheckHasNullLatest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	c := &domain.CheckDefinition{URL: uniqueURL("idle"), Frequency: 60, ExpectedStatus: 200}
	if err := store.CreateCheck(ctx, c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	defer func() { _ = store.DeleteCheck(ctx, c.ID) }()

	lr, err := store.GetLatest(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if lr.LastChecked != nil || lr.LastState != "" {
		t.Fatalf("expected empty latest, got %+v", lr)
	}
}

func TestTail_NullsSortAsSmallest(t *testing.T) {
	asc := tail(repo.ListQuery{Order: "ASC"}, "l.time_checked", "c.id")
	if !strings.Contains(asc, "l.time_checked ASC NULLS FIRST, c.id ASC") {
		t.Fatalf("ASC order clause: %q", asc)
	}
	desc := tail(repo.ListQuery{Order: "DESC", Start: 10, End: 20}, "l.time_checked", "c.id")
	if !strings.Contains(desc, "l.time_checked DESC NULLS LAST, c.id DESC") ||
		!strings.Contains(desc, "LIMIT 10") || !strings.Contains(desc, "OFFSET 10") {
		t.Fatalf("DESC order clause: %q", desc)
	}
}

func TestPostgresStore_UpdateWithoutAddressesReturnsEmptySlice(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	c := &domain.CheckDefinition{URL: uniqueURL("update"), Frequency: 60, ExpectedStatus: 200}
	if err := store.CreateCheck(ctx, c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	defer func() { _ = store.DeleteCheck(ctx, c.ID) }()

	c.Frequency = 120
	c.EmailAddresses = nil
	if err := store.UpdateCheck(ctx, c); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	if c.EmailAddresses == nil {
		t.Fatalf("emailAddresses should be empty, not nil")
	}
}

func TestPostgresStore_LatestSortsNeverRunAsSmallest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	ran := &domain.CheckDefinition{URL: uniqueURL("ran"), Frequency: 60, ExpectedStatus: 200}
	idle := &domain.CheckDefinition{URL: uniqueURL("idle"), Frequency: 60, ExpectedStatus: 200}
	for _, c := range []*domain.CheckDefinition{ran, idle} {
		if err := store.CreateCheck(ctx, c); err != nil {
			t.Fatalf("CreateCheck: %v", err)
		}
		defer func(id int64) { _ = store.DeleteCheck(ctx, id) }(c.ID)
	}
	if err := store.AppendResult(ctx, &domain.CheckResult{CheckID: ran.ID, TimeChecked: time.Now().UTC(), StatusCode: 200, State: domain.StateSuccess}); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	ids := []int64{ran.ID, idle.ID}
	asc, _, err := store.ListLatest(ctx, repo.ListQuery{IDs: ids, Sort: "lastChecked", Order: "ASC"})
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	if len(asc) != 2 || asc[0].ID != idle.ID {
		t.Fatalf("ASC: never-run check should come first: %+v", asc)
	}
	desc, _, _ := store.ListLatest(ctx, repo.ListQuery{IDs: ids, Sort: "lastChecked", Order: "DESC"})
	if len(desc) != 2 || desc[1].ID != idle.ID {
		t.Fatalf("DESC: never-run check should come last: %+v", desc)
	}
}
