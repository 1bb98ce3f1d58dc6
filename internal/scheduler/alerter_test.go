package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo/memory"
)

// ---- shared helpers ----

type memMailer struct {
	mu   sync.Mutex
	sent [][]string
}

func (m *memMailer) Mail(ctx context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *memMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	return nil
}

func (m *memNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titles)
}

func seedCheck(t *testing.T, s *memory.Store, url string, emails ...string) *domain.CheckDefinition {
	t.Helper()
	c := &domain.CheckDefinition{URL: url, Frequency: 1, ExpectedStatus: 200}
	for _, e := range emails {
		c.EmailAddresses = append(c.EmailAddresses, domain.NotificationAddress{EmailAddress: e})
	}
	if err := s.CreateCheck(context.Background(), c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	return c
}

func result(state string) domain.CheckResult {
	return domain.CheckResult{State: state, StatusCode: 500, TimeChecked: time.Now().UTC()}
}

// ---- tests ----

func TestAlerter_MailsRecipientsOnEveryFailure(t *testing.T) {
	store := memory.New()
	c := seedCheck(t, store, "https://a.example.com", "ops@example.com", "dev@example.com")
	mailer := &memMailer{}
	admin := &memNotifier{}
	al := NewAlerter(zap.NewNop(), store, mailer, admin, AlerterConfig{MaxFailures: 3})

	for i := 0; i < 2; i++ {
		if err := al.Observe(context.Background(), *c, result(domain.StateFailure)); err != nil {
			t.Fatal(err)
		}
	}
	if mailer.count() != 2 {
		t.Fatalf("want 2 recipient mails, got %d", mailer.count())
	}
	if len(mailer.sent[0]) != 2 {
		t.Fatalf("want both recipients addressed, got %v", mailer.sent[0])
	}
	if admin.count() != 0 {
		t.Fatalf("admin alerted too early")
	}
}

func TestAlerter_AdminAlertExactlyAtMaxFailures(t *testing.T) {
	store := memory.New()
	c := seedCheck(t, store, "https://b.example.com")
	admin := &memNotifier{}
	al := NewAlerter(zap.NewNop(), store, &memMailer{}, admin, AlerterConfig{MaxFailures: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = al.Observe(ctx, *c, result(domain.StateFailure))
	}
	if admin.count() != 1 {
		t.Fatalf("want exactly one admin alert, got %d", admin.count())
	}
	rec, _ := store.GetAlert(ctx, c.ID)
	if rec == nil || rec.Failures != 5 || rec.LastSentAt == nil {
		t.Fatalf("unexpected alert record: %+v", rec)
	}

	// success resets, so three more failures escalate again
	_ = al.Observe(ctx, *c, result(domain.StateSuccess))
	rec, _ = store.GetAlert(ctx, c.ID)
	if rec.Failures != 0 {
		t.Fatalf("success should reset failures, got %d", rec.Failures)
	}
	for i := 0; i < 3; i++ {
		_ = al.Observe(ctx, *c, result(domain.StateFailure))
	}
	if admin.count() != 2 {
		t.Fatalf("want second admin alert after reset, got %d", admin.count())
	}
}

func TestAlerter_NoMailWithoutRecipients(t *testing.T) {
	store := memory.New()
	c := seedCheck(t, store, "https://c.example.com")
	mailer := &memMailer{}
	al := NewAlerter(zap.NewNop(), store, mailer, &memNotifier{}, AlerterConfig{})
	_ = al.Observe(context.Background(), *c, result(domain.StateFailure))
	if mailer.count() != 0 {
		t.Fatalf("no recipients, no mail; got %d", mailer.count())
	}
}
