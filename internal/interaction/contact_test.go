package interaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feestplanner/internal/catalog"
	"feestplanner/internal/crypto"
	"feestplanner/internal/storage"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type timerFactory struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (tf *timerFactory) after(d time.Duration, f func()) Timer {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	t := &fakeTimer{d: d, fire: f}
	tf.timers = append(tf.timers, t)
	return t
}

type stubSubmitter struct {
	result Result
	calls  int
	last   Form
}

func (s *stubSubmitter) Submit(_ context.Context, _ string, _ catalog.Vendor, f Form) Result {
	s.calls++
	s.last = f
	return s.result
}

var validForm = Form{Name: "Samira", Email: "samira@example.nl", Message: "Zijn jullie vrij op 12 juni?"}

func TestContactHappyPathResetsOnTimer(t *testing.T) {
	timers := &timerFactory{}
	sub := &stubSubmitter{result: Result{Status: StatusSent, Reference: "1"}}
	resets := 0
	c := NewContact(ContactConfig{
		ClientID:   "tg:1",
		Vendor:     catalog.Vendor{ID: "3", Name: "DJ Yassin"},
		Submitter:  sub,
		ResetAfter: 2 * time.Second,
		OnReset:    func() { resets++ },
		AfterFunc:  timers.after,
	})

	if err := c.Edit(validForm); err != nil {
		t.Fatalf("edit: %v", err)
	}
	res, err := c.Submit(context.Background())
	if err != nil || res.Status != StatusSent {
		t.Fatalf("submit: %+v %v", res, err)
	}
	if c.Phase() != PhaseSent {
		t.Fatalf("expected sent, got %s", c.Phase())
	}
	if err := c.Edit(Form{}); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("edits while sent must be rejected, got %v", err)
	}
	if len(timers.timers) != 1 || timers.timers[0].d != 2*time.Second {
		t.Fatalf("expected exactly one 2s timer, got %+v", timers.timers)
	}

	timers.timers[0].fire()
	if c.Phase() != PhaseEditing || c.Form() != (Form{}) {
		t.Fatalf("expected reset editing state, got %s %+v", c.Phase(), c.Form())
	}
	if resets != 1 {
		t.Fatalf("expected one reset callback, got %d", resets)
	}
}

func TestContactFailureKeepsForm(t *testing.T) {
	timers := &timerFactory{}
	sub := &stubSubmitter{result: Result{Status: StatusFailed, Err: errors.New("db down")}}
	c := NewContact(ContactConfig{ClientID: "tg:1", Vendor: catalog.Vendor{ID: "3"}, Submitter: sub, AfterFunc: timers.after})

	_ = c.Edit(validForm)
	res, err := c.Submit(context.Background())
	if err != nil || res.Status != StatusFailed {
		t.Fatalf("expected failed result, got %+v %v", res, err)
	}
	if c.Phase() != PhaseEditing || c.Form() != validForm {
		t.Fatalf("failure must return to editing with form intact")
	}
	if len(timers.timers) != 0 {
		t.Fatalf("no reset timer on failure")
	}
}

func TestContactValidation(t *testing.T) {
	sub := &stubSubmitter{result: Result{Status: StatusSent}}
	c := NewContact(ContactConfig{Submitter: sub, AfterFunc: (&timerFactory{}).after})

	cases := []struct {
		form Form
		want error
	}{
		{Form{Email: "a@b.nl", Message: "m"}, ErrMissingContactName},
		{Form{Name: "n", Email: "geen-adres", Message: "m"}, ErrInvalidEmail},
		{Form{Name: "n", Email: "Naam <a@b.nl>", Message: "m"}, ErrInvalidEmail},
		{Form{Name: "n", Email: "a@b.nl", Message: "   "}, ErrMissingMessage},
	}
	for _, tc := range cases {
		_ = c.Edit(tc.form)
		if _, err := c.Submit(context.Background()); !errors.Is(err, tc.want) {
			t.Fatalf("form %+v: expected %v, got %v", tc.form, tc.want, err)
		}
		if c.Phase() != PhaseEditing {
			t.Fatalf("validation failure must stay in editing")
		}
	}
	if sub.calls != 0 {
		t.Fatalf("invalid forms must not be submitted")
	}
}

func TestContactCloseStopsTimer(t *testing.T) {
	timers := &timerFactory{}
	c := NewContact(ContactConfig{Submitter: &stubSubmitter{result: Result{Status: StatusSent}}, AfterFunc: timers.after})
	_ = c.Edit(validForm)
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.Close()
	if !timers.timers[0].stopped {
		t.Fatalf("expected timer stopped")
	}
}

func TestOutboxSubmitterSealsPayload(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, "sqlite", ":memory:", true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ring, err := crypto.NewKeyring("k1", map[string][]byte{"k1": make([]byte, 32)})
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}

	sub := &OutboxSubmitter{Outbox: store, Keyring: ring, Logger: zerolog.Nop()}
	vendor := catalog.Vendor{ID: "3", Name: "DJ Yassin", Email: "bookings@djyassin.nl"}
	res := sub.Submit(ctx, "tg:42", vendor, validForm)
	if res.Status != StatusSent || res.Reference == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	rows, err := store.ListContactRequests(ctx, storage.ContactPending, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].VendorEmail != "bookings@djyassin.nl" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if strings.Contains(rows[0].EncPayload, "Samira") {
		t.Fatalf("payload stored in plaintext")
	}
	var payload outboxPayload
	if err := ring.OpenJSON(rows[0].EncPayload, "tg:42", &payload); err != nil {
		t.Fatalf("open payload: %v", err)
	}
	if payload.Form != validForm || payload.VendorID != "3" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	n, err := store.CountActions(ctx, "tg:42", "contact_request")
	if err != nil || n != 1 {
		t.Fatalf("expected one audit entry, got %d %v", n, err)
	}
}

func TestThankYouText(t *testing.T) {
	got := ThankYouText(catalog.Vendor{Name: "DJ Yassin"})
	if got != "Bedankt voor je interesse in DJ Yassin. Ze nemen spoedig contact met je op." {
		t.Fatalf("unexpected text %q", got)
	}
}
