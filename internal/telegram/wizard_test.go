package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func feed(t *testing.T, w *wizardState, inputs ...string) bool {
	t.Helper()
	var done bool
	for _, in := range inputs {
		var notice string
		var err error
		done, notice, err = w.advance(in)
		if err != nil {
			t.Fatalf("step %s rejected %q: %s (%v)", w.Step, in, notice, err)
		}
	}
	return done
}

func TestVendorWizardBuildsDraft(t *testing.T) {
	w := newVendorWizard()
	done := feed(t, &w, "Henna Nour", "ziana & visagie", "Utrecht", "Henna voor de hele familie", "350,50", "-", "info@hennanour.nl", "-")
	if !done {
		t.Fatalf("expected wizard to finish, step=%s", w.Step)
	}
	v, err := w.Draft.Build(time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if v.Category != catalog.CategoryZiana || v.PriceStart != 350.5 || v.Phone != "" || v.Email != "info@hennanour.nl" {
		t.Fatalf("unexpected vendor %+v", v)
	}
	if !v.IsOwner || v.Rating != 5 {
		t.Fatalf("new vendors are owned and start at 5.0: %+v", v)
	}
}

func TestVendorWizardCustomCategory(t *testing.T) {
	w := newVendorWizard()
	feed(t, &w, "Taarten van Salma", "Bruidstaarten")
	if !w.Draft.UseCustom || w.Draft.CustomCategory != "Bruidstaarten" {
		t.Fatalf("expected custom category, got %+v", w.Draft)
	}
}

func TestVendorWizardRejectsInvalidSteps(t *testing.T) {
	w := newVendorWizard()
	if _, notice, err := w.advance("  "); !errors.Is(err, errWizardInput) || notice == "" {
		t.Fatalf("blank name must be rejected, got %q %v", notice, err)
	}
	if w.Step != stepName {
		t.Fatalf("rejected input must not advance, step=%s", w.Step)
	}
	feed(t, &w, "Zaal Noor", catalog.CategoryVenue, "Den Haag", "Zaal voor 400 gasten")
	if _, _, err := w.advance("-100"); !errors.Is(err, errWizardInput) {
		t.Fatalf("negative price must be rejected, got %v", err)
	}
	if w.Step != stepPrice {
		t.Fatalf("expected to stay on price, got %s", w.Step)
	}
}

func TestContactWizard(t *testing.T) {
	w := newContactWizard("3")
	if _, _, err := w.advance("Salma"); err != nil {
		t.Fatalf("name: %v", err)
	}
	if _, _, err := w.advance("Salma <salma@example.nl>"); !errors.Is(err, interaction.ErrInvalidEmail) {
		t.Fatalf("display-name addresses must be rejected, got %v", err)
	}
	if _, _, err := w.advance("not-an-email"); !errors.Is(err, interaction.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	done := feed(t, &w, "salma@example.nl", "Zijn jullie vrij op 12 juni?")
	if !done {
		t.Fatalf("expected contact wizard to finish")
	}
	want := interaction.Form{Name: "Salma", Email: "salma@example.nl", Message: "Zijn jullie vrij op 12 juni?"}
	if w.Form != want || w.VendorID != "3" {
		t.Fatalf("unexpected form %+v", w)
	}
	if err := w.Form.Validate(); err != nil {
		t.Fatalf("collected form must validate: %v", err)
	}
}

func TestWizardStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := newWizardStore(rdb, time.Minute)
	ctx := context.Background()

	if got, err := store.Get(ctx, 5); err != nil || got != nil {
		t.Fatalf("expected empty store, got %+v %v", got, err)
	}
	w := newContactWizard("2")
	w.Form.Name = "Yasmina"
	w.Step = stepEmail
	if err := store.Set(ctx, 5, w); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, 5)
	if err != nil || got == nil {
		t.Fatalf("get: %+v %v", got, err)
	}
	if got.Kind != wizardContact || got.Step != stepEmail || got.Form.Name != "Yasmina" {
		t.Fatalf("unexpected state %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := store.Get(ctx, 5); got != nil {
		t.Fatalf("expected wizard to expire")
	}
}

func TestViewStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	views := newViewStore(rdb, time.Hour, zerolog.Nop())
	ctx := context.Background()

	if got := views.Get(ctx, 1); got != catalog.DefaultQuery() {
		t.Fatalf("expected default query, got %+v", got)
	}
	q, err := views.Update(ctx, 1, func(q *catalog.Query) {
		q.Search = "henna"
		q.MaxPrice = 900
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := views.Get(ctx, 1); got != q || got.Category != catalog.AllCategories {
		t.Fatalf("unexpected stored query %+v", got)
	}
	if got := views.Get(ctx, 2); got != catalog.DefaultQuery() {
		t.Fatalf("views leaked across users: %+v", got)
	}

	mr.Set("feestplanner:view:3", "{corrupt")
	if got := views.Get(ctx, 3); got != catalog.DefaultQuery() {
		t.Fatalf("corrupt view must fall back to default, got %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if got := views.Get(ctx, 1); got != catalog.DefaultQuery() {
		t.Fatalf("expected view to expire, got %+v", got)
	}
}
