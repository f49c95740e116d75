package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"feestplanner/internal/catalog"
	"feestplanner/internal/kv"
)

func TestLinkerRoundTrip(t *testing.T) {
	cases := []Linker{
		{BaseURL: "https://marokkaansfeest.nl/"},
		{BaseURL: "https://marokkaansfeest.nl/app?lang=nl"},
		{BotUsername: "@feestplanner_bot"},
	}
	for _, l := range cases {
		link := l.Link("0190f3c2-aaaa-7bbb-8ccc-123456789abc")
		id, ok := ParseShared(link)
		if !ok || id != "0190f3c2-aaaa-7bbb-8ccc-123456789abc" {
			t.Fatalf("linker %+v: %s parsed to %q %v", l, link, id, ok)
		}
	}
	if got := (Linker{BotUsername: "feestplanner_bot"}).Link("7"); got != "https://t.me/feestplanner_bot?start=v_7" {
		t.Fatalf("unexpected telegram link %s", got)
	}
}

func TestParseSharedForms(t *testing.T) {
	cases := map[string]string{
		"v_3":                        "3",
		"https://example.nl/#/?id=5": "5",
		"https://example.nl/?id=6":   "6",
		"https://t.me/bot?start=v_2": "2",
	}
	for in, want := range cases {
		if got, ok := ParseShared(in); !ok || got != want {
			t.Fatalf("%s: expected %s, got %q %v", in, want, got, ok)
		}
	}
	for _, bad := range []string{"", "v_", "https://example.nl/", "hallo"} {
		if _, ok := ParseShared(bad); ok {
			t.Fatalf("%q must not parse", bad)
		}
	}
}

func TestShareMessage(t *testing.T) {
	msg := Linker{BaseURL: "https://example.nl/"}.Message(catalog.Vendor{ID: "3", Name: "DJ Yassin"})
	if msg.Title != "DJ Yassin op MarokkaansFeest" {
		t.Fatalf("title %q", msg.Title)
	}
	if msg.Text != "Ik heb DJ Yassin gevonden op MarokkaansFeest! Bekijk het hier:" {
		t.Fatalf("text %q", msg.Text)
	}
	if msg.URL != "https://example.nl/?id=3" {
		t.Fatalf("url %q", msg.URL)
	}
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	a := kv.New(kv.NewMemoryBackend(), zerolog.Nop())
	store, err := catalog.Open(ctx, a, catalog.DefaultSeed())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}

	if _, err := Delete(ctx, store, "1", true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := Delete(ctx, store, "7", false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if _, ok := store.Get("7"); !ok {
		t.Fatalf("unconfirmed delete removed vendor")
	}
	if _, err := Delete(ctx, store, "missing", true); !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
	v, err := Delete(ctx, store, "7", true)
	if err != nil || v.Name != "Dakka Fantasia" {
		t.Fatalf("delete: %+v %v", v, err)
	}
	if _, ok := store.Get("7"); ok {
		t.Fatalf("vendor still present")
	}
}
