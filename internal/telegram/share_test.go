package telegram

import (
	"errors"
	"strings"
	"testing"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"feestplanner/internal/interaction"
	"feestplanner/internal/kv"
	"feestplanner/internal/metrics"
	"feestplanner/internal/planner"
)

func newShareService(t *testing.T) *Service {
	t.Helper()
	_, rdb := newTestRedis(t)
	backend := kv.NewMemoryBackend()
	m := metrics.New(prometheus.NewRegistry())
	plan := planner.New(planner.Config{
		Backends: func(string) kv.Backend { return backend },
		Logger:   zerolog.Nop(),
		Metrics:  m,
	})
	t.Cleanup(plan.Close)
	return NewService(Config{
		Planner: plan,
		Redis:   rdb,
		Linker:  interaction.Linker{BotUsername: "feestbot"},
		Logger:  zerolog.Nop(),
		Metrics: m,
	})
}

func TestShareMessageLooksUpVendorFirst(t *testing.T) {
	s := newShareService(t)
	ctx := &ext.Context{EffectiveUser: &gotgbot.User{Id: 1}}

	_, err := s.shareMessage(ctx, "99")
	if !errors.Is(err, planner.ErrVendorNotFound) {
		t.Fatalf("expected vendor not found, got %v", err)
	}
	if got := shareNotice(err); got != vendorGoneText {
		t.Fatalf("unknown vendor must not report a copied link, got %q", got)
	}

	msg, err := s.shareMessage(ctx, "3")
	if err != nil {
		t.Fatalf("share message: %v", err)
	}
	if !strings.Contains(msg.Title, "DJ Yassin") || msg.URL != "https://t.me/feestbot?start=v_3" {
		t.Fatalf("unexpected share message %+v", msg)
	}
	if got := shareNotice(nil); got != "Link gekopieerd!" {
		t.Fatalf("unexpected success notice %q", got)
	}
	if got := shareNotice(errors.New("redis down")); got != "Delen mislukt." {
		t.Fatalf("unexpected failure notice %q", got)
	}
}

func TestShareMessageRequiresUser(t *testing.T) {
	s := newShareService(t)
	if _, err := s.shareMessage(&ext.Context{}, "3"); err == nil {
		t.Fatalf("expected error without an effective user")
	}
}
