package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"feestplanner/internal/providers"
)

type turnerFunc func(ctx context.Context, text string) (string, error)

func (f turnerFunc) SendTurn(ctx context.Context, text string) (string, error) { return f(ctx, text) }

func TestBridgeStartsWithGreeting(t *testing.T) {
	b := NewBridge(BridgeConfig{Turner: turnerFunc(nil), Logger: zerolog.Nop()})
	tr := b.Transcript()
	if len(tr) != 1 || tr[0].Role != providers.RoleModel || tr[0].Text != Greeting {
		t.Fatalf("unexpected transcript %+v", tr)
	}
}

func TestBridgeSendAppendsBothMessages(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var got string
	b := NewBridge(BridgeConfig{
		Turner: turnerFunc(func(_ context.Context, text string) (string, error) {
			got = text
			return "Een DJ kost gemiddeld €450 (schatting).", nil
		}),
		Logger: zerolog.Nop(),
	})

	reply, err := b.Send(context.Background(), "Wat kost een DJ?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "Wat kost een DJ?" {
		t.Fatalf("turner received %q", got)
	}
	if reply.Fallback || reply.Text != "Een DJ kost gemiddeld €450 (schatting)." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	tr := b.Transcript()
	if len(tr) != 3 || tr[1].Role != providers.RoleUser || tr[2].Role != providers.RoleModel {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if b.Busy() {
		t.Fatalf("busy flag not cleared")
	}
}

func TestBridgeRejectsBlank(t *testing.T) {
	calls := 0
	b := NewBridge(BridgeConfig{Turner: turnerFunc(func(context.Context, string) (string, error) {
		calls++
		return "x", nil
	}), Logger: zerolog.Nop()})

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := b.Send(context.Background(), text); !errors.Is(err, ErrBlank) {
			t.Fatalf("%q: expected ErrBlank, got %v", text, err)
		}
	}
	if calls != 0 || len(b.Transcript()) != 1 {
		t.Fatalf("blank sends must be no-ops")
	}
}

func TestBridgeRejectsConcurrentSend(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entered := make(chan struct{})
	release := make(chan struct{})
	b := NewBridge(BridgeConfig{
		Turner: turnerFunc(func(context.Context, string) (string, error) {
			close(entered)
			<-release
			return "klaar", nil
		}),
		Logger: zerolog.Nop(),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := b.Send(context.Background(), "eerste"); err != nil {
			t.Errorf("first send: %v", err)
		}
	}()

	<-entered
	if !b.Busy() {
		t.Fatalf("expected busy while turn runs")
	}
	if _, err := b.Send(context.Background(), "tweede"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	wg.Wait()

	tr := b.Transcript()
	if len(tr) != 3 || tr[1].Text != "eerste" {
		t.Fatalf("rejected send leaked into transcript: %+v", tr)
	}
}

func TestBridgeFallbacks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	failing := NewBridge(BridgeConfig{Turner: turnerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("503")
	}), Logger: zerolog.Nop()})
	reply, err := failing.Send(context.Background(), "hallo")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !reply.Fallback || reply.Text != FallbackError {
		t.Fatalf("expected error fallback, got %+v", reply)
	}

	empty := NewBridge(BridgeConfig{Turner: turnerFunc(func(context.Context, string) (string, error) {
		return "  ", nil
	}), Logger: zerolog.Nop()})
	reply, err = empty.Send(context.Background(), "hallo")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !reply.Fallback || reply.Text != FallbackEmpty {
		t.Fatalf("expected empty fallback, got %+v", reply)
	}
}

func TestBridgeTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewBridge(BridgeConfig{
		Turner: turnerFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Timeout: 20 * time.Millisecond,
		Logger:  zerolog.Nop(),
	})
	start := time.Now()
	reply, err := b.Send(context.Background(), "ben je daar?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Text != FallbackError {
		t.Fatalf("expected fallback after timeout, got %q", reply.Text)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
	if b.Busy() {
		t.Fatalf("busy flag stuck after timeout")
	}
}
