package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feestplanner/internal/providers"
)

type Message struct {
	Role providers.Role
	Text string
	At   time.Time
}

// Reply is the model message appended by Send. Fallback is set when the text
// is one of the fixed apology strings instead of a generated answer.
type Reply struct {
	Message
	Fallback bool
}

type BridgeConfig struct {
	Turner  Turner
	Timeout time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Bridge owns the chat transcript of one client and allows a single turn in
// flight.
type Bridge struct {
	turner  Turner
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	busy       bool
	transcript []Message
}

func NewBridge(cfg BridgeConfig) *Bridge {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Bridge{
		turner:     cfg.Turner,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		now:        now,
		transcript: []Message{{Role: providers.RoleModel, Text: Greeting, At: now()}},
	}
}

// Send appends text as a user message, runs one turn and appends the answer.
// Blank text and sends while a turn is running are rejected without touching
// the transcript.
func (b *Bridge) Send(ctx context.Context, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrBlank
	}
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return Reply{}, ErrBusy
	}
	b.busy = true
	b.transcript = append(b.transcript, Message{Role: providers.RoleUser, Text: text, At: b.now()})
	b.mu.Unlock()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	reply := Reply{}
	answer, err := b.turner.SendTurn(ctx, text)
	switch {
	case err != nil:
		b.logger.Error().Err(err).Msg("assistant turn failed")
		reply.Text, reply.Fallback = FallbackError, true
	case strings.TrimSpace(answer) == "":
		reply.Text, reply.Fallback = FallbackEmpty, true
	default:
		reply.Text = answer
	}
	reply.Role = providers.RoleModel

	b.mu.Lock()
	defer b.mu.Unlock()
	reply.At = b.now()
	b.transcript = append(b.transcript, reply.Message)
	b.busy = false
	return reply, nil
}

func (b *Bridge) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

func (b *Bridge) Transcript() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.transcript...)
}
