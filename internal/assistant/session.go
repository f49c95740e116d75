package assistant

import (
	"context"
	"sync"

	"feestplanner/internal/providers"
)

// Turner answers one user utterance. Conversation continuity is the
// implementation's concern.
type Turner interface {
	SendTurn(ctx context.Context, text string) (string, error)
}

type SessionConfig struct {
	Provider     providers.Provider
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	// MaxHistory caps the retained messages; 0 keeps everything. Odd values
	// are rounded down so the history always starts with a user message.
	MaxHistory int
}

// Session is a multi-turn conversation with one provider. Only successful
// turns are added to the history.
type Session struct {
	cfg     SessionConfig
	mu      sync.Mutex
	history []providers.Message
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = SystemInstruction
	}
	return &Session{cfg: cfg}
}

var _ Turner = (*Session)(nil)

func (s *Session) SendTurn(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.cfg.Provider.Chat(ctx, providers.ChatRequest{
		Model:        s.cfg.Model,
		SystemPrompt: s.cfg.SystemPrompt,
		History:      append([]providers.Message(nil), s.history...),
		UserPrompt:   text,
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if resp.Text != "" {
		s.history = append(s.history,
			providers.Message{Role: providers.RoleUser, Text: text},
			providers.Message{Role: providers.RoleModel, Text: resp.Text},
		)
		if limit := historyLimit(s.cfg.MaxHistory); limit > 0 && len(s.history) > limit {
			s.history = append([]providers.Message(nil), s.history[len(s.history)-limit:]...)
		}
	}
	return resp.Text, nil
}

// historyLimit keeps whole user/model pairs.
func historyLimit(n int) int {
	if n <= 0 {
		return 0
	}
	if n < 2 {
		return 2
	}
	return n &^ 1
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
