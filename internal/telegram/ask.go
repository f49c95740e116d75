package telegram

import (
	"context"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"feestplanner/internal/assistant"
	"feestplanner/internal/queue"
)

const (
	askUsage   = "Stel je vraag aan Samira: /ask <vraag>. In een privégesprek kun je ook gewoon een bericht sturen."
	busyNotice = "Samira is nog met je vorige vraag bezig. Even geduld."
)

func (s *Service) ask(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	text := strings.TrimSpace(commandRemainder(msg.GetText()))
	if text == "" {
		return s.reply(ctx, b, askUsage)
	}
	return s.enqueueTurn(ctx, b, text)
}

// enqueueTurn hands one user message to the assistant workers. A client has
// at most one turn in flight; further sends are rejected until the worker
// released the gate.
func (s *Service) enqueueTurn(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	if strings.TrimSpace(text) == "" {
		s.metrics.TurnsRejected.WithLabelValues("blank").Inc()
		return nil
	}
	cid, ok := clientID(ctx)
	if !ok || ctx.EffectiveChat == nil {
		return nil
	}
	if !s.allowRate(cid, b, ctx) {
		s.metrics.TurnsRejected.WithLabelValues("rate").Inc()
		return nil
	}

	token := ""
	if s.gate != nil {
		var err error
		token, err = s.gate.Acquire(context.Background(), cid)
		if err != nil {
			s.logger.Error().Err(err).Str("client_id", cid).Msg("busy gate unavailable")
			return s.reply(ctx, b, assistant.FallbackError)
		}
		if token == "" {
			s.metrics.TurnsRejected.WithLabelValues("busy").Inc()
			return s.reply(ctx, b, busyNotice)
		}
	}

	var messageID int64
	if ctx.EffectiveMessage != nil {
		messageID = ctx.EffectiveMessage.MessageId
	}
	job, err := s.queue.Enqueue(context.Background(), queue.TurnJob{
		ClientID:  cid,
		ChatID:    ctx.EffectiveChat.Id,
		UserID:    userID(ctx),
		MessageID: messageID,
		Text:      text,
		GateToken: token,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("client_id", cid).Msg("failed to enqueue assistant turn")
		if s.gate != nil {
			_ = s.gate.Release(context.Background(), cid, token)
		}
		return s.reply(ctx, b, assistant.FallbackError)
	}
	s.metrics.TurnsEnqueued.Inc()
	s.logger.Debug().Str("client_id", cid).Str("job_id", job.JobID).Msg("assistant turn enqueued")

	if ctx.EffectiveChat != nil {
		_, _ = b.SendChatAction(ctx.EffectiveChat.Id, "typing", nil)
	}
	return nil
}

func (s *Service) allowRate(cid string, b *gotgbot.Bot, ctx *ext.Context) bool {
	if s.rateLimiter == nil {
		return true
	}
	ok, _, resetAt, err := s.rateLimiter.Allow(context.Background(), cid, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("rate limiter failed")
		return true
	}
	if ok {
		return true
	}
	_ = s.reply(ctx, b, "Je hebt het maximum aantal vragen bereikt. Probeer het weer na "+resetAt.Format("15:04 UTC")+".")
	return false
}
