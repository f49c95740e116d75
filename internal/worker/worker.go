package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feestplanner/internal/assistant"
	"feestplanner/internal/metrics"
	"feestplanner/internal/queue"
)

const maxReplyRunes = 4000

// Sender delivers assistant replies back to the chat the turn came from.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int64) error
}

type Worker struct {
	queue         *queue.StreamQueue
	assistants    *assistant.Registry
	sender        Sender
	gate          *queue.BusyGate
	maxJobRetries int
	idleBackoff   time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

type Config struct {
	Queue         *queue.StreamQueue
	Assistants    *assistant.Registry
	Sender        Sender
	Gate          *queue.BusyGate
	MaxJobRetries int
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

func New(cfg Config) *Worker {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.MaxJobRetries < 0 {
		cfg.MaxJobRetries = 0
	}
	return &Worker{
		queue:         cfg.Queue,
		assistants:    cfg.Assistants,
		sender:        cfg.Sender,
		gate:          cfg.Gate,
		maxJobRetries: cfg.MaxJobRetries,
		idleBackoff:   time.Second,
		logger:        cfg.Logger,
		metrics:       m,
	}
}

func (w *Worker) Start(ctx context.Context, concurrency int) error {
	if err := w.queue.EnsureGroup(ctx); err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	wg := sync.WaitGroup{}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.consumeLoop(ctx, slot)
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (w *Worker) consumeLoop(ctx context.Context, slot int) {
	log := w.logger.With().Int("slot", slot).Logger()
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		messages, err := w.queue.Read(ctx, 1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("failed to read queue")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.idleBackoff):
			}
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, log, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, log zerolog.Logger, msg queue.Message) {
	job, err := w.processJob(ctx, msg.Job)
	if err == nil {
		w.metrics.TurnsProcessed.Inc()
		w.finish(ctx, log, msg.ID, job)
		return
	}

	w.metrics.TurnsFailed.Inc()
	log.Error().Err(err).
		Str("job_id", job.JobID).
		Str("client_id", job.ClientID).
		Int("attempt", job.Attempts).
		Msg("turn job failed")

	if job.Attempts < w.maxJobRetries {
		job.Attempts++
		if _, enqueueErr := w.queue.Enqueue(ctx, job); enqueueErr != nil {
			log.Error().Err(enqueueErr).Str("job_id", job.JobID).Msg("failed to re-enqueue failed job")
			return
		}
		if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
			log.Error().Err(ackErr).Str("msg_id", msg.ID).Msg("failed to ack after re-enqueue")
		}
		return
	}

	w.finish(ctx, log, msg.ID, job)
}

func (w *Worker) finish(ctx context.Context, log zerolog.Logger, msgID string, job queue.TurnJob) {
	if ackErr := w.queue.Ack(ctx, msgID); ackErr != nil {
		log.Error().Err(ackErr).Str("msg_id", msgID).Msg("failed to ack message")
	}
	if w.gate != nil {
		if err := w.gate.Release(ctx, job.ClientID, job.GateToken); err != nil {
			log.Error().Err(err).Str("client_id", job.ClientID).Msg("failed to release busy gate")
		}
	}
}

// processJob runs the turn unless an earlier attempt already produced the
// reply, then delivers it. The returned job carries the reply so a retry only
// resends.
func (w *Worker) processJob(ctx context.Context, job queue.TurnJob) (queue.TurnJob, error) {
	if job.Reply == "" {
		bridge := w.assistants.Get(job.ClientID)
		reply, err := bridge.Send(ctx, job.Text)
		switch {
		case errors.Is(err, assistant.ErrBlank):
			return job, nil
		case errors.Is(err, assistant.ErrBusy):
			job.Reply = "Samira is nog met je vorige vraag bezig. Even geduld."
		case err != nil:
			return job, fmt.Errorf("assistant send: %w", err)
		default:
			if reply.Fallback {
				w.metrics.AssistantFallbacks.Inc()
			}
			job.Reply = reply.Text
		}
	}

	if err := w.sender.SendText(ctx, job.ChatID, truncate(job.Reply), job.MessageID); err != nil {
		return job, fmt.Errorf("send reply: %w", err)
	}
	return job, nil
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > maxReplyRunes {
		return string(r[:maxReplyRunes])
	}
	return text
}
