// Package worker drains the synthesis queue: each job is one finished
// interview whose transcript gets summarized off the request path. Failed
// jobs are retried with an attempt counter; terminal failures are recorded
// on the insight row with a user-facing message.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quint/internal/fault"
	"quint/internal/interview"
	"quint/internal/metrics"
	"quint/internal/queue"
	"quint/internal/storage"
)

// Synthesizer is the orchestrator surface the worker needs.
type Synthesizer interface {
	SynthesizeInsights(ctx context.Context, in interview.SynthesisInput) (string, error)
}

type Worker struct {
	store         *storage.Store
	queue         *queue.StreamQueue
	synth         Synthesizer
	limiter       *queue.RateLimiter
	dedupe        *queue.SynthesisDeduplicator
	maxJobRetries int
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

type Config struct {
	Store         *storage.Store
	Queue         *queue.StreamQueue
	Synthesizer   Synthesizer
	Limiter       *queue.RateLimiter
	Dedupe        *queue.SynthesisDeduplicator
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
		store:         cfg.Store,
		queue:         cfg.Queue,
		synth:         cfg.Synthesizer,
		limiter:       cfg.Limiter,
		dedupe:        cfg.Dedupe,
		maxJobRetries: cfg.MaxJobRetries,
		logger:        cfg.Logger,
		metrics:       m,
	}
}

// Schedule registers a finished interview for synthesis: it takes the
// dedupe mark, seeds a pending insight row, and enqueues the job. Returns
// false when the interview is already scheduled. This is the entry point
// the transport boundary calls when an interview completes.
func (w *Worker) Schedule(ctx context.Context, job queue.SynthesisJob) (bool, error) {
	if w.dedupe != nil {
		first, err := w.dedupe.MarkFirst(ctx, job.InterviewID)
		if err != nil {
			return false, err
		}
		if !first {
			return false, nil
		}
	}

	if err := w.store.UpsertInsight(ctx, storage.Insight{
		InterviewID: job.InterviewID,
		Objective:   job.Objective,
		Status:      storage.InsightPending,
	}); err != nil {
		return false, fmt.Errorf("mark insight pending: %w", err)
	}

	if _, err := w.queue.Enqueue(ctx, job); err != nil {
		return false, err
	}
	w.metrics.EnqueuedJobs.Inc()
	return true, nil
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
			time.Sleep(1 * time.Second)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		for _, msg := range messages {
			err := w.processJob(ctx, msg.Job)
			if err == nil {
				w.metrics.ProcessedJobs.Inc()
				if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
					log.Error().Err(ackErr).Str("msg_id", msg.ID).Msg("failed to ack message")
				}
				continue
			}

			w.metrics.FailedJobs.Inc()
			log.Error().Err(err).
				Str("job_id", msg.Job.JobID).
				Str("interview_id", msg.Job.InterviewID).
				Int("attempt", msg.Job.Attempts).
				Msg("synthesis job failed")

			if msg.Job.Attempts < w.maxJobRetries {
				msg.Job.Attempts++
				if _, enqueueErr := w.queue.Enqueue(ctx, msg.Job); enqueueErr != nil {
					log.Error().Err(enqueueErr).Str("job_id", msg.Job.JobID).Msg("failed to re-enqueue failed job")
					continue
				}
				w.metrics.EnqueuedJobs.Inc()
				if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
					log.Error().Err(ackErr).Str("msg_id", msg.ID).Msg("failed to ack after re-enqueue")
				}
				continue
			}

			w.markFailed(ctx, msg.Job, err)
			if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
				log.Error().Err(ackErr).Str("msg_id", msg.ID).Msg("failed to ack terminal failed message")
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job queue.SynthesisJob) error {
	if w.limiter != nil {
		allowed, used, resetAt, err := w.limiter.Allow(ctx, job.InterviewID, time.Now())
		if err != nil {
			return fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			return fmt.Errorf("%w: interview %s used %d calls this window, resets %s",
				fault.ErrUpstreamRateLimited, job.InterviewID, used, resetAt.Format(time.RFC3339))
		}
	}

	if err := w.store.UpsertInsight(ctx, storage.Insight{
		InterviewID: job.InterviewID,
		Objective:   job.Objective,
		Status:      storage.InsightRunning,
	}); err != nil {
		return fmt.Errorf("mark insight running: %w", err)
	}

	insights, err := w.synth.SynthesizeInsights(ctx, interview.SynthesisInput{
		InterviewID: job.InterviewID,
		Objective:   job.Objective,
		Transcript:  job.Transcript,
	})
	if err != nil {
		return err
	}

	if err := w.store.UpsertInsight(ctx, storage.Insight{
		InterviewID: job.InterviewID,
		Objective:   job.Objective,
		Insights:    insights,
		Status:      storage.InsightDone,
	}); err != nil {
		return fmt.Errorf("store insight: %w", err)
	}
	return nil
}

// markFailed records a terminal failure and releases the dedupe mark so the
// interview can be re-enqueued after the operator intervenes.
func (w *Worker) markFailed(ctx context.Context, job queue.SynthesisJob, cause error) {
	if err := w.store.UpsertInsight(ctx, storage.Insight{
		InterviewID: job.InterviewID,
		Objective:   job.Objective,
		Status:      storage.InsightFailed,
		LastError:   fault.UserMessage(cause),
	}); err != nil {
		w.logger.Error().Err(err).Str("interview_id", job.InterviewID).Msg("failed to record terminal failure")
	}
	if w.dedupe != nil {
		if err := w.dedupe.Clear(ctx, job.InterviewID); err != nil {
			w.logger.Error().Err(err).Str("interview_id", job.InterviewID).Msg("failed to clear dedupe mark")
		}
	}
}
