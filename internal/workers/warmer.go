// Package workers contains the background consumers that pre-generate
// content so user-facing requests hit the cache.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/queue"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/prompt"
	"go.uber.org/zap"
)

// ChartSource computes charts for a birth moment. Satisfied by the ephemeris
// client.
type ChartSource interface {
	NatalChart(ctx context.Context, birth models.BirthData) (models.Chart, error)
	Transits(ctx context.Context, birth models.BirthData, moment time.Time) (models.Chart, error)
}

// ContentGenerator produces cached content. Satisfied by ai.Generator.
type ContentGenerator interface {
	Generate(ctx context.Context, promptID string, rctx prompt.Context, lang models.Lang) (*models.GeneratedContent, error)
}

// ContentWarmer consumes warm jobs: it generates content through the same
// path the handlers use, so the result lands in the shared cache.
type ContentWarmer struct {
	generator ContentGenerator
	charts    ChartSource
	users     database.UserRepositoryInterface
	jobQueue  queue.JobQueue
	logger    *zap.Logger
}

// NewContentWarmer creates a content warmer.
func NewContentWarmer(
	generator ContentGenerator,
	charts ChartSource,
	users database.UserRepositoryInterface,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *ContentWarmer {
	return &ContentWarmer{
		generator: generator,
		charts:    charts,
		users:     users,
		jobQueue:  jobQueue,
		logger:    logger,
	}
}

// ProcessJob dispatches a message by job type and acks or nacks it.
func (w *ContentWarmer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeDailyContent:
		if err := w.processDailyContent(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
	case queue.JobTypeNatalRefresh:
		if err := w.processNatalRefresh(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("ack job: %w", ackErr)
	}
	return nil
}

func (w *ContentWarmer) processDailyContent(ctx context.Context, job *queue.Job) error {
	user, err := w.users.GetByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Account deleted after the job was scheduled; nothing to warm.
			return nil
		}
		return err
	}
	if !user.HasBirthData() {
		w.logger.Debug("warm_skipped_incomplete_profile", zap.String("user_id", user.ID.String()))
		return nil
	}

	birth := user.Birth()
	chart, err := w.charts.NatalChart(ctx, birth)
	if err != nil {
		return fmt.Errorf("compute natal chart: %w", err)
	}
	transits, err := w.charts.Transits(ctx, birth, time.Now())
	if err != nil {
		return fmt.Errorf("compute transits: %w", err)
	}

	_, err = w.generator.Generate(ctx, "daily_transit", prompt.Context{
		"chart":    chart.AsAny(),
		"transits": transits.AsAny(),
	}, job.Lang)
	if err != nil {
		return err
	}

	w.logger.Info("daily_content_warmed",
		zap.String("user_id", user.ID.String()),
		zap.String("lang", string(job.Lang)),
	)
	return nil
}

var natalPrompts = []string{"natal_overview", "natal_core_themes", "natal_technical"}

func (w *ContentWarmer) processNatalRefresh(ctx context.Context, job *queue.Job) error {
	user, err := w.users.GetByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !user.HasBirthData() {
		return nil
	}

	chart, err := w.charts.NatalChart(ctx, user.Birth())
	if err != nil {
		return fmt.Errorf("compute natal chart: %w", err)
	}

	rctx := prompt.Context{"chart": chart.AsAny()}
	for _, promptID := range natalPrompts {
		if _, err := w.generator.Generate(ctx, promptID, rctx, job.Lang); err != nil {
			return fmt.Errorf("warm %s: %w", promptID, err)
		}
	}

	w.logger.Info("natal_content_warmed", zap.String("user_id", user.ID.String()))
	return nil
}

// handleJobError retries failed jobs. Upstream-unavailable errors go back
// through the delayed exchange with backoff; other errors requeue until the
// retry budget runs out, then dead-letter.
func (w *ContentWarmer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	var unavailable *ai.UnavailableError
	if errors.As(err, &unavailable) && job.CanRetry() && w.jobQueue != nil {
		notBefore := time.Now().Add(retryDelay(job.RetryCount))
		delayed := *job
		delayed.NotBefore = &notBefore
		delayed.RetryCount = job.RetryCount + 1

		// Republish before acking; an ack-first ordering loses the job when
		// the enqueue fails.
		if enqueueErr := w.jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
			if nackErr := msg.Nack(true); nackErr != nil {
				w.logger.Warn("nack_after_enqueue_failure_failed", zap.Error(nackErr))
			}
			return fmt.Errorf("upstream unavailable, re-enqueue failed: %w", enqueueErr)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Warn("ack_after_requeue_failed", zap.Error(ackErr))
		}
		w.logger.Warn("job_delayed_upstream_unavailable",
			zap.String("job_id", job.ID.String()),
			zap.Time("not_before", notBefore),
			zap.Int("retry_count", delayed.RetryCount),
		)
		return nil
	}

	if job.CanRetry() {
		job.IncrementRetry()
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	if nackErr := msg.Nack(false); nackErr != nil {
		w.logger.Warn("nack_to_dlq_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

func retryDelay(retryCount int) time.Duration {
	delay := time.Minute << retryCount
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	return delay
}
