package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/queue"
	"go.uber.org/zap"
)

// WarmHour is the local server hour at which daily content jobs fire, ahead
// of the morning traffic peak.
const WarmHour = 6

// Scheduler enqueues daily content jobs for every user with a complete
// profile.
type Scheduler struct {
	jobQueue queue.JobQueue
	users    database.UserRepositoryInterface
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(jobQueue queue.JobQueue, users database.UserRepositoryInterface, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobQueue: jobQueue,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// ScheduleDailyJobs enqueues one daily content job per eligible user for the
// next warm window. A failure for one user does not stop the rest.
func (s *Scheduler) ScheduleDailyJobs(ctx context.Context) error {
	users, err := s.users.ListWithBirthData(ctx)
	if err != nil {
		return fmt.Errorf("list eligible users: %w", err)
	}

	notBefore := s.nextWarmWindow()
	// Stale warm jobs are pointless once the content TTL has passed.
	notAfter := notBefore.Add(6 * time.Hour)

	scheduled := 0
	for _, user := range users {
		job := queue.NewJob(queue.JobTypeDailyContent, user.ID, user.Lang)
		job.NotBefore = &notBefore
		job.NotAfter = &notAfter

		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("daily_job_enqueue_failed",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	s.logger.Info("daily_jobs_scheduled",
		zap.Int("scheduled", scheduled),
		zap.Int("eligible", len(users)),
		zap.Time("not_before", notBefore),
	)
	return nil
}

// Start schedules a batch immediately and then once per day until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.ScheduleDailyJobs(ctx); err != nil {
		s.logger.Error("initial_schedule_failed", zap.Error(err))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScheduleDailyJobs(ctx); err != nil {
				s.logger.Error("schedule_failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) nextWarmWindow() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), WarmHour, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
