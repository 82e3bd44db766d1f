package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/queue"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error { m.acked = true; return nil }
func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}
func (m *mockMessage) GetJob() *queue.Job { return m.job }

type mockGenerator struct {
	calls []string
	err   error
}

func (g *mockGenerator) Generate(_ context.Context, promptID string, _ prompt.Context, lang models.Lang) (*models.GeneratedContent, error) {
	g.calls = append(g.calls, promptID)
	if g.err != nil {
		return nil, g.err
	}
	return &models.GeneratedContent{Lang: lang, Content: map[string]any{"ok": true}}, nil
}

type mockChartSource struct {
	natalErr error
}

func (c *mockChartSource) NatalChart(context.Context, models.BirthData) (models.Chart, error) {
	if c.natalErr != nil {
		return models.Chart{}, c.natalErr
	}
	return models.Chart{Data: []byte(`{"sun": "Taurus"}`)}, nil
}

func (c *mockChartSource) Transits(context.Context, models.BirthData, time.Time) (models.Chart, error) {
	return models.Chart{Data: []byte(`{"transits": []}`)}, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (r *mockUserRepo) Create(context.Context, *models.User) error          { return nil }
func (r *mockUserRepo) UpdateProfile(context.Context, *models.User) error   { return nil }
func (r *mockUserRepo) Delete(context.Context, uuid.UUID) error             { return nil }
func (r *mockUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, database.ErrUserNotFound
}
func (r *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrUserNotFound
}
func (r *mockUserRepo) ListWithBirthData(context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.users {
		if u.HasBirthData() {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (q *mockJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}
func (q *mockJobQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (q *mockJobQueue) Close() error                          { return nil }
func (q *mockJobQueue) HealthCheck(context.Context) error     { return nil }

func completeUser() *models.User {
	date, tz := "1990-05-01", "Asia/Shanghai"
	lat, lon := 31.2304, 121.4737
	return &models.User{
		ID:        uuid.New(),
		Email:     "user@example.com",
		Lang:      models.LangZH,
		BirthDate: &date,
		BirthLat:  &lat,
		BirthLon:  &lon,
		BirthTZ:   &tz,
	}
}

func TestProcessJob_DailyContentWarmsCache(t *testing.T) {
	t.Parallel()

	user := completeUser()
	gen := &mockGenerator{}
	w := NewContentWarmer(gen, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		&mockJobQueue{}, zap.NewNop())

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeDailyContent, user.ID, models.LangZH)}
	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}

	if !msg.acked {
		t.Error("message not acked")
	}
	if len(gen.calls) != 1 || gen.calls[0] != "daily_transit" {
		t.Errorf("generator calls = %v", gen.calls)
	}
}

func TestProcessJob_NatalRefreshWarmsAllPrompts(t *testing.T) {
	t.Parallel()

	user := completeUser()
	gen := &mockGenerator{}
	w := NewContentWarmer(gen, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		&mockJobQueue{}, zap.NewNop())

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeNatalRefresh, user.ID, models.LangEN)}
	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}

	if len(gen.calls) != len(natalPrompts) {
		t.Errorf("generator calls = %v, want %v", gen.calls, natalPrompts)
	}
}

func TestProcessJob_SkipsDeletedUser(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	w := NewContentWarmer(gen, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{}},
		&mockJobQueue{}, zap.NewNop())

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeDailyContent, uuid.New(), models.LangZH)}
	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}
	if !msg.acked {
		t.Error("job for deleted user should ack cleanly")
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator should not be called, got %v", gen.calls)
	}
}

func TestProcessJob_UnavailableUpstreamDelaysRetry(t *testing.T) {
	t.Parallel()

	user := completeUser()
	gen := &mockGenerator{err: fmt.Errorf("generate: %w", &ai.UnavailableError{Reason: "rate limited", StatusCode: 429})}
	jobQueue := &mockJobQueue{}
	w := NewContentWarmer(gen, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		jobQueue, zap.NewNop())

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeDailyContent, user.ID, models.LangZH)}
	if err := w.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}

	if !msg.acked {
		t.Error("delayed job should ack the original message")
	}
	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1 delayed job", len(jobQueue.enqueued))
	}
	delayed := jobQueue.enqueued[0]
	if delayed.RetryCount != 1 {
		t.Errorf("retry count = %d", delayed.RetryCount)
	}
	if delayed.NotBefore == nil || !delayed.NotBefore.After(time.Now()) {
		t.Errorf("delayed job has no future NotBefore: %v", delayed.NotBefore)
	}
}

func TestProcessJob_RequeueFailureKeepsDelivery(t *testing.T) {
	t.Parallel()

	user := completeUser()
	gen := &mockGenerator{err: fmt.Errorf("generate: %w", &ai.UnavailableError{Reason: "timeout", StatusCode: 504})}
	jobQueue := &mockJobQueue{enqueueErr: fmt.Errorf("channel closed")}
	w := NewContentWarmer(gen, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		jobQueue, zap.NewNop())

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeDailyContent, user.ID, models.LangZH)}
	if err := w.ProcessJob(context.Background(), msg); err == nil {
		t.Error("expected error when the retry copy cannot be enqueued")
	}

	// The original delivery must survive: requeued, never acked.
	if msg.acked {
		t.Error("message acked despite failed re-enqueue")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("message should nack with requeue, nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
}

func TestProcessJob_ExhaustedRetriesDeadLetter(t *testing.T) {
	t.Parallel()

	user := completeUser()
	w := NewContentWarmer(&mockGenerator{err: fmt.Errorf("boom")}, &mockChartSource{},
		&mockUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		&mockJobQueue{}, zap.NewNop())

	job := queue.NewJob(queue.JobTypeDailyContent, user.ID, models.LangZH)
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	if err := w.ProcessJob(context.Background(), msg); err == nil {
		t.Error("expected error after max retries")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("exhausted job should nack without requeue, nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
}

func TestScheduler_SchedulesEligibleUsers(t *testing.T) {
	t.Parallel()

	complete := completeUser()
	incomplete := &models.User{ID: uuid.New(), Email: "no-birth@example.com", Lang: models.LangEN}
	jobQueue := &mockJobQueue{}
	s := NewScheduler(jobQueue, &mockUserRepo{users: map[uuid.UUID]*models.User{
		complete.ID:   complete,
		incomplete.ID: incomplete,
	}}, zap.NewNop())
	s.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	if err := s.ScheduleDailyJobs(context.Background()); err != nil {
		t.Fatalf("ScheduleDailyJobs error: %v", err)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.UserID != complete.ID {
		t.Errorf("scheduled wrong user: %s", job.UserID)
	}
	// Scheduled after today's warm hour, so the window is tomorrow 06:00.
	want := time.Date(2025, 6, 2, WarmHour, 0, 0, 0, time.UTC)
	if job.NotBefore == nil || !job.NotBefore.Equal(want) {
		t.Errorf("NotBefore = %v, want %v", job.NotBefore, want)
	}
	if job.NotAfter == nil || !job.NotAfter.Equal(want.Add(6*time.Hour)) {
		t.Errorf("NotAfter = %v", job.NotAfter)
	}
}
