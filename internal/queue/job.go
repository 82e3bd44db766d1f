// Package queue provides the background job queue for content warming.
package queue

import (
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
)

// JobType identifies what a worker should do with a job.
type JobType string

const (
	// JobTypeDailyContent pre-generates today's transit reading for a user
	// so the morning request is a cache hit.
	JobTypeDailyContent JobType = "daily_content"
	// JobTypeNatalRefresh re-generates a user's natal content after a
	// profile change invalidated the cached chart.
	JobTypeNatalRefresh JobType = "natal_refresh"
)

// Job is the unit of work carried through RabbitMQ.
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	Lang       models.Lang    `json:"lang"`
	NotBefore  *time.Time     `json:"not_before,omitempty"`
	NotAfter   *time.Time     `json:"not_after,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a job with defaults.
func NewJob(jobType JobType, userID uuid.UUID, lang models.Lang) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Lang:       lang,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// ShouldProcess reports whether the job is inside its processing window.
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired reports whether the job's NotAfter deadline has passed. Expired
// warm jobs are dropped; the user-facing request path regenerates on demand.
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// CanRetry reports whether the job has retry budget left.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry consumes one retry.
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
