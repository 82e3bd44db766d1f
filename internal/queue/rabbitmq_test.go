package queue

import (
	"testing"
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestPublishTarget(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name             string
		delayedAvailable bool
		notBefore        *time.Time
		wantExchange     string
		wantDelayHeader  bool
	}{
		{"immediate job", true, nil, DefaultExchangeName, false},
		{"scheduled job with plugin", true, &future, DefaultDelayedExchangeName, true},
		{"scheduled job without plugin falls back to direct", false, &future, DefaultExchangeName, false},
		{"window already open", true, &past, DefaultExchangeName, false},
		{"immediate job without plugin", false, nil, DefaultExchangeName, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &RabbitMQQueue{
				exchangeName:        DefaultExchangeName,
				delayedExchangeName: DefaultDelayedExchangeName,
				delayedAvailable:    tt.delayedAvailable,
				logger:              zap.NewNop(),
			}
			job := NewJob(JobTypeDailyContent, uuid.New(), models.LangZH)
			job.NotBefore = tt.notBefore

			exchange, headers := q.publishTarget(job)
			if exchange != tt.wantExchange {
				t.Errorf("exchange = %q, want %q", exchange, tt.wantExchange)
			}
			_, hasDelay := headers["x-delay"]
			if hasDelay != tt.wantDelayHeader {
				t.Errorf("x-delay header present = %v, want %v", hasDelay, tt.wantDelayHeader)
			}
		})
	}
}
