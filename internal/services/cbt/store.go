// Package cbt persists short-lived thought-record journals and generates
// CBT-informed analyses of them.
package cbt

import (
	"context"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetentionWindow is how long records live. The cache-entry TTL and the
// in-band timestamp filter are two independent retention mechanisms and must
// stay equal: both derive from this constant.
const RetentionWindow = 90 * 24 * time.Hour

// Store keeps per-user ordered record sequences in the cache.
//
// Known limitation: concurrent appends for the same user are a read-modify-
// write race; the last writer wins and the loser's record is dropped. This
// matches the original contract and is covered by a test rather than fixed.
type Store struct {
	cache  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a record store.
func NewStore(c cache.Store, logger *zap.Logger) *Store {
	return &Store{cache: c, logger: logger, now: time.Now}
}

// SetClock overrides the time source for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func recordsKey(userID uuid.UUID) string {
	return "cbt:records:" + userID.String()
}

// List returns the user's live records, oldest first. Records past the
// retention window are filtered out even if the cache entry has not expired.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]models.CBTRecord, error) {
	var records []models.CBTRecord
	hit, err := s.cache.Get(ctx, recordsKey(userID), &records)
	if err != nil {
		return nil, fmt.Errorf("load cbt records: %w", err)
	}
	if !hit {
		return []models.CBTRecord{}, nil
	}
	return s.filterExpired(records), nil
}

// Append adds a record and rewrites the sequence with a fresh retention TTL.
// Entries older than the retention window (including the new record itself,
// if backdated that far) are dropped before persisting.
func (s *Store) Append(ctx context.Context, userID uuid.UUID, record models.CBTRecord) ([]models.CBTRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp == 0 {
		record.Timestamp = s.now().UnixMilli()
	}

	existing, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := s.filterExpired(append(existing, record))
	if err := s.cache.Set(ctx, recordsKey(userID), updated, RetentionWindow); err != nil {
		return nil, fmt.Errorf("persist cbt records: %w", err)
	}

	s.logger.Debug("cbt_record_appended",
		zap.String("user_id", userID.String()),
		zap.Int("record_count", len(updated)),
	)
	return updated, nil
}

func (s *Store) filterExpired(records []models.CBTRecord) []models.CBTRecord {
	cutoff := s.now().Add(-RetentionWindow).UnixMilli()
	live := make([]models.CBTRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp > cutoff {
			live = append(live, r)
		}
	}
	return live
}
