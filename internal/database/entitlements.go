package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
)

// EntitlementRepository handles paid-access rows, kept in sync with Stripe
// webhook events.
type EntitlementRepository struct {
	db *DB
}

// NewEntitlementRepository creates a new entitlement repository.
func NewEntitlementRepository(db *DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

const entitlementColumns = `id, user_id, product, status,
	stripe_customer_id, stripe_subscription_id, current_period_end,
	created_at, updated_at`

func scanEntitlement(row *sql.Row) (*models.Entitlement, error) {
	e := &models.Entitlement{}
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Product,
		&e.Status,
		&e.StripeCustomerID,
		&e.StripeSubID,
		&e.CurrentPeriodEnd,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan entitlement: %w", err)
	}
	return e, nil
}

// Upsert writes the entitlement for a (user, product) pair, replacing any
// previous state. Webhook handlers call this on every lifecycle event.
func (r *EntitlementRepository) Upsert(ctx context.Context, e *models.Entitlement) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO entitlements (id, user_id, product, status,
			stripe_customer_id, stripe_subscription_id, current_period_end,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, product) DO UPDATE SET
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, e.ID, e.UserID, e.Product, e.Status,
		e.StripeCustomerID, e.StripeSubID, e.CurrentPeriodEnd, now, now,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert entitlement: %w", err)
	}
	return nil
}

// Get returns the entitlement for a (user, product) pair, or nil when none
// exists.
func (r *EntitlementRepository) Get(ctx context.Context, userID uuid.UUID, product string) (*models.Entitlement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE user_id = $1 AND product = $2`,
		userID, product)
	return scanEntitlement(row)
}

// GetBySubscription resolves an entitlement from a Stripe subscription id.
// Used by webhook events that carry no user reference.
func (r *EntitlementRepository) GetBySubscription(ctx context.Context, subscriptionID string) (*models.Entitlement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE stripe_subscription_id = $1`,
		subscriptionID)
	return scanEntitlement(row)
}

// ListByUser returns all of a user's entitlements.
func (r *EntitlementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	var out []*models.Entitlement
	for rows.Next() {
		e := &models.Entitlement{}
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Product, &e.Status,
			&e.StripeCustomerID, &e.StripeSubID, &e.CurrentPeriodEnd,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entitlement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	return out, nil
}
