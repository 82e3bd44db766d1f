package models

import (
	"time"

	"github.com/google/uuid"
)

// EntitlementStatus is the lifecycle state of a purchased entitlement.
type EntitlementStatus string

const (
	EntitlementActive   EntitlementStatus = "active"
	EntitlementCanceled EntitlementStatus = "canceled"
	EntitlementExpired  EntitlementStatus = "expired"
)

// Entitlement records a user's access to a paid product, kept in sync with
// Stripe via webhook events.
type Entitlement struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	Product          string            `json:"product"`
	Status           EntitlementStatus `json:"status"`
	StripeCustomerID *string           `json:"stripe_customer_id,omitempty"`
	StripeSubID      *string           `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd *time.Time        `json:"current_period_end,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsActive reports whether the entitlement currently grants access.
func (e *Entitlement) IsActive(now time.Time) bool {
	if e.Status != EntitlementActive {
		return false
	}
	if e.CurrentPeriodEnd != nil && now.After(*e.CurrentPeriodEnd) {
		return false
	}
	return true
}
