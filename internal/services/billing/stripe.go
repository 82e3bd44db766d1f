// Package billing integrates with Stripe: it creates checkout sessions for
// the premium product and keeps entitlements in sync from webhook events.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// ProductPremium is the single paid product.
const ProductPremium = "premium"

// Service owns the Stripe API client and entitlement persistence.
type Service struct {
	api           *client.API
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string
	entitlements  database.EntitlementRepositoryInterface
	logger        *zap.Logger
}

// NewService creates a billing service.
func NewService(secretKey, webhookSecret, priceID, frontendURL string, entitlements database.EntitlementRepositoryInterface, logger *zap.Logger) (*Service, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if priceID == "" {
		return nil, fmt.Errorf("stripe price id is required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Service{
		api:           api,
		webhookSecret: webhookSecret,
		priceID:       priceID,
		successURL:    frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:     frontendURL + "/billing/cancel",
		entitlements:  entitlements,
		logger:        logger,
	}, nil
}

// CreateCheckoutSession starts a subscription checkout for the user and
// returns the hosted payment page URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.priceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	s.logger.Info("checkout_session_created",
		zap.String("user_id", userID.String()),
		zap.String("session_id", session.ID),
	)
	return session.URL, nil
}

// HandleWebhook verifies a webhook payload and applies the event to the
// entitlement store. Unknown event types are ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		return s.onCheckoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.updated":
		return s.onSubscriptionChanged(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		return s.onSubscriptionDeleted(ctx, event.Data.Raw)
	default:
		s.logger.Debug("webhook_event_ignored", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *Service) onCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("checkout session has no valid user reference: %w", err)
	}

	e := &models.Entitlement{
		UserID:  userID,
		Product: ProductPremium,
		Status:  models.EntitlementActive,
	}
	if session.Customer != nil {
		e.StripeCustomerID = stripe.String(session.Customer.ID)
	}
	if session.Subscription != nil {
		e.StripeSubID = stripe.String(session.Subscription.ID)
	}

	if err := s.entitlements.Upsert(ctx, e); err != nil {
		return err
	}
	s.logger.Info("entitlement_activated", zap.String("user_id", userID.String()))
	return nil
}

func (s *Service) onSubscriptionChanged(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	existing, err := s.entitlements.GetBySubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		// Checkout webhook not processed yet; the next update event will
		// find the row.
		s.logger.Warn("subscription_without_entitlement", zap.String("subscription_id", sub.ID))
		return nil
	}

	existing.Status = mapSubscriptionStatus(sub.Status)
	if end := subscriptionPeriodEnd(&sub); end != nil {
		existing.CurrentPeriodEnd = end
	}
	return s.entitlements.Upsert(ctx, existing)
}

func (s *Service) onSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	existing, err := s.entitlements.GetBySubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	existing.Status = models.EntitlementCanceled
	if err := s.entitlements.Upsert(ctx, existing); err != nil {
		return err
	}
	s.logger.Info("entitlement_canceled", zap.String("user_id", existing.UserID.String()))
	return nil
}

// Entitlement returns the user's premium entitlement, or nil when the user
// never purchased.
func (s *Service) Entitlement(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	return s.entitlements.Get(ctx, userID, ProductPremium)
}

// IsPremium reports whether the user currently has active premium access.
func (s *Service) IsPremium(ctx context.Context, userID uuid.UUID) (bool, error) {
	e, err := s.Entitlement(ctx, userID)
	if err != nil {
		return false, err
	}
	return e != nil && e.IsActive(time.Now()), nil
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) models.EntitlementStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.EntitlementActive
	case stripe.SubscriptionStatusCanceled:
		return models.EntitlementCanceled
	default:
		return models.EntitlementExpired
	}
}

// subscriptionPeriodEnd pulls the current period end off the first item.
func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	if sub.Items.Data[0].CurrentPeriodEnd == 0 {
		return nil
	}
	end := time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
	return &end
}
