package handlers

import (
	"io"
	"net/http"

	"github.com/astralume/astral-api/internal/request"
	"github.com/astralume/astral-api/internal/services/billing"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxWebhookBody caps Stripe webhook payloads. Events are small; anything
// bigger is not from Stripe.
const maxWebhookBody = 1 << 20

// BillingHandler serves checkout and entitlement routes plus the Stripe
// webhook endpoint.
type BillingHandler struct {
	service *billing.Service
	logger  *zap.Logger
}

// NewBillingHandler creates the billing handler.
func NewBillingHandler(service *billing.Service, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{service: service, logger: logger}
}

// RegisterProtectedRoutes registers the routes that require a valid token.
// The router should already carry the /billing prefix.
func (h *BillingHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/checkout", h.CreateCheckout).Methods("POST")
	r.HandleFunc("/entitlements", h.Entitlements).Methods("GET")
}

// RegisterWebhookRoute registers the unauthenticated webhook endpoint.
// Authentication is the Stripe-Signature header, not a bearer token.
func (h *BillingHandler) RegisterWebhookRoute(r *mux.Router) {
	r.HandleFunc("/webhook", h.Webhook).Methods("POST")
}

// CreateCheckout starts a subscription checkout for the authenticated user.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), user.ID, user.Email)
	if err != nil {
		h.logger.Error("checkout_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"checkout_url": url})
}

// Entitlements returns the user's premium entitlement state.
func (h *BillingHandler) Entitlements(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	entitlement, err := h.service.Entitlement(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("entitlement_lookup_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load entitlements")
		return
	}
	premium, err := h.service.IsPremium(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load entitlements")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"premium":     premium,
		"entitlement": entitlement,
	})
}

// Webhook receives Stripe events. The raw body must be passed to signature
// verification unmodified.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		h.logger.Warn("webhook_rejected", zap.Error(err))
		respondError(w, http.StatusBadRequest, "webhook verification failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"received": true})
}
