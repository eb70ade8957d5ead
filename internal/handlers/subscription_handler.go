package handlers

import (
	"net/http"
	"strings"

	"godlykids/internal/service"
)

// SubscriptionHandler exposes the parent's subscription status and receives
// entitlement updates from the billing bridge
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Get handles GET /api/subscription for the parent account
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	subscription, err := h.subscriptions.GetSubscription(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load subscription", "Error getting subscription", err)
		return
	}
	respondWithJSON(w, http.StatusOK, subscription)
}

// BridgeWebhook handles POST /api/webhooks/bridge. The bridge authenticates
// with a signed bearer token carrying the entitlement update.
func (h *SubscriptionHandler) BridgeWebhook(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		respondWithError(w, http.StatusUnauthorized, "Missing bearer token", "", nil)
		return
	}

	update, err := h.subscriptions.VerifyWebhook(token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid webhook token", "Webhook verification failed", err)
		return
	}

	if err := h.subscriptions.ApplyUpdate(r.Context(), *update); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to apply update", "Error applying subscription update", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
