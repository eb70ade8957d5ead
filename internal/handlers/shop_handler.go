package handlers

import (
	"errors"
	"net/http"

	"godlykids/internal/repository"
	"godlykids/internal/service"
	"godlykids/internal/state"
)

// ShopHandler handles the cosmetics catalog and purchases
type ShopHandler struct {
	shopRepo      *repository.ShopRepository
	stateMgr      *state.Manager
	subscriptions *service.SubscriptionService
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopRepo *repository.ShopRepository, stateMgr *state.Manager, subscriptions *service.SubscriptionService) *ShopHandler {
	return &ShopHandler{
		shopRepo:      shopRepo,
		stateMgr:      stateMgr,
		subscriptions: subscriptions,
	}
}

// ListItems handles GET /api/shop/items
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.shopRepo.GetAllItems()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load shop items", "Error getting shop items", err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// Purchase handles POST /api/shop/items/{id}/purchase. Buying an item the
// profile already owns succeeds without charging again.
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	itemID := r.PathValue("id")

	item, err := h.shopRepo.GetItem(itemID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load item", "Error getting shop item", err)
		return
	}
	if item == nil {
		respondWithError(w, http.StatusNotFound, "Item not found", "", nil)
		return
	}

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}

	hasPremium, err := h.subscriptions.IsPremium(r.Context(), view.Profile.UserID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to check subscription", "Error checking premium", err)
		return
	}

	if err := h.stateMgr.PurchaseItem(sessionID, item, hasPremium); err != nil {
		h.respondShopError(w, err)
		return
	}

	view, err = h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondShopError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) respondShopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrNoActiveProfile):
		respondWithError(w, http.StatusConflict, "No active profile", "", nil)
	case errors.Is(err, state.ErrPremiumRequired):
		respondWithError(w, http.StatusPaymentRequired, "This item requires a premium subscription", "", nil)
	case errors.Is(err, state.ErrInsufficientCoins):
		respondWithError(w, http.StatusBadRequest, "Not enough coins", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", "Error purchasing item", err)
	}
}
