package handlers

import (
	"errors"
	"net/http"

	"godlykids/internal/repository"
	"godlykids/internal/state"
	"godlykids/internal/validation"
)

// EconomyHandler handles coin state, earning, spending and code redemption
// for the active profile
type EconomyHandler struct {
	stateMgr *state.Manager
	userRepo *repository.UserRepository
}

// NewEconomyHandler creates a new economy handler
func NewEconomyHandler(stateMgr *state.Manager, userRepo *repository.UserRepository) *EconomyHandler {
	return &EconomyHandler{
		stateMgr: stateMgr,
		userRepo: userRepo,
	}
}

// GetState handles GET /api/state. Returns the active profile with its
// economy and avatar.
func (h *EconomyHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error getting state")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type coinsRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Source string `json:"source,omitempty"`
}

// Earn handles POST /api/coins/earn
func (h *EconomyHandler) Earn(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req coinsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Source == "" {
		req.Source = "app"
	}

	if err := h.stateMgr.AddCoins(sessionID, req.Amount, req.Reason, req.Source); err != nil {
		h.respondEconomyError(w, err, "Error adding coins")
		return
	}

	h.respondCurrentState(w, sessionID)
}

// Spend handles POST /api/coins/spend. Insufficient balance is reported in
// the body rather than as an error so clients can react without special
// casing status codes.
func (h *EconomyHandler) Spend(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req coinsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	ok, err := h.stateMgr.SpendCoins(sessionID, req.Amount, req.Reason)
	if err != nil {
		h.respondEconomyError(w, err, "Error spending coins")
		return
	}

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error getting state")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": ok,
		"coins":   view.Economy.Coins,
	})
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem handles POST /api/codes/redeem
func (h *EconomyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	ownCode, err := h.ownReferralCode(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error loading referral code")
		return
	}

	reward, err := h.stateMgr.RedeemCode(sessionID, req.Code, ownCode)
	if err != nil {
		h.respondEconomyError(w, err, "Error redeeming code")
		return
	}

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error getting state")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reward": reward,
		"coins":  view.Economy.Coins,
	})
}

// Transactions handles GET /api/transactions. Newest first, capped.
func (h *EconomyHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error getting state")
		return
	}
	respondWithJSON(w, http.StatusOK, view.Economy.Transactions)
}

// ownReferralCode returns the referral code of the account that owns the
// active profile. Redeeming your own family code is rejected.
func (h *EconomyHandler) ownReferralCode(sessionID string) (string, error) {
	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		return "", err
	}
	user, err := h.userRepo.GetUserByID(view.Profile.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ReferralCode, nil
}

func (h *EconomyHandler) respondCurrentState(w http.ResponseWriter, sessionID string) {
	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondEconomyError(w, err, "Error getting state")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *EconomyHandler) respondEconomyError(w http.ResponseWriter, err error, logMsg string) {
	var validationErr validation.ValidationError
	switch {
	case errors.Is(err, state.ErrNoActiveProfile):
		respondWithError(w, http.StatusConflict, "No active profile", "", nil)
	case errors.Is(err, state.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, "Amount must be positive", "", nil)
	case errors.Is(err, state.ErrOwnCode):
		respondWithError(w, http.StatusBadRequest, "You cannot redeem your own family code", "", nil)
	case errors.Is(err, state.ErrCodeAlreadyRedeemed):
		respondWithError(w, http.StatusConflict, "Code already redeemed", "", nil)
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", logMsg, err)
	}
}
