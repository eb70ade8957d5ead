package handlers

import (
	"errors"
	"net/http"

	"godlykids/internal/models"
	"godlykids/internal/state"
)

// AvatarHandler handles avatar slot equipping and part poses for the active
// profile
type AvatarHandler struct {
	stateMgr *state.Manager
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(stateMgr *state.Manager) *AvatarHandler {
	return &AvatarHandler{stateMgr: stateMgr}
}

type equipRequest struct {
	Value string `json:"value"`
}

// Equip handles PUT /api/avatar/slots/{slot}
func (h *AvatarHandler) Equip(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	slot := r.PathValue("slot")

	var req equipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.stateMgr.EquipSlot(sessionID, slot, req.Value); err != nil {
		h.respondAvatarError(w, err)
		return
	}
	h.respondAvatar(w, sessionID)
}

// Unequip handles DELETE /api/avatar/slots/{slot}
func (h *AvatarHandler) Unequip(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	slot := r.PathValue("slot")

	if err := h.stateMgr.UnequipSlot(sessionID, slot); err != nil {
		h.respondAvatarError(w, err)
		return
	}
	h.respondAvatar(w, sessionID)
}

// SetPose handles PUT /api/avatar/slots/{slot}/pose. Out of range values are
// clamped, not rejected, and the applied pose is returned.
func (h *AvatarHandler) SetPose(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	slot := r.PathValue("slot")

	var pose models.PartPose
	if err := decodeJSON(r, &pose); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	applied, err := h.stateMgr.SetPartPose(sessionID, slot, pose)
	if err != nil {
		h.respondAvatarError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, applied)
}

// Reset handles POST /api/avatar/reset. Returns the avatar to defaults while
// keeping owned items.
func (h *AvatarHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	if err := h.stateMgr.ResetAvatar(sessionID); err != nil {
		h.respondAvatarError(w, err)
		return
	}
	h.respondAvatar(w, sessionID)
}

func (h *AvatarHandler) respondAvatar(w http.ResponseWriter, sessionID string) {
	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		h.respondAvatarError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view.Avatar)
}

func (h *AvatarHandler) respondAvatarError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrNoActiveProfile):
		respondWithError(w, http.StatusConflict, "No active profile", "", nil)
	case errors.Is(err, state.ErrUnknownSlot):
		respondWithError(w, http.StatusBadRequest, "Unknown avatar slot", "", nil)
	case errors.Is(err, state.ErrSlotNotEquipped):
		respondWithError(w, http.StatusBadRequest, "Nothing equipped in this slot", "", nil)
	case errors.Is(err, state.ErrItemNotOwned):
		respondWithError(w, http.StatusForbidden, "Item not owned", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", "Error updating avatar", err)
	}
}
