package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"godlykids/internal/security"
	"godlykids/internal/service"
	"godlykids/internal/state"
	"godlykids/internal/validation"
)

// ProfileHandler handles profile management and profile switching
type ProfileHandler struct {
	profileService *service.ProfileService
	stateMgr       *state.Manager
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, stateMgr *state.Manager) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		stateMgr:       stateMgr,
	}
}

// List handles GET /api/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	profiles, err := h.profileService.GetProfiles(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profiles", "Error getting profiles", err)
		return
	}
	respondWithJSON(w, http.StatusOK, profiles)
}

type createKidRequest struct {
	Name string `json:"name"`
}

// CreateKid handles POST /api/profiles. The generated username and PIN are
// included in the response so the parent can write them down.
func (h *ProfileHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req createKidRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	profile, err := h.profileService.CreateKidProfile(user.ID, req.Name)
	if err != nil {
		h.respondProfileError(w, err, "Error creating kid profile")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"profile":  profile,
		"username": profile.Username,
		"pin":      profile.PIN,
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename handles PUT /api/profiles/{id}
func (h *ProfileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.profileService.RenameProfile(user.ID, profileID, req.Name); err != nil {
		h.respondProfileError(w, err, "Error renaming profile")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// DeleteKid handles DELETE /api/profiles/{id}
func (h *ProfileHandler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	h.stateMgr.DeactivateProfile(profileID)

	if err := h.profileService.DeleteKidProfile(user.ID, profileID); err != nil {
		h.respondProfileError(w, err, "Error deleting kid profile")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RegeneratePIN handles POST /api/profiles/{id}/pin
func (h *ProfileHandler) RegeneratePIN(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	pin, err := h.profileService.RegenerateKidPIN(user.ID, profileID)
	if err != nil {
		h.respondProfileError(w, err, "Error regenerating PIN")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"pin": pin})
}

// ResetData handles POST /api/profiles/{id}/reset. Every live session for
// the profile is deactivated first so a pending flush cannot bring the wiped
// state back, including a kid logged in under their own cookie.
func (h *ProfileHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	h.stateMgr.DeactivateProfile(profileID)

	if err := h.profileService.ResetProfileData(user.ID, profileID); err != nil {
		h.respondProfileError(w, err, "Error resetting profile data")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Activate handles POST /api/profiles/{id}/activate. Switches the parent
// session to the given profile and returns the loaded state.
func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	sessionID := GetSessionIDFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.GetOwnedProfile(user.ID, profileID)
	if err != nil {
		h.respondProfileError(w, err, "Error loading profile")
		return
	}

	view, err := h.stateMgr.Switch(sessionID, profile)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to activate profile", "Error switching profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type kidLoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// KidLogin handles POST /api/kid/login. A successful login creates a kid
// session and activates the kid's profile under it.
func (h *ProfileHandler) KidLogin(w http.ResponseWriter, r *http.Request) {
	var req kidLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	session, profile, err := h.profileService.KidLogin(req.Username, req.PIN)
	if err != nil {
		if errors.Is(err, service.ErrInvalidKidLogin) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or PIN", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Login failed", "Error logging in kid", err)
		return
	}

	view, err := h.stateMgr.Switch(session.ID, profile)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile", "Error activating kid profile", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, KidSessionCookie, session.ID, session.ExpiresAt))
	respondWithJSON(w, http.StatusOK, view)
}

// KidLogout handles POST /api/kid/logout
func (h *ProfileHandler) KidLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	h.stateMgr.Deactivate(sessionID)

	if err := h.profileService.KidLogout(sessionID); err != nil {
		log.Printf("Error deleting kid session: %v", err)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, KidSessionCookie))
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *ProfileHandler) respondProfileError(w http.ResponseWriter, err error, logMsg string) {
	var validationErr validation.ValidationError
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, "Profile not found", "", nil)
	case errors.Is(err, service.ErrProfileNotOwned):
		respondWithError(w, http.StatusForbidden, "Profile does not belong to this account", "", nil)
	case errors.Is(err, service.ErrNotKidProfile):
		respondWithError(w, http.StatusBadRequest, "Not a kid profile", "", nil)
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", logMsg, err)
	}
}

// pathID parses the {id} path segment, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", nil)
		return 0, false
	}
	return id, true
}
