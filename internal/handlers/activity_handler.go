package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"godlykids/internal/service"
	"godlykids/internal/state"
)

const defaultEventsLimit = 50

// ActivityHandler handles activity recording for the active profile and the
// parent-facing activity reports
type ActivityHandler struct {
	activityService *service.ActivityService
	profileService  *service.ProfileService
	stateMgr        *state.Manager
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *service.ActivityService, profileService *service.ProfileService, stateMgr *state.Manager) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		profileService:  profileService,
		stateMgr:        stateMgr,
	}
}

type recordActivityRequest struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Record handles POST /api/activity for the active profile
func (h *ActivityHandler) Record(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req recordActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Kind == "" {
		respondWithError(w, http.StatusBadRequest, "Missing activity kind", "", nil)
		return
	}

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		if errors.Is(err, state.ErrNoActiveProfile) {
			respondWithError(w, http.StatusConflict, "No active profile", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load state", "Error getting state", err)
		return
	}

	if err := h.activityService.Record(view.Profile.ID, req.Kind, req.Detail); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record activity", "Error recording activity", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// RecentEvents handles GET /api/profiles/{id}/activity for the parent
func (h *ActivityHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.profileService.GetOwnedProfile(user.ID, profileID); err != nil {
		h.respondOwnershipError(w, err)
		return
	}

	events, err := h.activityService.GetRecentEvents(profileID, defaultEventsLimit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load activity", "Error getting activity events", err)
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

// Summaries handles GET /api/profiles/{id}/activity/summary?days=N for the
// parent dashboard
func (h *ActivityHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profileID, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.profileService.GetOwnedProfile(user.ID, profileID); err != nil {
		h.respondOwnershipError(w, err)
		return
	}

	days := 7
	if param := r.URL.Query().Get("days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 || parsed > 90 {
			respondWithError(w, http.StatusBadRequest, "Invalid days parameter", "", nil)
			return
		}
		days = parsed
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)
	summaries, err := h.activityService.GetSummaries(profileID, from, to)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load activity summary", "Error getting activity summaries", err)
		return
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

func (h *ActivityHandler) respondOwnershipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, "Profile not found", "", nil)
	case errors.Is(err, service.ErrProfileNotOwned):
		respondWithError(w, http.StatusForbidden, "Profile does not belong to this account", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", "Error loading profile", err)
	}
}
