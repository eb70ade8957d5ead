package handlers

import (
	"errors"
	"net/http"

	"godlykids/internal/service"
	"godlykids/internal/state"
)

const defaultCommentsLimit = 50

// ContentHandler handles devotional comments and parent surveys
type ContentHandler struct {
	contentService *service.ContentService
	stateMgr       *state.Manager
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService *service.ContentService, stateMgr *state.Manager) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		stateMgr:       stateMgr,
	}
}

type postCommentRequest struct {
	Topic string `json:"topic"`
	Body  string `json:"body"`
}

// PostComment handles POST /api/comments for the active profile
func (h *ContentHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req postCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
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

	comment, err := h.contentService.PostComment(view.Profile.ID, req.Topic, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommentEmpty):
			respondWithError(w, http.StatusBadRequest, "Comment cannot be empty", "", nil)
		case errors.Is(err, service.ErrCommentTooLong):
			respondWithError(w, http.StatusBadRequest, "Comment is too long", "", nil)
		case errors.Is(err, service.ErrCommentBlocked):
			respondWithError(w, http.StatusBadRequest, "Comment contains blocked language", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to post comment", "Error posting comment", err)
		}
		return
	}
	respondWithJSON(w, http.StatusCreated, comment)
}

// GetComments handles GET /api/comments?topic=...
func (h *ContentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		respondWithError(w, http.StatusBadRequest, "Missing topic parameter", "", nil)
		return
	}

	comments, err := h.contentService.GetComments(r.Context(), topic, defaultCommentsLimit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load comments", "Error getting comments", err)
		return
	}
	respondWithJSON(w, http.StatusOK, comments)
}

type surveyRequest struct {
	Survey  string `json:"survey"`
	Answers string `json:"answers"`
}

// SubmitSurvey handles POST /api/surveys for the parent account
func (h *ContentHandler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req surveyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	response, err := h.contentService.SubmitSurvey(user.ID, req.Survey, req.Answers)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSurvey) {
			respondWithError(w, http.StatusBadRequest, "Invalid survey submission", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to submit survey", "Error submitting survey", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, response)
}
