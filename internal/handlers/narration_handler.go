package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"godlykids/internal/state"
	"godlykids/internal/voice"
)

// defaultVoiceID is the narrator voice every profile can use without a
// purchase
const defaultVoiceID = "voice-default"

// NarrationHandler generates story narration audio with the voice service
type NarrationHandler struct {
	voiceClient *voice.Client
	stateMgr    *state.Manager
	samplesDir  string
}

// NewNarrationHandler creates a new narration handler
func NewNarrationHandler(voiceClient *voice.Client, stateMgr *state.Manager, samplesDir string) *NarrationHandler {
	return &NarrationHandler{
		voiceClient: voiceClient,
		stateMgr:    stateMgr,
		samplesDir:  samplesDir,
	}
}

type narrateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	VoiceID  string `json:"voiceId,omitempty"`
}

// Narrate handles POST /api/narrate. Returns the cached audio filename,
// generating it on first use. Purchased voices are profile-gated.
func (h *NarrationHandler) Narrate(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	var req narrateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Text == "" {
		respondWithError(w, http.StatusBadRequest, "Missing text", "", nil)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.VoiceID == "" {
		req.VoiceID = defaultVoiceID
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

	if req.VoiceID != defaultVoiceID && !view.Economy.HasVoice(req.VoiceID) {
		respondWithError(w, http.StatusForbidden, "Voice not unlocked", "", nil)
		return
	}

	speakerSample := filepath.Join(h.samplesDir, req.VoiceID+".wav")
	filename, err := h.voiceClient.Narrate(r.Context(), req.Text, req.Language, req.VoiceID, speakerSample)
	if err != nil {
		if errors.Is(err, voice.ErrNotConfigured) {
			respondWithError(w, http.StatusServiceUnavailable, "Narration is not available", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to generate narration", "Error generating narration", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"audioUrl": "/static/audio/" + filename,
	})
}
