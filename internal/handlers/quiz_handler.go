package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"godlykids/internal/service"
	"godlykids/internal/state"
)

const defaultResultsLimit = 20

// QuizHandler handles Bible quiz retrieval, generation and grading
type QuizHandler struct {
	quizService *service.QuizService
	stateMgr    *state.Manager
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizService *service.QuizService, stateMgr *state.Manager) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		stateMgr:    stateMgr,
	}
}

// GetByReference handles GET /api/quizzes?reference=... A stored quiz for
// the passage is returned when one exists, otherwise one is generated.
func (h *QuizHandler) GetByReference(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		respondWithError(w, http.StatusBadRequest, "Missing reference parameter", "", nil)
		return
	}

	quiz, err := h.quizService.GetOrGenerateQuiz(r.Context(), reference)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			respondWithError(w, http.StatusNotFound, "No quiz available for this passage", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load quiz", "Error getting quiz", err)
		return
	}
	respondWithJSON(w, http.StatusOK, quiz)
}

// GetByID handles GET /api/quizzes/{id}
func (h *QuizHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quiz ID", "", nil)
		return
	}

	quiz, err := h.quizService.GetQuiz(quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			respondWithError(w, http.StatusNotFound, "Quiz not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load quiz", "Error getting quiz", err)
		return
	}
	respondWithJSON(w, http.StatusOK, quiz)
}

type submitAnswersRequest struct {
	Answers []int `json:"answers"`
}

// Submit handles POST /api/quizzes/{id}/submit. Grades the answers and pays
// out coins for correct ones.
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	quizID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quiz ID", "", nil)
		return
	}

	var req submitAnswersRequest
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

	result, err := h.quizService.SubmitAnswers(sessionID, view.Profile.ID, quizID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			respondWithError(w, http.StatusNotFound, "Quiz not found", "", nil)
		case errors.Is(err, service.ErrWrongAnswerSet):
			respondWithError(w, http.StatusBadRequest, "Answer count does not match the quiz", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to grade quiz", "Error submitting answers", err)
		}
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Results handles GET /api/quizzes/results for the active profile
func (h *QuizHandler) Results(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())

	view, err := h.stateMgr.Get(sessionID)
	if err != nil {
		if errors.Is(err, state.ErrNoActiveProfile) {
			respondWithError(w, http.StatusConflict, "No active profile", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load state", "Error getting state", err)
		return
	}

	results, err := h.quizService.GetResults(view.Profile.ID, defaultResultsLimit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load results", "Error getting quiz results", err)
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}
