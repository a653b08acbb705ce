package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/domain"
)

const adminTokenHeader = "X-Admin-Token"

// API serves the REST endpoints around the game: scoreboard, quiz search and submissions.
type API struct {
	games      *app.GameService
	catalog    *app.CatalogService
	adminToken string
}

// NewAPI builds the REST handlers. An empty adminToken leaves admin routes open.
func NewAPI(games *app.GameService, catalog *app.CatalogService, adminToken string) *API {
	return &API{games: games, catalog: catalog, adminToken: adminToken}
}

// Register mounts the REST routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/scoreboard", a.scoreboard)
	mux.HandleFunc("POST /api/scores", a.saveScore)
	mux.HandleFunc("GET /api/quizzes", a.searchQuizzes)
	mux.HandleFunc("POST /api/submissions", a.submitQuiz)
	mux.HandleFunc("GET /api/admin/submissions", a.admin(a.pendingSubmissions))
	mux.HandleFunc("POST /api/admin/submissions/{id}/approve", a.admin(a.approveSubmission))
	mux.HandleFunc("POST /api/admin/submissions/{id}/reject", a.admin(a.rejectSubmission))
}

type saveScoreRequest struct {
	UserName string `json:"userName"`
	Score    int    `json:"score"`
}

type submitQuizRequest struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	SubmittedBy string `json:"submittedBy"`
}

func (a *API) scoreboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	scores, err := a.games.Scoreboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *API) saveScore(w http.ResponseWriter, r *http.Request) {
	var req saveScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	saved, err := a.games.SaveScore(r.Context(), req.UserName, req.Score)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) searchQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *API) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	sub, err := a.catalog.SubmitQuiz(r.Context(), req.Question, req.Answer, req.SubmittedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) pendingSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := a.catalog.PendingSubmissions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (a *API) approveSubmission(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.catalog.ApproveSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *API) rejectSubmission(w http.ResponseWriter, r *http.Request) {
	if err := a.catalog.RejectSubmission(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adminToken != "" {
			got := r.Header.Get(adminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(a.adminToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "admin token required")
				return
			}
		}
		next(w, r)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRoundNotCompleted),
		errors.Is(err, domain.ErrScoreAlreadySaved),
		errors.Is(err, domain.ErrRoundLoading):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("write response failed")
	}
}
