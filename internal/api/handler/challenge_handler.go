package handler

import (
	"net/http"
	"strconv"

	"data_quest/internal/app/service"
	"data_quest/internal/common"

	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	submissionService *service.SubmissionService
}

func NewChallengeHandler(ss *service.SubmissionService) *ChallengeHandler {
	return &ChallengeHandler{submissionService: ss}
}

// RegisterRoutes expects to be mounted behind middleware.RequireCaller.
func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listChallenges)                  // GET /api/v1/challenges?island=sql
	r.Get("/{challengeID}", h.getChallenge)       // GET /api/v1/challenges/sql-101
	r.Post("/{challengeID}/submit", h.submit)     // POST /api/v1/challenges/sql-101/submit
	r.Get("/{challengeID}/hints/{level}", h.hint) // GET /api/v1/challenges/sql-101/hints/2
}

func (h *ChallengeHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	challenges, err := h.submissionService.ListChallenges(r.Context(), userID, r.URL.Query().Get("island"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.submissionService.GetChallenge(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userID
	req.ChallengeID = chi.URLParam(r, "challengeID")

	result, err := h.submissionService.Submit(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

// hint takes the learner's current code from the "code" query parameter.
func (h *ChallengeHandler) hint(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Hint level must be a number")
		return
	}
	hint, err := h.submissionService.Hint(r.Context(), chi.URLParam(r, "challengeID"), r.URL.Query().Get("code"), level)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, hint)
}
