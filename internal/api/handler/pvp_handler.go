package handler

import (
	"net/http"

	"data_quest/internal/app/service"
	"data_quest/internal/common"
	"data_quest/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type PvPHandler struct {
	pvpService *service.PvPService
}

func NewPvPHandler(ps *service.PvPService) *PvPHandler {
	return &PvPHandler{pvpService: ps}
}

type findMatchRequest struct {
	ChallengeID string `json:"challengeId"`
}

func (h *PvPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/challenges", h.listChallenges)
	r.Get("/standings", h.standings)

	r.Get("/matches", h.listMatches) // ?status=active
	r.Post("/matches", h.findOrCreate)
	r.Get("/matches/{matchID}", h.getMatch)
	r.Post("/matches/{matchID}/submit", h.submit)
	r.Post("/matches/{matchID}/cancel", h.cancel)
}

func (h *PvPHandler) findOrCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req findMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChallengeID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "challengeId is required")
		return
	}

	result, err := h.pvpService.FindOrCreate(r.Context(), userID, req.ChallengeID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	common.RespondWithJSON(w, status, result)
}

func (h *PvPHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.PvPSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userID
	req.MatchID = chi.URLParam(r, "matchID")

	result, err := h.pvpService.Submit(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *PvPHandler) getMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.pvpService.GetMatch(r.Context(), chi.URLParam(r, "matchID"), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *PvPHandler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.pvpService.Cancel(r.Context(), chi.URLParam(r, "matchID"), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *PvPHandler) listMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := model.MatchStatus(r.URL.Query().Get("status"))
	matches, err := h.pvpService.ListUserMatches(r.Context(), userID, status)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, matches)
}

func (h *PvPHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.pvpService.ListChallenges(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenges)
}

func (h *PvPHandler) standings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	standings, err := h.pvpService.Standings(r.Context(), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, standings)
}
