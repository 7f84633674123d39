package handler

import (
	"net/http"

	"data_quest/internal/app/service"
	"data_quest/internal/common"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
	pvpService         *service.PvPService
}

func NewLeaderboardHandler(ls *service.LeaderboardService, ps *service.PvPService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls, pvpService: ps}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.top) // GET /api/v1/leaderboard?limit=10
	r.Get("/me", h.me)
	r.Get("/tier/{tier}", h.byTier) // ?limit=50&offset=0
	r.Get("/island/{islandID}", h.byIsland)
}

// RegisterAdminRoutes exposes the maintenance jobs for manual runs.
func (h *LeaderboardHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/leaderboard/rebuild", h.rebuild)
	r.Post("/pvp/expire", h.expireMatches)
}

func (h *LeaderboardHandler) top(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	entries, err := h.leaderboardService.Top(r.Context(), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	pos, err := h.leaderboardService.Me(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, pos)
}

func (h *LeaderboardHandler) byTier(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	entries, err := h.leaderboardService.ByTier(r.Context(), chi.URLParam(r, "tier"), limit, offset)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) byIsland(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	standings, err := h.leaderboardService.ByIsland(r.Context(), chi.URLParam(r, "islandID"), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, standings)
}

func (h *LeaderboardHandler) rebuild(w http.ResponseWriter, r *http.Request) {
	n, err := h.leaderboardService.Rebuild(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"entries": n})
}

func (h *LeaderboardHandler) expireMatches(w http.ResponseWriter, r *http.Request) {
	n, err := h.pvpService.ExpireStale(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int64{"expired": n})
}
