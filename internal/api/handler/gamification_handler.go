package handler

import (
	"net/http"

	"data_quest/internal/app/service"
	"data_quest/internal/common"

	"github.com/go-chi/chi/v5"
)

// GamificationHandler serves the caller's achievements, streak and notifications.
type GamificationHandler struct {
	achievementService  *service.AchievementService
	streakService       *service.StreakService
	notificationService *service.NotificationService
}

func NewGamificationHandler(as *service.AchievementService, ss *service.StreakService, ns *service.NotificationService) *GamificationHandler {
	return &GamificationHandler{achievementService: as, streakService: ss, notificationService: ns}
}

// RegisterRoutes mounts the /me routes.
func (h *GamificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/achievements", h.listUnlocked)
	r.Post("/achievements/check", h.checkAchievements)
	r.Get("/streak", h.getStreak)
	r.Post("/streak/check", h.checkStreak)
	r.Get("/notifications", h.listNotifications) // ?unread=true&limit=20
	r.Post("/notifications/{notificationID}/read", h.markRead)
}

// ListAchievements serves the full catalog with the caller's unlock state.
func (h *GamificationHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	badges, err := h.achievementService.ListAll(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, badges)
}

func (h *GamificationHandler) listUnlocked(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	badges, err := h.achievementService.ListUnlocked(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, badges)
}

func (h *GamificationHandler) checkAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	badges, err := h.achievementService.CheckAchievements(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"newAchievements": badges})
}

func (h *GamificationHandler) getStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	streak, err := h.streakService.Get(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, streak)
}

func (h *GamificationHandler) checkStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	update, err := h.streakService.CheckAndUpdate(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, update)
}

func (h *GamificationHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := h.notificationService.List(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, list)
}

func (h *GamificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), userID, chi.URLParam(r, "notificationID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
