package handler

import (
	"net/http"

	"data_quest/internal/app/service"
	"data_quest/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Get("/me/progress", h.myProgress)
	r.Get("/{userID}", h.public)
	r.Get("/{userID}/progress", h.progress)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.userService.Profile(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) myProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.respondProgress(w, r, userID, userID)
}

func (h *UserHandler) public(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.PublicProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) progress(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.respondProgress(w, r, chi.URLParam(r, "userID"), viewerID)
}

func (h *UserHandler) respondProgress(w http.ResponseWriter, r *http.Request, userID, viewerID string) {
	report, err := h.userService.Progress(r.Context(), userID, viewerID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, report)
}
