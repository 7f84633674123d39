package handler

import (
	"net/http"

	"data_quest/internal/app/service"

	"github.com/go-chi/chi/v5"
)

// AuthHandler issues tokens. Its routes sit outside RequireCaller.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", jsonAction(http.StatusCreated, h.auth.Signup))
	r.Post("/login", jsonAction(http.StatusOK, h.auth.Login))
}
