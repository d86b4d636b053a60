package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/auth"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

type Handler struct {
	Service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.With(middleware.RequireUser).Get("/me", h.HandleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"userId"`
	PersonNumber string `json:"personNumber"`
	Role         string `json:"role"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	token, user, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		slog.Error("login failed", "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	api.Success(w, loginResponse{
		Token:        token,
		UserID:       user.ID,
		PersonNumber: user.PersonNumber,
		Role:         user.RoleName,
	}, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	perms := auth.RolePermissions[user.RoleName]
	api.Success(w, map[string]any{
		"userId":       user.UserID,
		"personNumber": user.PersonNumber,
		"role":         user.RoleName,
		"permissions":  perms,
	}, middleware.GetRequestID(r.Context()))
}
