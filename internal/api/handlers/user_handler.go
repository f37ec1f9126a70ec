package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/service"
)

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, userID int64) (*models.User, *models.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, in service.ProfileInput) (*models.Profile, error)
}

type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RegisterResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type MeResponse struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	user, token, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{User: user, Token: token})
}

func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, profile, err := h.users.Me(r.Context(), caller(r).UserID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user, Profile: profile})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), caller(r).UserID, req)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
