package handler

import (
	"errors"
	"net/http"

	"github.com/templui/authgate/internal/service"
)

const (
	msgIncorrectCredentials = "Incorrect username and password combination"
	msgInvalidOrExpired     = "Invalid or expired token"
	msgInvalidToken         = "Invalid token."
	msgResetAck             = "If your email is registered, you will receive a password reset link."
)

type authHandler struct {
	sessionService *service.SessionService
	resetService   *service.PasswordResetService
	userService    *service.UserService
}

func NewAuthHandler(sessionService *service.SessionService, resetService *service.PasswordResetService, userService *service.UserService) *authHandler {
	return &authHandler{
		sessionService: sessionService,
		resetService:   resetService,
		userService:    userService,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.sessionService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var rejection *service.StatusRejection
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeDetail(w, http.StatusBadRequest, msgIncorrectCredentials)
		case errors.As(err, &rejection):
			writeDetail(w, http.StatusBadRequest, rejection.Reason)
		default:
			writeFault(w, r, "login failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	_, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			writeDetail(w, http.StatusBadRequest, "Username or email already exists.")
			return
		}
		writeFault(w, r, "registration failed", err)
		return
	}

	writeMessage(w, "User registered successfully.")
}

type tokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

func (h *authHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.sessionService.ValidateToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			writeDetail(w, http.StatusBadRequest, msgInvalidOrExpired)
			return
		}
		writeFault(w, r, "token validation failed", err)
		return
	}

	writeMessage(w, "Token is valid.")
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.sessionService.Logout(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			writeDetail(w, http.StatusBadRequest, msgInvalidToken)
			return
		}
		writeFault(w, r, "logout failed", err)
		return
	}

	writeMessage(w, "Logged out successfully.")
}

type forgottenPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

func (h *authHandler) ForgottenPassword(w http.ResponseWriter, r *http.Request) {
	var req forgottenPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.resetService.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeFault(w, r, "password reset request failed", err)
		return
	}

	// Same answer whether or not the email is registered
	writeMessage(w, msgResetAck)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Password string `json:"password" validate:"required,password"`
}

func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.resetService.PerformReset(r.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			writeDetail(w, http.StatusBadRequest, msgInvalidOrExpired)
			return
		}
		writeFault(w, r, "password reset failed", err)
		return
	}

	writeMessage(w, "Password reset successfully.")
}
