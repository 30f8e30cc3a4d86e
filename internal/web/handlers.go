// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/threadboard/threadboard/internal/auth"
)

// maxBodyBytes caps request bodies; every payload here is a few short strings.
const maxBodyBytes = 64 << 10

// AuthService is the subset of *auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) auth.UserResponse
	Login(ctx context.Context, usernameOrEmail, password string) auth.UserResponse
	Logout(ctx context.Context, sessionID string) bool
	WhoAmI(ctx context.Context, sessionID string) *auth.User
	ForgotPassword(ctx context.Context, email string) bool
	ChangePassword(ctx context.Context, token, newPassword string) auth.UserResponse
}

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRecorder sets the HTTP metrics recorder.
func WithRecorder(r HTTPRecorder) Option {
	return func(h *handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

type handler struct {
	svc      AuthService
	cookie   CookieConfig
	logger   *slog.Logger
	recorder HTTPRecorder
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type meResponse struct {
	User *auth.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns the API router.
func NewHandler(svc AuthService, cookie CookieConfig, opts ...Option) http.Handler {
	h := &handler{
		svc:      svc,
		cookie:   cookie,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := mux.NewRouter()
	r.Use(requestID, instrument(h.logger, h.recorder))

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", h.register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	a.HandleFunc("/me", h.me).Methods(http.MethodGet)
	a.HandleFunc("/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/change-password", h.changePassword).Methods(http.MethodPost)

	r.NotFoundHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	}))
	r.MethodNotAllowedHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}))

	return r
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !h.decode(w, r, &in) {
		return
	}
	h.writeUser(w, r, h.svc.Register(r.Context(), in))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !h.decode(w, r, &in) {
		return
	}
	h.writeUser(w, r, h.svc.Login(r.Context(), in.UsernameOrEmail, in.Password))
}

// logout destroys the session before clearing the cookie, so the client
// never drops a session the server still honors. The cookie is cleared on
// both outcomes.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	ok := h.svc.Logout(r.Context(), h.cookie.sessionID(r))
	http.SetCookie(w, h.cookie.expired())
	h.writeJSON(w, http.StatusOK, okResponse{OK: ok})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, meResponse{User: h.svc.WhoAmI(r.Context(), h.cookie.sessionID(r))})
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotPasswordRequest
	if !h.decode(w, r, &in) {
		return
	}
	h.writeJSON(w, http.StatusOK, okResponse{OK: h.svc.ForgotPassword(r.Context(), in.Email)})
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if !h.decode(w, r, &in) {
		return
	}
	h.writeUser(w, r, h.svc.ChangePassword(r.Context(), in.Token, in.NewPassword))
}

// writeUser sets the session cookie when resp opened a session. The session
// the request arrived with, if any, is destroyed so a client holds one live
// session at a time. An empty response, the result of an unexpected failure,
// is written as {}.
func (h *handler) writeUser(w http.ResponseWriter, r *http.Request, resp auth.UserResponse) {
	if resp.SessionID != "" {
		if prev := h.cookie.sessionID(r); prev != "" && prev != resp.SessionID {
			if !h.svc.Logout(r.Context(), prev) {
				h.logger.WarnContext(r.Context(), "previous session not destroyed")
			}
		}
		http.SetCookie(w, h.cookie.session(resp.SessionID))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.logger.DebugContext(r.Context(), "rejecting request body", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}
