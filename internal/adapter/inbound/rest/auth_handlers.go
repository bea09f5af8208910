package rest

import (
	"net/http"

	"github.com/opsdeck/opsdeck/internal/domain/auth"
)

type registerRequest struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password, req.Role, claimsFromContext(r.Context()))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, loginResponse{User: user, Token: token})
}

// handleMe returns the account behind the presented token.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := h.auth.GetUser(r.Context(), claims.Subject)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}
