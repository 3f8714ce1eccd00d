package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/lianamed/pharmacy-api/internal/domain/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// Register creates a customer account. Privileged roles are only assignable
// by seeding or by a future admin surface, never by self-registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.auth.Register(r.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, user.ErrInvalidCredentials):
			respondError(w, http.StatusBadRequest, "email and password are required")
		default:
			respondInternal(w, r, err)
		}
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(u))
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

// Me returns the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// ListUsers returns every account for the admin dashboard.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	respondJSON(w, http.StatusOK, out)
}
