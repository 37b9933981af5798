// Package users implements signup and the /users/me profile endpoints.
package users

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// MinAge is the minimum age required to sign up.
const MinAge = 15

const birthDateLayout = "2006-01-02"

// UserStore defines the user persistence the handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// Handler holds the user HTTP handlers.
type Handler struct {
	users UserStore
}

func NewHandler(users UserStore) *Handler {
	return &Handler{users: users}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Signup creates a new user account. POST /api/signup, public.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" || req.BirthDate == "" {
		apperr.Write(w, apperr.Validation("username, password and birth_date are required"))
		return
	}

	birth, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		apperr.Write(w, apperr.Validation("birth_date must be formatted as YYYY-MM-DD"))
		return
	}
	if models.AgeAt(birth, time.Now()) < MinAge {
		apperr.Write(w, apperr.Validation("user must be at least %d years old", MinAge))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}

	user := &models.User{
		Username:        req.Username,
		Password:        string(hashed),
		BirthDate:       birth,
		CanBeContacted:  req.CanBeContacted,
		CanDataBeShared: req.CanDataBeShared,
	}
	if _, err := h.users.CreateUser(r.Context(), user); err != nil {
		apperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "user created successfully"})
}

// Me returns the authenticated user's profile. GET /api/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), middleware.UserID(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial update to the authenticated user's
// profile. PUT and PATCH /api/users/me behave identically.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.users.GetUserByID(r.Context(), middleware.UserID(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	if req.Username != nil {
		if *req.Username == "" {
			apperr.Write(w, apperr.Validation("username cannot be empty"))
			return
		}
		user.Username = *req.Username
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			apperr.Write(w, apperr.Internal(err))
			return
		}
		user.Password = string(hashed)
	}
	if req.BirthDate != nil {
		birth, err := time.Parse(birthDateLayout, *req.BirthDate)
		if err != nil {
			apperr.Write(w, apperr.Validation("birth_date must be formatted as YYYY-MM-DD"))
			return
		}
		if models.AgeAt(birth, time.Now()) < MinAge {
			apperr.Write(w, apperr.Validation("user must be at least %d years old", MinAge))
			return
		}
		user.BirthDate = birth
	}
	if req.CanBeContacted != nil {
		user.CanBeContacted = *req.CanBeContacted
	}
	if req.CanDataBeShared != nil {
		user.CanDataBeShared = *req.CanDataBeShared
	}

	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteMe removes the authenticated user's account. Authored projects,
// issues and comments cascade away; assignments are nulled out.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), middleware.UserID(r)); err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted successfully"})
}
