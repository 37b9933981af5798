package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/models"
)

// UserStore is the slice of user persistence the token endpoints need.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore manages refresh tokens. Implemented by RefreshStore on
// Redis.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// Handler holds the token-issuance HTTP handlers.
type Handler struct {
	users    UserStore
	tokens   *Tokens
	sessions SessionStore
}

func NewHandler(users UserStore, tokens *Tokens, sessions SessionStore) *Handler {
	return &Handler{users: users, tokens: tokens, sessions: sessions}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Token authenticates username+password and issues an access/refresh
// token pair. POST /api/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		apperr.Write(w, apperr.Validation("username and password are required"))
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		// Do not reveal whether the username exists.
		apperr.Write(w, apperr.Authentication("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		apperr.Write(w, apperr.Authentication("invalid credentials"))
		return
	}

	h.issuePair(w, r, user)
}

// Refresh exchanges a valid refresh token for a new token pair,
// rotating the refresh token. POST /api/token/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Validation("invalid request body"))
		return
	}
	if req.Refresh == "" {
		apperr.Write(w, apperr.Validation("refresh token is required"))
		return
	}

	userIDStr, err := h.sessions.Get(r.Context(), req.Refresh)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	if userIDStr == "" {
		apperr.Write(w, apperr.Authentication("invalid or expired refresh token"))
		return
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		apperr.Write(w, apperr.Authentication("invalid or expired refresh token"))
		return
	}

	if err := h.sessions.Delete(r.Context(), req.Refresh); err != nil {
		log.Printf("refresh token revoke: %v", err)
	}
	h.issuePair(w, r, user)
}

func (h *Handler) issuePair(w http.ResponseWriter, r *http.Request, user *models.User) {
	access, err := h.tokens.Sign(user.ID, user.Username)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	refresh, err := h.sessions.Create(r.Context(), strconv.FormatInt(user.ID, 10))
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{Access: access, Refresh: refresh})
}
