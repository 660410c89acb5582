package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"englearn/internal/app/apiresp"
	"englearn/internal/logger"

	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	userContextKey contextKey = "auth_user"
	userSlotKey    contextKey = "auth_user_slot"
)

// userSlot lets middleware mounted outside RequireAuth see who the
// request was authenticated as once the handler chain returns.
type userSlot struct {
	user *User
}

type authService interface {
	AuthenticatePassword(ctx context.Context, email, password string) (*User, error)
	IssueToken(user *User) (string, time.Time, error)
	ParseToken(raw string) (*User, error)
}

type Handler struct {
	svc      authService
	validate *validator.Validate
	log      *logger.Logger
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func NewHandler(svc authService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apiresp.WriteValidation(w, r, err)
		return
	}

	user, err := h.svc.AuthenticatePassword(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			apiresp.WriteError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, ErrInactiveAccount):
			apiresp.WriteError(w, r, http.StatusForbidden, err.Error())
		default:
			h.log.Error("login failed", "error", err)
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	token, expiresAt, err := h.svc.IssueToken(user)
	if err != nil {
		h.log.Error("issue token", "user_id", user.ID, "error", err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "cannot issue token")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, user)
}

func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.svc.ParseToken(bearerToken(r))
		if err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if slot, ok := r.Context().Value(userSlotKey).(*userSlot); ok {
			slot.user = user
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func (h *Handler) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, exists := allowed[user.Role]; !exists {
				apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CurrentUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok && u != nil
}

// ContextWithUser injects an authenticated user into context.
// Useful for tests and internal handlers.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// WithUserSlot returns a context that RequireAuth will record the
// authenticated user into. Read it back with RecordedUser.
func WithUserSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, userSlotKey, &userSlot{})
}

// RecordedUser returns the user RequireAuth stored in a slot created by
// WithUserSlot, falling back to the user already on ctx.
func RecordedUser(ctx context.Context) (*User, bool) {
	if slot, ok := ctx.Value(userSlotKey).(*userSlot); ok && slot.user != nil {
		return slot.user, true
	}
	return CurrentUser(ctx)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
