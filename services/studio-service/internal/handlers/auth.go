package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/lashstudio/studio-backend/libs/auth"
	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, caller model.User)

// require verifies the bearer token and loads the caller. The role always comes
// from the users table, never from the token. With no roles any signed-in user passes.
func (a *API) require(next authedHandler, roles ...model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, a.cfg.JWTSecret)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		caller, err := a.Users.Get(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.WriteError(w, http.StatusNotFound, "user not found")
				return
			}
			a.storeError(w, r, err, "user not found")
			return
		}
		if !caller.IsActive {
			httpx.WriteError(w, http.StatusForbidden, "account disabled")
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, caller.Role) {
			httpx.WriteError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next(w, r, caller)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := a.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.storeError(w, r, err, "")
		return
	}
	if err != nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, req.Password) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := auth.Issue(u.ID, string(u.Role), a.cfg.JWTSecret, a.cfg.TokenTTL, a.now())
	if err != nil {
		a.logger.Error("token issue failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"token": token, "user_id": u.ID, "role": u.Role})
}
