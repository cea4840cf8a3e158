package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lashstudio/studio-backend/libs/auth"
	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
)

type profileRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

func (p profileRequest) model() model.Profile {
	return model.Profile{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Phone:     strings.TrimSpace(p.Phone),
		AvatarURL: strings.TrimSpace(p.AvatarURL),
	}
}

type createUserRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8"`
	Role        string             `json:"role" validate:"omitempty,oneof=client technician admin"`
	Profile     profileRequest     `json:"profile"`
	Preferences *model.Preferences `json:"preferences"`
	MedicalInfo json.RawMessage    `json:"medical_info"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.logger.Error("password hash failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	u := model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         model.RoleClient,
		Profile:      req.Profile.model(),
		Preferences:  model.DefaultPreferences(),
		MedicalInfo:  req.MedicalInfo,
		IsActive:     true,
	}
	if role, ok := model.ParseRole(req.Role); ok {
		u.Role = role
	}
	if req.Preferences != nil {
		u.Preferences = *req.Preferences
	}
	if err := a.Users.Create(r.Context(), &u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, map[string]any{"user_id": u.ID, "message": "User created successfully"})
}

func canAccessUser(caller model.User, id string) bool {
	return caller.Role == model.RoleAdmin || caller.ID == id
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, caller model.User) {
	id := r.PathValue("id")
	if !canAccessUser(caller, id) {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	u, err := a.Users.Get(r.Context(), id)
	if err != nil {
		a.storeError(w, r, err, "user not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{"user": u})
}

// updateUserRequest fields are optional; role and is_active are honoured for admins only.
type updateUserRequest struct {
	Profile     *profileRequest    `json:"profile"`
	Preferences *model.Preferences `json:"preferences"`
	MedicalInfo json.RawMessage    `json:"medical_info"`
	Role        *string            `json:"role" validate:"omitempty,oneof=client technician admin"`
	IsActive    *bool              `json:"is_active"`
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, caller model.User) {
	id := r.PathValue("id")
	if !canAccessUser(caller, id) {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	var req updateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := a.Users.Get(r.Context(), id)
	if err != nil {
		a.storeError(w, r, err, "user not found")
		return
	}
	if req.Profile != nil {
		u.Profile = req.Profile.model()
	}
	if req.Preferences != nil {
		u.Preferences = *req.Preferences
	}
	if len(req.MedicalInfo) > 0 {
		u.MedicalInfo = req.MedicalInfo
	}
	if caller.Role == model.RoleAdmin {
		if req.Role != nil {
			u.Role, _ = model.ParseRole(*req.Role)
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
	}
	if err := a.Users.Save(r.Context(), u); err != nil {
		a.storeError(w, r, err, "user not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "User updated successfully"})
}
