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

func (a *API) getSiteSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.Settings.Get(r.Context())
	if err != nil {
		a.storeError(w, r, err, "site settings not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{"settings": s.Public()})
}

func (a *API) updateSiteSettings(w http.ResponseWriter, r *http.Request, caller model.User) {
	var patch map[string]any
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	patch["updated_at"] = a.now().UTC()
	patch["updated_by"] = caller.ID
	if err := a.Settings.Merge(r.Context(), patch); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "Site settings updated successfully"})
}

func (a *API) listTestimonials(w http.ResponseWriter, r *http.Request) {
	items, err := a.Content.ListTestimonials(r.Context(), r.URL.Query().Get("featured") == "true")
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if items == nil {
		items = []model.Testimonial{}
	}
	respond(w, http.StatusOK, map[string]any{"testimonials": items})
}

type createTestimonialRequest struct {
	ClientName      string `json:"client_name" validate:"required"`
	Rating          int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText      string `json:"review_text" validate:"required"`
	ServiceReceived string `json:"service_received"`
	AppointmentID   string `json:"appointment_id"`
	DisplayOrder    int    `json:"display_order"`
}

func (a *API) createTestimonial(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req createTestimonialRequest
	if !decode(w, r, &req) {
		return
	}
	now := a.now().UTC()
	t := model.Testimonial{
		ClientName:      req.ClientName,
		Rating:          req.Rating,
		ReviewText:      req.ReviewText,
		ServiceReceived: req.ServiceReceived,
		AppointmentID:   req.AppointmentID,
		DisplayOrder:    req.DisplayOrder,
		Source:          "website",
		CreatedAt:       now,
	}
	if caller.Role == model.RoleAdmin {
		t.IsApproved = true
		t.ApprovedAt = &now
		t.ApprovedBy = caller.ID
	}
	if err := a.Content.CreateTestimonial(r.Context(), &t); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, map[string]any{"testimonial_id": t.ID, "message": "Testimonial created successfully"})
}

func (a *API) getContent(w http.ResponseWriter, r *http.Request) {
	blocks, err := a.Content.ListBlocks(r.Context(), r.PathValue("slug"))
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if blocks == nil {
		blocks = []model.ContentBlock{}
	}
	respond(w, http.StatusOK, map[string]any{"content_blocks": blocks})
}

type createBlockRequest struct {
	BlockType    string          `json:"block_type" validate:"required"`
	BlockName    string          `json:"block_name" validate:"required"`
	Content      json.RawMessage `json:"content" validate:"required"`
	DisplayOrder int             `json:"display_order"`
	Responsive   json.RawMessage `json:"responsive"`
}

func (a *API) createContentBlock(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req createBlockRequest
	if !decode(w, r, &req) {
		return
	}
	b := model.ContentBlock{
		PageSlug:     r.PathValue("slug"),
		BlockType:    req.BlockType,
		BlockName:    req.BlockName,
		Content:      req.Content,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
		Responsive:   req.Responsive,
		CreatedBy:    caller.ID,
	}
	if err := a.Content.CreateBlock(r.Context(), &b); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, map[string]any{"block_id": b.ID, "message": "Content block created successfully"})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": a.now().UTC(),
		"version":   "1.0.0",
	})
}

type initializeRequest struct {
	AdminEmail    string `json:"admin_email" validate:"omitempty,email"`
	AdminPassword string `json:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8"`
}

// initialize seeds the default settings, the starter catalog and optionally the
// first admin account. It only runs against an empty settings table.
func (a *API) initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	_, err := a.Settings.Get(ctx)
	if err == nil {
		httpx.WriteError(w, http.StatusConflict, "already initialized")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		a.storeError(w, r, err, "")
		return
	}

	if err := a.Settings.Replace(ctx, defaultSiteSettings(a.now().UTC())); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	for _, s := range defaultServices() {
		if err := a.Services.Create(ctx, &s); err != nil {
			a.storeError(w, r, err, "")
			return
		}
	}
	fields := map[string]any{"message": "Database initialized successfully"}
	if email := strings.TrimSpace(req.AdminEmail); email != "" {
		hash, err := auth.HashPassword(req.AdminPassword)
		if err != nil {
			a.logger.Error("password hash failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		admin := model.User{
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			Profile:      model.Profile{FirstName: "Studio", LastName: "Admin"},
			Preferences:  model.DefaultPreferences(),
			IsActive:     true,
		}
		if err := a.Users.Create(ctx, &admin); err != nil && !errors.Is(err, store.ErrConflict) {
			a.storeError(w, r, err, "")
			return
		}
		fields["admin_id"] = admin.ID
	}
	respond(w, http.StatusOK, fields)
}
