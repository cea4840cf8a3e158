package handlers

import (
	"net/http"
	"strings"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/promo"
)

func (a *API) listServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	services, err := a.Services.ListActive(r.Context(), strings.TrimSpace(q.Get("category")), q.Get("featured") == "true")
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if services == nil {
		services = []model.ServicePackage{}
	}
	respond(w, http.StatusOK, map[string]any{"services": services})
}

type createServiceRequest struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	Price           float64  `json:"price" validate:"gte=0"`
	DurationMinutes int      `json:"duration_minutes" validate:"gt=0"`
	ImageURL        string   `json:"image_url"`
	Features        []string `json:"features"`
	Category        string   `json:"category" validate:"required"`
	IsFeatured      bool     `json:"is_featured"`
	DisplayOrder    int      `json:"display_order"`
}

func (a *API) createService(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req createServiceRequest
	if !decode(w, r, &req) {
		return
	}
	s := model.ServicePackage{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		ImageURL:        req.ImageURL,
		Features:        req.Features,
		Category:        strings.TrimSpace(req.Category),
		IsFeatured:      req.IsFeatured,
		DisplayOrder:    req.DisplayOrder,
		IsActive:        true,
		CreatedBy:       caller.ID,
	}
	if err := a.Services.Create(r.Context(), &s); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, map[string]any{"service_id": s.ID, "message": "Service created successfully"})
}

type updateServiceRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1"`
	Description     *string   `json:"description"`
	Price           *float64  `json:"price" validate:"omitempty,gte=0"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,gt=0"`
	ImageURL        *string   `json:"image_url"`
	Features        *[]string `json:"features"`
	Category        *string   `json:"category"`
	IsFeatured      *bool     `json:"is_featured"`
	DisplayOrder    *int      `json:"display_order"`
	IsActive        *bool     `json:"is_active"`
}

func (a *API) updateService(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req updateServiceRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := a.Services.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.storeError(w, r, err, "service not found")
		return
	}
	set(&s.Name, req.Name)
	set(&s.Description, req.Description)
	set(&s.Price, req.Price)
	set(&s.DurationMinutes, req.DurationMinutes)
	set(&s.ImageURL, req.ImageURL)
	set(&s.Features, req.Features)
	set(&s.Category, req.Category)
	set(&s.IsFeatured, req.IsFeatured)
	set(&s.DisplayOrder, req.DisplayOrder)
	set(&s.IsActive, req.IsActive)
	if err := a.Services.Save(r.Context(), s); err != nil {
		a.storeError(w, r, err, "service not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "Service updated successfully"})
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type validatePromoRequest struct {
	Code        string   `json:"code" validate:"required"`
	ServiceIDs  []string `json:"service_ids"`
	OrderAmount float64  `json:"order_amount" validate:"gte=0"`
}

func (a *API) validatePromo(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req validatePromoRequest
	if !decode(w, r, &req) {
		return
	}
	app, err := a.Promos.Evaluate(r.Context(), req.Code, req.ServiceIDs, req.OrderAmount, a.now())
	if err != nil {
		if promo.IsRejection(err) {
			httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, map[string]any{"discount": app})
}
