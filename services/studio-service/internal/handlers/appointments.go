package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/booking"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/promo"
)

type createAppointmentRequest struct {
	ClientID       string        `json:"client_id"`
	ServiceID      string        `json:"service_id" validate:"required"`
	DateTime       string        `json:"date_time" validate:"required"`
	Time           string        `json:"time"`
	Timezone       string        `json:"timezone"`
	AddOns         []model.AddOn `json:"addons"`
	ReferralSource string        `json:"referral_source"`
	PromoCode      string        `json:"promo_code"`
}

// isStaff reports whether the caller may act on other clients' appointments.
func isStaff(u model.User) bool {
	return u.Role == model.RoleAdmin || u.Role == model.RoleTechnician
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req createAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = caller.ID
	}
	if clientID != caller.ID && !isStaff(caller) {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	startsAt, err := parseTime(req.DateTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid date_time")
		return
	}

	svc, err := a.Services.Get(ctx, req.ServiceID)
	if err != nil {
		a.storeError(w, r, err, "service not found")
		return
	}
	client, err := a.Users.Get(ctx, clientID)
	if err != nil {
		a.storeError(w, r, err, "client not found")
		return
	}

	now := a.now().UTC()
	appt := model.Appointment{
		Client: model.ClientSnapshot{
			ID:    client.ID,
			Name:  client.FullName(),
			Email: client.Email,
			Phone: client.Profile.Phone,
		},
		Service: model.ServiceSnapshot{
			ID:       svc.ID,
			Name:     svc.Name,
			Price:    svc.Price,
			Duration: svc.DurationMinutes,
		},
		DateTime: model.DateTime{
			Date:     startsAt,
			Time:     firstNonEmpty(req.Time, startsAt.Format("15:04")),
			Timezone: firstNonEmpty(req.Timezone, "UTC"),
		},
		Status: model.AppointmentConfirmed,
		Payment: model.Payment{
			Status:     model.PaymentPending,
			TotalPrice: svc.Price,
		},
		AddOns:         req.AddOns,
		Notes:          []model.Note{},
		Notifications:  []model.NotificationRecord{},
		Timeline:       []model.TimelineEntry{{Event: "created", Timestamp: now, UserID: caller.ID, Notes: "Appointment created"}},
		ReferralSource: req.ReferralSource,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var promoID string
	if strings.TrimSpace(req.PromoCode) != "" {
		app, err := a.Promos.Evaluate(ctx, req.PromoCode, []string{svc.ID}, svc.Price, now)
		if err != nil {
			if promo.IsRejection(err) {
				httpx.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			a.storeError(w, r, err, "")
			return
		}
		appt.Payment.Discount = app.Discount()
		promoID = app.PromoID
	}

	if err := a.Bookings.Book(ctx, &appt, promoID); err != nil {
		if errors.Is(err, booking.ErrPromoExhausted) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.storeError(w, r, err, "")
		return
	}

	// The booking stands even if reminders could not be planned.
	recs, err := a.Scheduler.ScheduleNotifications(ctx, appt)
	if err != nil {
		a.logger.Error("schedule notifications failed", "err", err, "appointment_id", appt.ID)
	}
	respond(w, http.StatusCreated, map[string]any{
		"appointment_id": appt.ID,
		"notifications":  len(recs),
		"message":        "Appointment created successfully",
	})
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request, caller model.User) {
	q := r.URL.Query()
	f := store.ListFilter{Status: strings.TrimSpace(q.Get("status"))}
	if caller.Role == model.RoleClient {
		f.ClientID = caller.ID
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"start_date", &f.From}, {"end_date", &f.To}} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid "+p.key)
			return
		}
		*p.dst = &t
	}

	appts, err := a.Appointments.List(r.Context(), f)
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	respond(w, http.StatusOK, map[string]any{"appointments": appts})
}

type updateAppointmentRequest struct {
	Status             *string        `json:"status" validate:"omitempty,oneof=confirmed completed cancelled"`
	StatusNote         string         `json:"status_note"`
	CancellationReason string         `json:"cancellation_reason"`
	Payment            map[string]any `json:"payment"`
	Note               *string        `json:"note"`
	NoteType           string         `json:"note_type"`
	IsPrivateNote      bool           `json:"is_private_note"`
}

var (
	errAccessDenied   = errors.New("access denied")
	errInvalidPayment = errors.New("invalid payment update")
)

func (a *API) updateAppointment(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req updateAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	now := a.now().UTC()

	_, err := a.Bookings.Update(r.Context(), r.PathValue("id"), func(appt *model.Appointment) error {
		if caller.Role == model.RoleClient && appt.Client.ID != caller.ID {
			return errAccessDenied
		}
		if req.Status != nil && *req.Status != appt.Status {
			appt.Status = *req.Status
			appt.Timeline = append(appt.Timeline, model.TimelineEntry{
				Event:     *req.Status,
				Timestamp: now,
				UserID:    caller.ID,
				Notes:     req.StatusNote,
			})
			switch appt.Status {
			case model.AppointmentCompleted:
				appt.CompletedAt = &now
			case model.AppointmentCancelled:
				appt.CancelledAt = &now
				appt.CancellationReason = req.CancellationReason
			}
		}
		if isStaff(caller) && len(req.Payment) > 0 {
			merged, err := mergePayment(appt.Payment, req.Payment)
			if err != nil {
				return fmt.Errorf("%w: %v", errInvalidPayment, err)
			}
			appt.Payment = merged
		}
		if req.Note != nil {
			appt.Notes = append(appt.Notes, model.Note{
				Type:      firstNonEmpty(req.NoteType, "service"),
				Content:   *req.Note,
				IsPrivate: req.IsPrivateNote,
				CreatedBy: caller.ID,
				CreatedAt: now,
			})
		}
		return nil
	})
	switch {
	case err == nil:
		respond(w, http.StatusOK, map[string]any{"message": "Appointment updated successfully"})
	case errors.Is(err, errAccessDenied):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errInvalidPayment):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		a.storeError(w, r, err, "appointment not found")
	}
}

// mergePayment overlays patch onto the stored payment document key by key.
func mergePayment(p model.Payment, patch map[string]any) (model.Payment, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return p, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return p, err
	}
	for k, v := range patch {
		doc[k] = v
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return p, err
	}
	var out model.Payment
	if err := json.Unmarshal(raw, &out); err != nil {
		return p, err
	}
	return out, nil
}

// parseTime accepts RFC 3339 timestamps or bare dates.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
