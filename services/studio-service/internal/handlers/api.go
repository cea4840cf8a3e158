// Package handlers exposes the studio HTTP API.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/media"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/payments"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/promo"
)

type Users interface {
	Get(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u *model.User) error
	Save(ctx context.Context, u model.User) error
}

type Services interface {
	ListActive(ctx context.Context, category string, featuredOnly bool) ([]model.ServicePackage, error)
	Get(ctx context.Context, id string) (model.ServicePackage, error)
	Create(ctx context.Context, s *model.ServicePackage) error
	Save(ctx context.Context, s model.ServicePackage) error
}

type Appointments interface {
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f store.ListFilter) ([]model.Appointment, error)
	MergePayment(ctx context.Context, id string, patch map[string]any) error
}

type Bookings interface {
	Book(ctx context.Context, appt *model.Appointment, promoID string) error
	Update(ctx context.Context, id string, fn func(*model.Appointment) error) (model.Appointment, error)
}

type Promos interface {
	Evaluate(ctx context.Context, code string, serviceIDs []string, orderAmount float64, now time.Time) (promo.Application, error)
}

type Settings interface {
	Get(ctx context.Context) (model.SiteSettings, error)
	Integrations(ctx context.Context) (model.Integrations, bool, error)
	Merge(ctx context.Context, patch map[string]any) error
	Replace(ctx context.Context, doc model.SiteSettings) error
}

type Content interface {
	ListTestimonials(ctx context.Context, featuredOnly bool) ([]model.Testimonial, error)
	CreateTestimonial(ctx context.Context, t *model.Testimonial) error
	ListBlocks(ctx context.Context, pageSlug string) ([]model.ContentBlock, error)
	CreateBlock(ctx context.Context, b *model.ContentBlock) error
	CreateMedia(ctx context.Context, m *model.MediaItem) error
}

type MediaStore interface {
	Upload(ctx context.Context, original, contentType string, r io.Reader) (media.Object, error)
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, secretKey string, amountCents int64, metadata map[string]string) (payments.Intent, error)
	ParseWebhook(payload []byte, signature, secret string) (payments.WebhookEvent, error)
}

type NotificationScheduler interface {
	ScheduleNotifications(ctx context.Context, appt model.Appointment) ([]model.NotificationRecord, error)
}

type Deps struct {
	Users        Users
	Services     Services
	Appointments Appointments
	Bookings     Bookings
	Promos       Promos
	Settings     Settings
	Content      Content
	Media        MediaStore // nil when no bucket is configured
	Payments     PaymentGateway
	Scheduler    NotificationScheduler
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Env fallbacks for keys missing from the site settings.
	StripeSecretKey     string
	StripeWebhookSecret string
}

type API struct {
	Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(deps Deps, cfg Config, logger *slog.Logger) *API {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &API{Deps: deps, cfg: cfg, logger: logger, now: time.Now}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.health)
	mux.HandleFunc("POST /api/initialize", a.initialize)
	mux.HandleFunc("POST /api/auth/login", a.login)

	mux.HandleFunc("POST /api/users", a.require(a.createUser, model.RoleAdmin))
	mux.HandleFunc("GET /api/users/{id}", a.require(a.getUser))
	mux.HandleFunc("PUT /api/users/{id}", a.require(a.updateUser))

	mux.HandleFunc("GET /api/services", a.listServices)
	mux.HandleFunc("POST /api/services", a.require(a.createService, model.RoleAdmin))
	mux.HandleFunc("PUT /api/services/{id}", a.require(a.updateService, model.RoleAdmin))

	mux.HandleFunc("POST /api/appointments", a.require(a.createAppointment))
	mux.HandleFunc("GET /api/appointments", a.require(a.listAppointments))
	mux.HandleFunc("PUT /api/appointments/{id}", a.require(a.updateAppointment))

	mux.HandleFunc("POST /api/promo-codes/validate", a.require(a.validatePromo))

	mux.HandleFunc("GET /api/site-settings", a.getSiteSettings)
	mux.HandleFunc("PUT /api/site-settings", a.require(a.updateSiteSettings, model.RoleAdmin))

	mux.HandleFunc("GET /api/testimonials", a.listTestimonials)
	mux.HandleFunc("POST /api/testimonials", a.require(a.createTestimonial))

	mux.HandleFunc("GET /api/analytics/dashboard", a.require(a.dashboard, model.RoleAdmin, model.RoleTechnician))

	mux.HandleFunc("POST /api/media/upload", a.require(a.uploadMedia, model.RoleAdmin))

	mux.HandleFunc("POST /api/payments/create-intent", a.require(a.createPaymentIntent))
	mux.HandleFunc("POST /api/payments/webhook", a.stripeWebhook)

	mux.HandleFunc("GET /api/content/{slug}", a.getContent)
	mux.HandleFunc("POST /api/content/{slug}/blocks", a.require(a.createContentBlock, model.RoleAdmin))
}

// respond writes {"success": true, ...fields}.
func respond(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	httpx.WriteJSON(w, status, body)
}

// storeError maps lookup misses to 404 and logs everything else as a 500.
func (a *API) storeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	a.logger.Error("store error", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
}
