package handlers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/booking"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/media"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/payments"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
	seq  int
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return store.ErrConflict
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) Save(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return store.ErrNotFound
	}
	f.byID[u.ID] = u
	return nil
}

type fakeServices struct {
	mu   sync.Mutex
	byID map[string]model.ServicePackage
	seq  int
}

func newFakeServices(svcs ...model.ServicePackage) *fakeServices {
	f := &fakeServices{byID: map[string]model.ServicePackage{}}
	for _, s := range svcs {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeServices) ListActive(_ context.Context, category string, featuredOnly bool) ([]model.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ServicePackage
	for _, s := range f.byID {
		if !s.IsActive || (category != "" && s.Category != category) || (featuredOnly && !s.IsFeatured) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeServices) Get(_ context.Context, id string) (model.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return model.ServicePackage{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeServices) Create(_ context.Context, s *model.ServicePackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	s.ID = fmt.Sprintf("svc-new-%d", f.seq)
	f.byID[s.ID] = *s
	return nil
}

func (f *fakeServices) Save(_ context.Context, s model.ServicePackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[s.ID]; !ok {
		return store.ErrNotFound
	}
	f.byID[s.ID] = s
	return nil
}

// fakeAppointments backs Appointments, Bookings and the scheduler's writer.
type fakeAppointments struct {
	mu       sync.Mutex
	byID     map[string]model.Appointment
	seq      int
	redeemed []string
	exhaust  bool
}

func newFakeAppointments(appts ...model.Appointment) *fakeAppointments {
	f := &fakeAppointments{byID: map[string]model.Appointment{}}
	for _, a := range appts {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return model.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAppointments) List(_ context.Context, filter store.ListFilter) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.byID {
		start := a.DateTime.Date
		switch {
		case filter.ClientID != "" && a.Client.ID != filter.ClientID:
		case filter.Status != "" && a.Status != filter.Status:
		case filter.From != nil && start.Before(*filter.From):
		case filter.To != nil && start.After(*filter.To):
		default:
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Date.After(out[j].DateTime.Date) })
	return out, nil
}

func (f *fakeAppointments) MergePayment(_ context.Context, id string, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p, err := mergePayment(a.Payment, patch)
	if err != nil {
		return err
	}
	a.Payment = p
	f.byID[id] = a
	return nil
}

func (f *fakeAppointments) Book(_ context.Context, appt *model.Appointment, promoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if promoID != "" {
		if f.exhaust {
			return booking.ErrPromoExhausted
		}
		f.redeemed = append(f.redeemed, promoID)
	}
	f.seq++
	appt.ID = fmt.Sprintf("appt-%d", f.seq)
	f.byID[appt.ID] = *appt
	return nil
}

func (f *fakeAppointments) Update(_ context.Context, id string, fn func(*model.Appointment) error) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return model.Appointment{}, store.ErrNotFound
	}
	if err := fn(&a); err != nil {
		return model.Appointment{}, err
	}
	f.byID[id] = a
	return a, nil
}

func (f *fakeAppointments) SetNotifications(_ context.Context, id string, recs []model.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Notifications = recs
	f.byID[id] = a
	return nil
}

type fakeSettings struct {
	mu  sync.Mutex
	doc model.SiteSettings
}

func (f *fakeSettings) Get(context.Context) (model.SiteSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return nil, store.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeSettings) Integrations(ctx context.Context) (model.Integrations, bool, error) {
	doc, err := f.Get(ctx)
	if err != nil {
		return model.Integrations{}, false, nil
	}
	in, err := doc.Integrations()
	return in, err == nil, err
}

func (f *fakeSettings) Merge(_ context.Context, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = f.doc.Merge(patch)
	return nil
}

func (f *fakeSettings) Replace(_ context.Context, doc model.SiteSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc
	return nil
}

type fakeContent struct {
	mu           sync.Mutex
	testimonials []model.Testimonial
	blocks       []model.ContentBlock
	media        []model.MediaItem
}

func (f *fakeContent) ListTestimonials(_ context.Context, featuredOnly bool) ([]model.Testimonial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Testimonial
	for _, t := range f.testimonials {
		if t.IsApproved && (!featuredOnly || t.IsFeatured) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeContent) CreateTestimonial(_ context.Context, t *model.Testimonial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = fmt.Sprintf("t-%d", len(f.testimonials)+1)
	f.testimonials = append(f.testimonials, *t)
	return nil
}

func (f *fakeContent) ListBlocks(_ context.Context, slug string) ([]model.ContentBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ContentBlock
	for _, b := range f.blocks {
		if b.PageSlug == slug && b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeContent) CreateBlock(_ context.Context, b *model.ContentBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = fmt.Sprintf("b-%d", len(f.blocks)+1)
	f.blocks = append(f.blocks, *b)
	return nil
}

func (f *fakeContent) CreateMedia(_ context.Context, m *model.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = fmt.Sprintf("m-%d", len(f.media)+1)
	f.media = append(f.media, *m)
	return nil
}

type fakeMedia struct {
	got []byte
}

func (f *fakeMedia) Upload(_ context.Context, original, contentType string, r io.Reader) (media.Object, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return media.Object{}, err
	}
	f.got = b
	return media.Object{
		Filename:    "20240101_000000_" + original,
		Path:        "media/20240101_000000_" + original,
		PublicURL:   "https://storage.googleapis.com/bucket/media/20240101_000000_" + original,
		Size:        int64(len(b)),
		ContentType: contentType,
	}, nil
}

type fakePayments struct {
	amount   int64
	key      string
	metadata map[string]string
	event    payments.WebhookEvent
	parseErr error
}

func (f *fakePayments) CreateIntent(_ context.Context, key string, cents int64, metadata map[string]string) (payments.Intent, error) {
	f.key, f.amount, f.metadata = key, cents, metadata
	return payments.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (f *fakePayments) ParseWebhook(_ []byte, _, _ string) (payments.WebhookEvent, error) {
	return f.event, f.parseErr
}
