package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
)

type memStore struct {
	mu     sync.Mutex
	appts  map[string]model.Appointment
	order  []string
	writes int
	// beforeUpdate lets a test mutate the stored list between the sweep's read and its write.
	beforeUpdate func(id string, recs []model.NotificationRecord)
	listErr      error
}

func newMemStore(appts ...model.Appointment) *memStore {
	s := &memStore{appts: map[string]model.Appointment{}}
	for _, a := range appts {
		s.appts[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	return s
}

func (s *memStore) ListWithNotifications(context.Context) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Appointment
	for _, id := range s.order {
		a := s.appts[id]
		if len(a.Notifications) == 0 {
			continue
		}
		a.Notifications = append([]model.NotificationRecord(nil), a.Notifications...)
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) UpdateNotifications(ctx context.Context, id string, fn func([]model.NotificationRecord) ([]model.NotificationRecord, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.beforeUpdate != nil {
		s.beforeUpdate(id, a.Notifications)
	}
	next, changed := fn(append([]model.NotificationRecord(nil), a.Notifications...))
	if !changed {
		return nil
	}
	a.Notifications = next
	s.appts[id] = a
	s.writes++
	return nil
}

func (s *memStore) SetNotifications(_ context.Context, id string, recs []model.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Notifications = recs
	s.appts[id] = a
	s.writes++
	return nil
}

func (s *memStore) get(id string) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appts[id]
}

type memUsers map[string]model.User

func (m memUsers) Get(_ context.Context, id string) (model.User, error) {
	u, ok := m[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

type staticSettings struct {
	in  model.Integrations
	err error
}

func (s staticSettings) Integrations(context.Context) (model.Integrations, bool, error) {
	return s.in, s.err == nil, s.err
}

type sentMessage struct {
	to, subject, body string
}

type recordingEmail struct {
	sent      []sentMessage
	fail      bool
	afterSend func()
}

func (r *recordingEmail) Send(_ context.Context, to, subject, body string) error {
	if r.fail {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	r.sent = append(r.sent, sentMessage{to: to, subject: subject, body: body})
	if r.afterSend != nil {
		r.afterSend()
	}
	return nil
}

type recordingSMS struct {
	sent []sentMessage
	fail bool
}

func (r *recordingSMS) ProviderID() string { return "test-sms" }

func (r *recordingSMS) Send(_ context.Context, to, body string) error {
	if r.fail {
		return errors.New("twilio: 400")
	}
	r.sent = append(r.sent, sentMessage{to: to, body: body})
	return nil
}

type outcomeLog struct {
	outcomes []Outcome
}

func (l *outcomeLog) RecordOutcome(ctx context.Context, o Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.outcomes = append(l.outcomes, o)
	return nil
}
