package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/model"
)

func TestNotFoundWrapsNoRows(t *testing.T) {
	err := notFound(pgx.ErrNoRows)
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected both sentinels, got %v", err)
	}
	other := errors.New("boom")
	if notFound(other) != other {
		t.Fatal("unrelated errors must pass through")
	}
	if notFound(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestNotificationsNeverWrittenAsNull(t *testing.T) {
	var recs []model.NotificationRecord
	raw, err := jsonb(nonNil(recs))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected empty array, got %s", raw)
	}
}

type scriptedRows struct {
	n      int
	closed bool
}

func (r *scriptedRows) Next() bool {
	r.n++
	return r.n <= 3
}

func (r *scriptedRows) Err() error { return nil }

func (r *scriptedRows) Close() { r.closed = true }

func TestCollectDecodableSkipsMalformedRows(t *testing.T) {
	rows := &scriptedRows{}
	results := []struct {
		appt model.Appointment
		err  error
	}{
		{appt: model.Appointment{ID: "a1"}},
		{err: &DecodeError{ID: "a2", Err: errors.New(`notification kind: unrecognised "reminder_xh"`)}},
		{appt: model.Appointment{ID: "a3"}},
	}
	var skipped []string
	got, err := collectDecodable(rows, func() (model.Appointment, error) {
		r := results[rows.n-1]
		return r.appt, r.err
	}, func(bad *DecodeError) { skipped = append(skipped, bad.ID) })
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("unexpected appointments %+v", got)
	}
	if len(skipped) != 1 || skipped[0] != "a2" || !rows.closed {
		t.Fatalf("expected a2 skipped and rows closed, got %v closed=%v", skipped, rows.closed)
	}
}

func TestCollectDecodableAbortsOnScanError(t *testing.T) {
	rows := &scriptedRows{}
	_, err := collectDecodable(rows, func() (model.Appointment, error) {
		return model.Appointment{}, errors.New("conn reset")
	}, func(*DecodeError) { t.Fatal("scan errors must not be skipped") })
	if err == nil {
		t.Fatal("expected scan error")
	}
}

func TestSchemaEmbedded(t *testing.T) {
	if len(schema) == 0 {
		t.Fatal("schema.sql not embedded")
	}
}
