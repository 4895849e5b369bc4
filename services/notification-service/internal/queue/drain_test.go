package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeStore struct {
	due      []Item
	claimErr error

	sent      []int64
	released  []int64
	parked    []int64
	reminders map[string]string
}

func (f *fakeStore) ClaimDue(_ context.Context, limit int) ([]Item, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeStore) MarkSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) Release(_ context.Context, id int64, attempts, maxAttempts int, _ string) error {
	if attempts >= maxAttempts {
		f.parked = append(f.parked, id)
	} else {
		f.released = append(f.released, id)
	}
	return nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, appointmentID, kind string) error {
	if f.reminders == nil {
		f.reminders = map[string]string{}
	}
	f.reminders[appointmentID] = kind
	return nil
}

type fakeSender struct {
	failFor map[string]error
	sent    []string
}

func (f *fakeSender) Send(to, _, _ string) error {
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDrainSendsAndMarks(t *testing.T) {
	store := &fakeStore{due: []Item{
		{ID: 1, Type: "appointment-reminder", Recipient: "a@example.com", ReminderKind: Reminder24h, AppointmentID: "appt-1", Attempts: 1, MaxAttempts: 3},
		{ID: 2, Type: "lead-created", Recipient: "admin@example.com", ReminderKind: ReminderImmediate, Attempts: 1, MaxAttempts: 3},
	}}
	sender := &fakeSender{}
	d := NewDrainer(store, sender, testLogger(), 50, 0)

	res, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if res.Processed != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(store.sent) != 2 {
		t.Fatalf("expected 2 marked sent, got %d", len(store.sent))
	}
	if store.reminders["appt-1"] != Reminder24h {
		t.Fatalf("24h reminder flag not set, got %v", store.reminders)
	}
}

func TestDrainReleasesFailedForRetry(t *testing.T) {
	store := &fakeStore{due: []Item{
		{ID: 1, Recipient: "bad@example.com", Attempts: 1, MaxAttempts: 3},
	}}
	sender := &fakeSender{failFor: map[string]error{"bad@example.com": errors.New("smtp down")}}
	d := NewDrainer(store, sender, testLogger(), 50, 0)

	res, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if res.Failed != 1 || res.Processed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(store.released) != 1 || len(store.parked) != 0 {
		t.Fatalf("item should be released for retry, released=%v parked=%v", store.released, store.parked)
	}
}

func TestDrainParksAfterMaxAttempts(t *testing.T) {
	// Third attempt failing moves the item to failed for good.
	store := &fakeStore{due: []Item{
		{ID: 1, Recipient: "bad@example.com", Attempts: 3, MaxAttempts: 3},
	}}
	sender := &fakeSender{failFor: map[string]error{"bad@example.com": errors.New("smtp down")}}
	d := NewDrainer(store, sender, testLogger(), 50, 0)

	if _, err := d.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(store.parked) != 1 {
		t.Fatalf("item should be parked as failed, parked=%v released=%v", store.parked, store.released)
	}
}

func TestDrainRespectsBatchSize(t *testing.T) {
	var due []Item
	for i := int64(1); i <= 10; i++ {
		due = append(due, Item{ID: i, Recipient: "a@example.com", Attempts: 1, MaxAttempts: 3})
	}
	store := &fakeStore{due: due}
	sender := &fakeSender{}
	d := NewDrainer(store, sender, testLogger(), 4, 0)

	res, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if res.Processed != 4 {
		t.Fatalf("expected batch of 4, processed %d", res.Processed)
	}
}

func TestRenderMessageReminder(t *testing.T) {
	subject, body := renderMessage(Item{
		Type:    "appointment-reminder",
		Subject: "Upcoming viewing",
		Payload: map[string]any{
			"title":      "Warehouse tour",
			"start_time": "2026-03-02T15:00:00Z",
			"location":   "123 Dock St",
		},
	})
	if subject != "Upcoming viewing" {
		t.Fatalf("subject = %q", subject)
	}
	if body == "" || body == subject {
		t.Fatalf("body not rendered: %q", body)
	}
}
