package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alecrj/sbay-crm/services/notification-service/internal/queue"
)

type fakeQueue struct {
	items   []queue.Item
	deleted []string
}

func (f *fakeQueue) Insert(_ context.Context, item queue.Item) error {
	f.items = append(f.items, item)
	return nil
}

func (f *fakeQueue) DeletePendingForAppointment(_ context.Context, appointmentID string) (int64, error) {
	f.deleted = append(f.deleted, appointmentID)
	return 2, nil
}

func newTestScheduler(q Queue, at time.Time) *Scheduler {
	s := New(q, "admin@sbaycrm.local", slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return at }
	return s
}

func sampleAppointment(start time.Time) Appointment {
	return Appointment{
		ID:        "appt-1",
		Title:     "Warehouse tour",
		StartTime: start,
		Location:  "123 Dock St",
		Attendees: []string{"lead@example.com"},
		LeadID:    "lead-1",
	}
}

func TestScheduleBothReminders(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	start := now.Add(48 * time.Hour)
	if err := s.Schedule(context.Background(), sampleAppointment(start)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// One 24h + one 2h for the attendee, plus the 2h admin heads-up.
	if len(q.items) != 3 {
		t.Fatalf("expected 3 queued items, got %d", len(q.items))
	}

	for _, item := range q.items {
		switch item.ReminderKind {
		case queue.Reminder24h:
			if !item.ScheduledFor.Equal(start.Add(-Offset24h)) {
				t.Fatalf("24h reminder scheduled at %v", item.ScheduledFor)
			}
		case queue.Reminder2h:
			if !item.ScheduledFor.Equal(start.Add(-Offset2h)) {
				t.Fatalf("2h reminder scheduled at %v", item.ScheduledFor)
			}
		}
		if item.AppointmentID != "appt-1" {
			t.Fatalf("item missing appointment id: %+v", item)
		}
	}
}

func TestSchedulePastOffsetsSkipped(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	// 12 hours out: the 24h mark is already gone, only 2h reminders remain.
	start := now.Add(12 * time.Hour)
	if err := s.Schedule(context.Background(), sampleAppointment(start)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for _, item := range q.items {
		if item.ReminderKind == queue.Reminder24h {
			t.Fatalf("24h reminder should be skipped for near-term booking")
		}
	}
	if len(q.items) != 2 {
		t.Fatalf("expected attendee + admin 2h items, got %d", len(q.items))
	}
}

func TestScheduleBoundaryInstantSkipped(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	// Exactly 24h out: the 24h mark equals now and must not be queued.
	if err := s.Schedule(context.Background(), sampleAppointment(now.Add(Offset24h))); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for _, item := range q.items {
		if item.ReminderKind == queue.Reminder24h {
			t.Fatalf("24h reminder queued at its own instant: %+v", item)
		}
	}
	if len(q.items) != 2 {
		t.Fatalf("expected only the 2h items, got %d", len(q.items))
	}
}

func TestScheduleImminentAppointmentQueuesNothing(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	if err := s.Schedule(context.Background(), sampleAppointment(now.Add(30*time.Minute))); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(q.items) != 0 {
		t.Fatalf("expected no reminders inside the 2h window, got %d", len(q.items))
	}
}

func TestRescheduleDropsStaleFirst(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	if err := s.Reschedule(context.Background(), sampleAppointment(now.Add(72*time.Hour))); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if len(q.deleted) != 1 || q.deleted[0] != "appt-1" {
		t.Fatalf("pending reminders not deleted: %v", q.deleted)
	}
	if len(q.items) != 3 {
		t.Fatalf("expected fresh reminders after reschedule, got %d", len(q.items))
	}
}

func TestCancelNotifiesAdminImmediately(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	if err := s.Cancel(context.Background(), sampleAppointment(now.Add(72*time.Hour))); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(q.deleted) != 1 {
		t.Fatalf("pending reminders not deleted")
	}
	if len(q.items) != 1 {
		t.Fatalf("expected one admin notification, got %d", len(q.items))
	}
	item := q.items[0]
	if item.Type != "appointment-cancelled" || !item.ScheduledFor.Equal(now) {
		t.Fatalf("unexpected cancel notification %+v", item)
	}
}

func TestLeadAlert(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{}
	s := newTestScheduler(q, now)

	if err := s.LeadAlert(context.Background(), "lead-9", "Acme Corp", "website"); err != nil {
		t.Fatalf("LeadAlert: %v", err)
	}
	if len(q.items) != 1 {
		t.Fatalf("expected one item, got %d", len(q.items))
	}
	if q.items[0].Type != "lead-created" || q.items[0].LeadID != "lead-9" {
		t.Fatalf("unexpected item %+v", q.items[0])
	}
}
