package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecrj/sbay-crm/services/notification-service/internal/queue"
)

const (
	Offset24h = 24 * time.Hour
	Offset2h  = 2 * time.Hour
)

// Appointment is the slice of the booked event the scheduler cares about.
type Appointment struct {
	ID        string
	Title     string
	StartTime time.Time
	Location  string
	Attendees []string
	LeadID    string
}

// Queue is the storage surface the scheduler writes to; *queue.Repository
// satisfies it.
type Queue interface {
	Insert(ctx context.Context, item queue.Item) error
	DeletePendingForAppointment(ctx context.Context, appointmentID string) (int64, error)
}

type Scheduler struct {
	queue      Queue
	adminEmail string
	logger     *slog.Logger
	now        func() time.Time
}

func New(q Queue, adminEmail string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queue:      q,
		adminEmail: adminEmail,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Schedule enqueues the 24-hour and 2-hour reminders for a booked
// appointment, one per attendee, plus a 2-hour heads-up to the admin inbox.
// Reminder times already in the past are skipped, not sent late.
func (s *Scheduler) Schedule(ctx context.Context, appt Appointment) error {
	now := s.now()

	for _, offset := range []struct {
		kind string
		d    time.Duration
	}{
		{queue.Reminder24h, Offset24h},
		{queue.Reminder2h, Offset2h},
	} {
		// Only strictly future instants get queued; a reminder landing
		// exactly on now is already due and would fire immediately.
		remindAt := appt.StartTime.Add(-offset.d)
		if !remindAt.After(now) {
			continue
		}
		for _, attendee := range appt.Attendees {
			if attendee == "" {
				continue
			}
			item := queue.Item{
				Type:          "appointment-reminder",
				Recipient:     attendee,
				Subject:       fmt.Sprintf("Reminder: %s", appt.Title),
				ScheduledFor:  remindAt,
				Payload:       s.payload(appt),
				ReminderKind:  offset.kind,
				AppointmentID: appt.ID,
				LeadID:        appt.LeadID,
			}
			if err := s.queue.Insert(ctx, item); err != nil {
				return err
			}
		}
		if offset.kind == queue.Reminder2h && s.adminEmail != "" {
			item := queue.Item{
				Type:          "appointment-soon",
				Recipient:     s.adminEmail,
				Subject:       fmt.Sprintf("Starting soon: %s", appt.Title),
				ScheduledFor:  remindAt,
				Payload:       s.payload(appt),
				ReminderKind:  queue.Reminder2h,
				AppointmentID: appt.ID,
				LeadID:        appt.LeadID,
			}
			if err := s.queue.Insert(ctx, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reschedule drops the stale pending reminders and schedules fresh ones for
// the new time.
func (s *Scheduler) Reschedule(ctx context.Context, appt Appointment) error {
	removed, err := s.queue.DeletePendingForAppointment(ctx, appt.ID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("stale reminders dropped", "appointment_id", appt.ID, "count", removed)
	}
	return s.Schedule(ctx, appt)
}

// Cancel drops pending reminders and notifies the admin immediately.
func (s *Scheduler) Cancel(ctx context.Context, appt Appointment) error {
	if _, err := s.queue.DeletePendingForAppointment(ctx, appt.ID); err != nil {
		return err
	}
	if s.adminEmail == "" {
		return nil
	}
	return s.queue.Insert(ctx, queue.Item{
		Type:          "appointment-cancelled",
		Recipient:     s.adminEmail,
		Subject:       fmt.Sprintf("Cancelled: %s", appt.Title),
		ScheduledFor:  s.now(),
		Payload:       s.payload(appt),
		ReminderKind:  queue.ReminderImmediate,
		AppointmentID: appt.ID,
		LeadID:        appt.LeadID,
	})
}

// LeadAlert queues an immediate admin notification for a freshly created lead.
func (s *Scheduler) LeadAlert(ctx context.Context, leadID, name, source string) error {
	if s.adminEmail == "" {
		return nil
	}
	return s.queue.Insert(ctx, queue.Item{
		Type:         "lead-created",
		Recipient:    s.adminEmail,
		Subject:      fmt.Sprintf("New lead: %s", name),
		ScheduledFor: s.now(),
		Payload: map[string]any{
			"lead_id": leadID,
			"name":    name,
			"source":  source,
		},
		ReminderKind: queue.ReminderImmediate,
		LeadID:       leadID,
	})
}

func (s *Scheduler) payload(appt Appointment) map[string]any {
	return map[string]any{
		"appointment_id": appt.ID,
		"title":          appt.Title,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"location":       appt.Location,
	}
}
