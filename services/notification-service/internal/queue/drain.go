package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the queue surface the drainer needs; *Repository satisfies it.
type Store interface {
	ClaimDue(ctx context.Context, limit int) ([]Item, error)
	MarkSent(ctx context.Context, id int64) error
	Release(ctx context.Context, id int64, attempts, maxAttempts int, lastError string) error
	MarkReminderSent(ctx context.Context, appointmentID, kind string) error
}

type Sender interface {
	Send(to string, subject string, body string) error
}

type Drainer struct {
	store     Store
	sender    Sender
	logger    *slog.Logger
	batchSize int
	delay     time.Duration
}

func NewDrainer(store Store, sender Sender, logger *slog.Logger, batchSize int, delay time.Duration) *Drainer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Drainer{
		store:     store,
		sender:    sender,
		logger:    logger,
		batchSize: batchSize,
		delay:     delay,
	}
}

type DrainResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Drain claims one batch of due notifications and sends them sequentially.
// Send failures release the item for a later retry; exhausted items park as
// failed. A small inter-item delay keeps the SMTP relay happy.
func (d *Drainer) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	items, err := d.store.ClaimDue(ctx, d.batchSize)
	if err != nil {
		return res, err
	}

	for i, item := range items {
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
				// Unprocessed items were already leased; release them with a
				// fresh context so the next drain picks them up.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				for _, rest := range items[i:] {
					_ = d.store.Release(releaseCtx, rest.ID, rest.Attempts-1, rest.MaxAttempts, "drain interrupted")
				}
				cancel()
				return res, ctx.Err()
			case <-time.After(d.delay):
			}
		}

		subject, body := renderMessage(item)
		if err := d.sender.Send(item.Recipient, subject, body); err != nil {
			res.Failed++
			d.logger.Error("notification send failed",
				"id", item.ID, "type", item.Type, "attempts", item.Attempts, "err", err)
			if relErr := d.store.Release(ctx, item.ID, item.Attempts, item.MaxAttempts, err.Error()); relErr != nil {
				d.logger.Error("notification release failed", "id", item.ID, "err", relErr)
			}
			continue
		}

		if err := d.store.MarkSent(ctx, item.ID); err != nil {
			d.logger.Error("notification mark sent failed", "id", item.ID, "err", err)
		}
		if item.ReminderKind == Reminder24h || item.ReminderKind == Reminder2h {
			if err := d.store.MarkReminderSent(ctx, item.AppointmentID, item.ReminderKind); err != nil {
				d.logger.Error("reminder flag update failed",
					"appointment_id", item.AppointmentID, "kind", item.ReminderKind, "err", err)
			}
		}
		res.Processed++
	}
	return res, nil
}

func renderMessage(item Item) (subject, body string) {
	subject = item.Subject
	if subject == "" {
		subject = "Notification"
	}

	title, _ := item.Payload["title"].(string)
	startTime, _ := item.Payload["start_time"].(string)
	location, _ := item.Payload["location"].(string)

	switch item.Type {
	case "appointment-reminder":
		when := startTime
		if t, err := time.Parse(time.RFC3339, startTime); err == nil {
			when = t.Format("Monday, January 2 at 3:04 PM")
		}
		body = fmt.Sprintf("Reminder: %s is coming up on %s.", title, when)
		if location != "" {
			body += fmt.Sprintf("\nLocation: %s", location)
		}
	case "appointment-soon":
		body = fmt.Sprintf("Heads up: %s starts in about 2 hours.", title)
		if location != "" {
			body += fmt.Sprintf("\nLocation: %s", location)
		}
	case "appointment-cancelled":
		body = fmt.Sprintf("The appointment %q was cancelled.", title)
	case "lead-created":
		name, _ := item.Payload["name"].(string)
		source, _ := item.Payload["source"].(string)
		body = fmt.Sprintf("New lead: %s (source: %s).", name, source)
	default:
		body = subject
	}
	return subject, body
}
