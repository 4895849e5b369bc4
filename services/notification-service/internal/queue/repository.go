package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alecrj/sbay-crm/libs/db"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

const (
	Reminder24h       = "24h"
	Reminder2h        = "2h"
	ReminderImmediate = "immediate"
)

// Item is one queued notification. ScheduledFor in the past means "send on
// the next drain".
type Item struct {
	ID            int64
	Type          string
	Recipient     string
	Subject       string
	ScheduledFor  time.Time
	Payload       map[string]any
	Status        string
	ReminderKind  string
	AppointmentID string
	LeadID        string
	Attempts      int
	MaxAttempts   int
	LastError     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, item Item) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return err
	}
	if item.MaxAttempts <= 0 {
		item.MaxAttempts = 3
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notification_queue
			(type, recipient, subject, scheduled_for, payload, reminder_kind, appointment_id, lead_id, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, NULLIF($8, '')::uuid, $9)
	`, item.Type, item.Recipient, item.Subject, item.ScheduledFor, payload,
		item.ReminderKind, item.AppointmentID, item.LeadID, item.MaxAttempts)
	return err
}

// DeletePendingForAppointment drops not-yet-sent reminders when an
// appointment is cancelled or rescheduled. Sent history stays.
func (r *Repository) DeletePendingForAppointment(ctx context.Context, appointmentID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notification_queue
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClaimDue leases a batch of due pending items. The claim bumps attempts and
// flips status in the same statement, so a crashed worker can't double-send
// more than its claimed batch and concurrent drains never share an item.
func (r *Repository) ClaimDue(ctx context.Context, limit int) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE notification_queue
		SET status = 'processing',
			attempts = attempts + 1,
			updated_at = now()
		WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = 'pending' AND scheduled_for <= now() AND attempts < max_attempts
			ORDER BY scheduled_for
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, type, recipient, subject, scheduled_for, payload, status, reminder_kind,
			COALESCE(appointment_id::text, ''), COALESCE(lead_id::text, ''),
			attempts, max_attempts, COALESCE(last_error, '')
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var raw []byte
		if err := rows.Scan(
			&item.ID,
			&item.Type,
			&item.Recipient,
			&item.Subject,
			&item.ScheduledFor,
			&raw,
			&item.Status,
			&item.ReminderKind,
			&item.AppointmentID,
			&item.LeadID,
			&item.Attempts,
			&item.MaxAttempts,
			&item.LastError,
		); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &item.Payload); err != nil {
				return nil, err
			}
		} else {
			item.Payload = map[string]any{}
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// Release puts a failed item back in the queue, or parks it as failed once
// attempts are exhausted.
func (r *Repository) Release(ctx context.Context, id int64, attempts, maxAttempts int, lastError string) error {
	status := StatusPending
	if attempts >= maxAttempts {
		status = StatusFailed
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, id, status, lastError)
	return err
}

// MarkReminderSent flips the per-appointment reminder flag so the same kind
// is never scheduled twice.
func (r *Repository) MarkReminderSent(ctx context.Context, appointmentID, kind string) error {
	if appointmentID == "" {
		return nil
	}
	column := ""
	switch kind {
	case Reminder24h:
		column = "reminder_sent_24h"
	case Reminder2h:
		column = "reminder_sent_2h"
	default:
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET `+column+` = TRUE, updated_at = now()
		WHERE id = $1
	`, appointmentID)
	return err
}
