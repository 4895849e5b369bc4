package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/availability"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id::text, COALESCE(property_id::text, ''), COALESCE(lead_id::text, ''),
		title, COALESCE(description, ''), start_time, end_time, COALESCE(location, ''), attendees,
		status, reminder_sent_24h, reminder_sent_2h, cancelled_at, created_at`

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(property_id, lead_id, title, description, start_time, end_time, location, attendees, status)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.PropertyID, appt.LeadID, appt.Title, appt.Description,
		appt.StartTime, appt.EndTime, appt.Location, appt.Attendees, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID)
	return scanAppointment(row)
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	return scanAppointment(row)
}

// List returns appointments overlapping [from, to) in start order, optionally
// filtered by property.
func (r *AppointmentRepository) List(ctx context.Context, propertyID string, from, to time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR property_id::text = $1)
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
		LIMIT $4
	`, propertyID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AppointmentRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, appointmentID string, start, end time.Time, title, description, location string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			title = $4,
			description = $5,
			location = $6,
			reminder_sent_24h = FALSE,
			reminder_sent_2h = FALSE,
			updated_at = now()
		WHERE id = $1
	`, appointmentID, start, end, title, description, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appointmentID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, appointmentID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, appointmentID string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			updated_at = now()
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListBookedIntervals fetches the occupied intervals overlapping [start, end)
// for conflict checks. Cancelled appointments never block; excludeID lets a
// reschedule skip its own row.
func (r *AppointmentRepository) ListBookedIntervals(ctx context.Context, propertyID string, start, end time.Time, excludeID string) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE property_id::text = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_time ASC
	`, propertyID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.PropertyID,
		&appt.LeadID,
		&appt.Title,
		&appt.Description,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Location,
		&appt.Attendees,
		&appt.Status,
		&appt.Reminder24Sent,
		&appt.Reminder2Sent,
		&cancelledAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// IsConflict reports whether an insert hit the no-overlap exclusion
// constraint on appointments.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
