package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
)

type CalendarRepository struct {
	pool *db.Pool
}

func NewCalendarRepository(pool *db.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

func (r *CalendarRepository) GetCalendar(ctx context.Context, propertyID string) (model.Calendar, bool, error) {
	var cal model.Calendar
	err := r.pool.QueryRow(ctx, `
		SELECT property_id::text, is_active, timezone, created_at
		FROM property_calendars
		WHERE property_id = $1
	`, propertyID).Scan(&cal.PropertyID, &cal.IsActive, &cal.Timezone, &cal.CreatedAt)
	if err == pgx.ErrNoRows {
		return model.Calendar{}, false, nil
	}
	if err != nil {
		return model.Calendar{}, false, err
	}
	return cal, true, nil
}

func (r *CalendarRepository) UpsertCalendar(ctx context.Context, propertyID string, isActive bool, timezone string) error {
	if timezone == "" {
		timezone = model.DefaultTimezone
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO property_calendars (property_id, is_active, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id) DO UPDATE
		SET is_active = EXCLUDED.is_active,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, propertyID, isActive, timezone)
	return err
}

// DeleteCalendar removes a property's scheduling configuration along with its
// windows and blocked dates. Appointments stay; the property just falls back
// to unconstrained booking.
func (r *CalendarRepository) DeleteCalendar(ctx context.Context, propertyID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM calendar_availability WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM calendar_blocked_dates WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM property_calendars WHERE property_id = $1`, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *CalendarRepository) GetWindow(ctx context.Context, propertyID string, weekday int) (model.AvailabilityWindow, bool, error) {
	var win model.AvailabilityWindow
	err := r.pool.QueryRow(ctx, `
		SELECT property_id::text, weekday, start_minute, end_minute, is_active, slot_duration_minutes
		FROM calendar_availability
		WHERE property_id = $1 AND weekday = $2
	`, propertyID, weekday).Scan(
		&win.PropertyID,
		&win.Weekday,
		&win.StartMinute,
		&win.EndMinute,
		&win.IsActive,
		&win.SlotDurationMinutes,
	)
	if err == pgx.ErrNoRows {
		return model.AvailabilityWindow{}, false, nil
	}
	if err != nil {
		return model.AvailabilityWindow{}, false, err
	}
	return win, true, nil
}

func (r *CalendarRepository) ListWindows(ctx context.Context, propertyID string) ([]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT property_id::text, weekday, start_minute, end_minute, is_active, slot_duration_minutes
		FROM calendar_availability
		WHERE property_id = $1
		ORDER BY weekday ASC
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var win model.AvailabilityWindow
		if err := rows.Scan(
			&win.PropertyID,
			&win.Weekday,
			&win.StartMinute,
			&win.EndMinute,
			&win.IsActive,
			&win.SlotDurationMinutes,
		); err != nil {
			return nil, err
		}
		out = append(out, win)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CalendarRepository) UpsertWindow(ctx context.Context, win model.AvailabilityWindow) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM property_calendars WHERE property_id = $1
		)
	`, win.PropertyID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_availability (property_id, weekday, start_minute, end_minute, is_active, slot_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, weekday) DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			is_active = EXCLUDED.is_active,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes
	`, win.PropertyID, win.Weekday, win.StartMinute, win.EndMinute, win.IsActive, win.SlotDurationMinutes)
	return err
}

func (r *CalendarRepository) CreateBlockedDate(ctx context.Context, bd model.BlockedDate) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_blocked_dates (id, property_id, blocked_date, reason, all_day, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, bd.PropertyID, bd.Day, bd.Reason, bd.AllDay, bd.StartMinute, bd.EndMinute)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CalendarRepository) ListBlockedDates(ctx context.Context, propertyID string, from, to time.Time) ([]model.BlockedDate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, property_id::text, blocked_date, reason, all_day, start_minute, end_minute, created_at
		FROM calendar_blocked_dates
		WHERE property_id = $1
			AND blocked_date >= $2
			AND blocked_date <= $3
		ORDER BY blocked_date ASC
	`, propertyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlockedDate
	for rows.Next() {
		var bd model.BlockedDate
		if err := rows.Scan(
			&bd.ID,
			&bd.PropertyID,
			&bd.Day,
			&bd.Reason,
			&bd.AllDay,
			&bd.StartMinute,
			&bd.EndMinute,
			&bd.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, bd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CalendarRepository) DeleteBlockedDate(ctx context.Context, propertyID, blockedDateID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM calendar_blocked_dates
		WHERE id = $1 AND property_id = $2
	`, blockedDateID, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BlockedOn returns the first block covering a civil date. Any matching row
// blocks the whole day, partial-day ranges included.
func (r *CalendarRepository) BlockedOn(ctx context.Context, propertyID string, day time.Time) (model.BlockedDate, bool, error) {
	var bd model.BlockedDate
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, property_id::text, blocked_date, reason, all_day, start_minute, end_minute, created_at
		FROM calendar_blocked_dates
		WHERE property_id = $1 AND blocked_date = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, propertyID, day).Scan(
		&bd.ID,
		&bd.PropertyID,
		&bd.Day,
		&bd.Reason,
		&bd.AllDay,
		&bd.StartMinute,
		&bd.EndMinute,
		&bd.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return model.BlockedDate{}, false, nil
	}
	if err != nil {
		return model.BlockedDate{}, false, err
	}
	return bd, true, nil
}
