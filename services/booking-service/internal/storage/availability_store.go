package storage

import (
	"context"
	"time"

	"github.com/alecrj/sbay-crm/services/booking-service/internal/availability"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
)

// AvailabilityStore bundles the calendar and appointment repositories behind
// the evaluator's read interface.
type AvailabilityStore struct {
	calendars    *CalendarRepository
	appointments *AppointmentRepository
}

func NewAvailabilityStore(calendars *CalendarRepository, appointments *AppointmentRepository) *AvailabilityStore {
	return &AvailabilityStore{calendars: calendars, appointments: appointments}
}

func (s *AvailabilityStore) GetCalendar(ctx context.Context, propertyID string) (model.Calendar, bool, error) {
	return s.calendars.GetCalendar(ctx, propertyID)
}

func (s *AvailabilityStore) GetWindow(ctx context.Context, propertyID string, weekday int) (model.AvailabilityWindow, bool, error) {
	return s.calendars.GetWindow(ctx, propertyID, weekday)
}

func (s *AvailabilityStore) BlockedOn(ctx context.Context, propertyID string, day time.Time) (model.BlockedDate, bool, error) {
	return s.calendars.BlockedOn(ctx, propertyID, day)
}

func (s *AvailabilityStore) ListBookedIntervals(ctx context.Context, propertyID string, start, end time.Time, excludeAppointmentID string) ([]availability.Interval, error) {
	return s.appointments.ListBookedIntervals(ctx, propertyID, start, end, excludeAppointmentID)
}
