package availability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
)

type fakeStore struct {
	calendar    model.Calendar
	hasCalendar bool
	calendarErr error

	window    model.AvailabilityWindow
	hasWindow bool
	windowErr error

	blocked    model.BlockedDate
	hasBlocked bool
	blockedErr error

	booked     []Interval
	bookedErr  error
	excludedID string
}

func (f *fakeStore) GetCalendar(_ context.Context, _ string) (model.Calendar, bool, error) {
	return f.calendar, f.hasCalendar, f.calendarErr
}

func (f *fakeStore) GetWindow(_ context.Context, _ string, _ int) (model.AvailabilityWindow, bool, error) {
	return f.window, f.hasWindow, f.windowErr
}

func (f *fakeStore) BlockedOn(_ context.Context, _ string, _ time.Time) (model.BlockedDate, bool, error) {
	return f.blocked, f.hasBlocked, f.blockedErr
}

func (f *fakeStore) ListBookedIntervals(_ context.Context, _ string, _, _ time.Time, excludeID string) ([]Interval, error) {
	f.excludedID = excludeID
	if f.bookedErr != nil {
		return nil, f.bookedErr
	}
	if excludeID != "" {
		return nil, nil
	}
	return f.booked, nil
}

// Monday 2026-03-02 09:00-17:00 UTC, active calendar.
func configuredStore() *fakeStore {
	return &fakeStore{
		calendar:    model.Calendar{PropertyID: "prop-1", IsActive: true, Timezone: "UTC"},
		hasCalendar: true,
		window: model.AvailabilityWindow{
			PropertyID:  "prop-1",
			Weekday:     1,
			StartMinute: 9 * 60,
			EndMinute:   17 * 60,
			IsActive:    true,
		},
		hasWindow: true,
	}
}

func monday(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

func TestEvaluateNoCalendarIsAvailable(t *testing.T) {
	ev := NewEvaluator(&fakeStore{}, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
	if !dec.Available {
		t.Fatalf("expected available without calendar config, got reason %q", dec.Reason)
	}
}

func TestEvaluateInactiveCalendar(t *testing.T) {
	store := configuredStore()
	store.calendar.IsActive = false
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
	if dec.Available {
		t.Fatal("expected unavailable for inactive calendar")
	}
	if dec.Reason != "calendar is inactive" {
		t.Fatalf("unexpected reason %q", dec.Reason)
	}
}

func TestEvaluateBlockedDate(t *testing.T) {
	store := configuredStore()
	store.hasBlocked = true
	store.blocked = model.BlockedDate{Reason: "maintenance"}
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
	if dec.Available || dec.Reason != "maintenance" {
		t.Fatalf("expected blocked with reason maintenance, got %+v", dec)
	}
}

func TestEvaluateBlockedDateDefaultReason(t *testing.T) {
	store := configuredStore()
	store.hasBlocked = true
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
	if dec.Reason != "date is blocked" {
		t.Fatalf("unexpected reason %q", dec.Reason)
	}
}

func TestEvaluateNoWindowForWeekday(t *testing.T) {
	store := configuredStore()
	store.hasWindow = false
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
	if dec.Available || dec.Reason != "no business hours configured for this day" {
		t.Fatalf("unexpected decision %+v", dec)
	}
}

func TestEvaluateOutsideBusinessHours(t *testing.T) {
	ev := NewEvaluator(configuredStore(), nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(8, 0), End: monday(8, 30)})
	if dec.Available {
		t.Fatal("expected unavailable before opening")
	}
	if !strings.Contains(dec.Reason, "9:00 AM") || !strings.Contains(dec.Reason, "5:00 PM") {
		t.Fatalf("reason should carry formatted hours, got %q", dec.Reason)
	}

	dec = ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(16, 45), End: monday(17, 15)})
	if dec.Available {
		t.Fatal("expected unavailable past closing")
	}
}

func TestEvaluateEndAtClosingIsAllowed(t *testing.T) {
	ev := NewEvaluator(configuredStore(), nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(16, 30), End: monday(17, 0)})
	if !dec.Available {
		t.Fatalf("slot ending exactly at closing should be bookable, got %q", dec.Reason)
	}
}

func TestEvaluateConflict(t *testing.T) {
	store := configuredStore()
	store.booked = []Interval{{Start: monday(10, 0), End: monday(11, 0)}}
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 30), End: monday(11, 30)})
	if dec.Available || dec.Reason != "time slot already booked" {
		t.Fatalf("expected conflict, got %+v", dec)
	}
}

func TestEvaluateTouchingIntervalsDoNotConflict(t *testing.T) {
	store := configuredStore()
	store.booked = []Interval{{Start: monday(10, 0), End: monday(11, 0)}}
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(11, 0), End: monday(12, 0)})
	if !dec.Available {
		t.Fatalf("back-to-back slots should not conflict, got %q", dec.Reason)
	}
}

func TestEvaluateExcludesAppointmentOnReschedule(t *testing.T) {
	store := configuredStore()
	store.booked = []Interval{{Start: monday(10, 0), End: monday(11, 0)}}
	ev := NewEvaluator(store, nil)

	dec := ev.Evaluate(context.Background(), Request{
		PropertyID:           "prop-1",
		Start:                monday(10, 0),
		End:                  monday(11, 0),
		ExcludeAppointmentID: "appt-1",
	})
	if !dec.Available {
		t.Fatalf("reschedule over own slot should be available, got %q", dec.Reason)
	}
	if store.excludedID != "appt-1" {
		t.Fatalf("exclude id not passed to store, got %q", store.excludedID)
	}
}

func TestEvaluateFailsOpenOnStoreErrors(t *testing.T) {
	cases := map[string]*fakeStore{
		"calendar": {calendarErr: errors.New("db down")},
		"blocked": func() *fakeStore {
			s := configuredStore()
			s.blockedErr = errors.New("db down")
			return s
		}(),
		"window": func() *fakeStore {
			s := configuredStore()
			s.windowErr = errors.New("db down")
			return s
		}(),
		"conflicts": func() *fakeStore {
			s := configuredStore()
			s.bookedErr = errors.New("db down")
			return s
		}(),
	}
	for name, store := range cases {
		ev := NewEvaluator(store, nil)
		dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(10, 0), End: monday(10, 30)})
		if !dec.Available {
			t.Fatalf("%s error should fail open, got %+v", name, dec)
		}
	}
}

func TestEvaluateTimezoneWallClock(t *testing.T) {
	store := configuredStore()
	store.calendar.Timezone = "America/New_York"
	ev := NewEvaluator(store, nil)

	// 14:00 UTC on 2026-03-02 is 09:00 in New York (EST, UTC-5).
	dec := ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(14, 0), End: monday(14, 30)})
	if !dec.Available {
		t.Fatalf("09:00 local should be inside business hours, got %q", dec.Reason)
	}

	// 13:30 UTC is 08:30 local, before opening.
	dec = ev.Evaluate(context.Background(), Request{PropertyID: "prop-1", Start: monday(13, 30), End: monday(14, 0)})
	if dec.Available {
		t.Fatal("08:30 local should be outside business hours")
	}
}

func TestFormatMinute(t *testing.T) {
	if got := formatMinute(540); got != "9:00 AM" {
		t.Fatalf("formatMinute(540) = %q", got)
	}
	if got := formatMinute(1020); got != "5:00 PM" {
		t.Fatalf("formatMinute(1020) = %q", got)
	}
	if got := formatMinute(0); got != "12:00 AM" {
		t.Fatalf("formatMinute(0) = %q", got)
	}
}
