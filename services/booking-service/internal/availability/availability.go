package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Store is the read surface the evaluator needs. The boolean result
// distinguishes "no row configured" from an actual record, so configuration
// absence is a normal answer rather than an error.
type Store interface {
	GetCalendar(ctx context.Context, propertyID string) (model.Calendar, bool, error)
	GetWindow(ctx context.Context, propertyID string, weekday int) (model.AvailabilityWindow, bool, error)
	BlockedOn(ctx context.Context, propertyID string, day time.Time) (model.BlockedDate, bool, error)
	ListBookedIntervals(ctx context.Context, propertyID string, start, end time.Time, excludeAppointmentID string) ([]Interval, error)
}

type Decision struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type Request struct {
	PropertyID string
	Start      time.Time
	End        time.Time
	// ExcludeAppointmentID skips one appointment in conflict checks so a
	// reschedule doesn't collide with itself.
	ExcludeAppointmentID string
}

type Evaluator struct {
	store  Store
	logger *slog.Logger
}

func NewEvaluator(store Store, logger *slog.Logger) *Evaluator {
	return &Evaluator{store: store, logger: logger}
}

// Evaluate answers whether [start, end) is bookable for a property, with a
// human-readable reason on rejection. Store errors on read checks fail open:
// an infrastructure hiccup must not block legitimate bookings. The final
// booking write is protected separately (transaction + exclusion constraint)
// and never falls back to this path.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Decision {
	cal, found, err := e.store.GetCalendar(ctx, req.PropertyID)
	if err != nil {
		return e.failOpen("load calendar", req.PropertyID, err)
	}
	if !found {
		// Properties without scheduling setup impose no constraint.
		return Decision{Available: true}
	}
	if !cal.IsActive {
		return Decision{Reason: "calendar is inactive"}
	}

	loc := Location(cal.Timezone)
	startLocal := req.Start.In(loc)

	blocked, found, err := e.store.BlockedOn(ctx, req.PropertyID, dateOnly(startLocal))
	if err != nil {
		return e.failOpen("check blocked dates", req.PropertyID, err)
	}
	if found {
		reason := blocked.Reason
		if reason == "" {
			reason = "date is blocked"
		}
		return Decision{Reason: reason}
	}

	win, found, err := e.store.GetWindow(ctx, req.PropertyID, int(startLocal.Weekday()))
	if err != nil {
		return e.failOpen("load business hours", req.PropertyID, err)
	}
	if !found || !win.IsActive {
		return Decision{Reason: "no business hours configured for this day"}
	}

	startMin := minuteOfDay(startLocal)
	endMin := minuteOfDay(req.End.In(loc))
	if endMin == 0 && req.End.After(req.Start) {
		endMin = 24 * 60 // end at local midnight counts as end of day
	}
	if startMin >= endMin || startMin < win.StartMinute || endMin > win.EndMinute {
		return Decision{Reason: fmt.Sprintf("outside business hours (%s - %s)",
			formatMinute(win.StartMinute), formatMinute(win.EndMinute))}
	}

	busy, err := e.store.ListBookedIntervals(ctx, req.PropertyID, req.Start, req.End, req.ExcludeAppointmentID)
	if err != nil {
		return e.failOpen("check conflicts", req.PropertyID, err)
	}
	for _, b := range busy {
		if b.Start.Before(req.End) && b.End.After(req.Start) {
			return Decision{Reason: "time slot already booked"}
		}
	}

	return Decision{Available: true}
}

func (e *Evaluator) failOpen(step, propertyID string, err error) Decision {
	if e.logger != nil {
		e.logger.Error("availability check failed open", "step", step, "property_id", propertyID, "err", err)
	}
	return Decision{Available: true}
}

// Location resolves an IANA timezone name, falling back to UTC when the name
// is empty or unknown.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func formatMinute(m int) string {
	t := time.Date(0, time.January, 1, m/60, m%60, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}
