package availability

import (
	"context"
	"time"
)

// Candidates always advance at a fixed half-hour cadence; the requested
// duration changes slot length, not the step.
const slotStep = 30 * time.Minute

// SlotCandidates returns every interval of the given duration starting on the
// half-hour cadence that fits inside [windowStart, windowEnd] and overlaps no
// busy interval. All times are expected to be in the same location.
func SlotCandidates(windowStart, windowEnd time.Time, duration time.Duration, busy []Interval) []Interval {
	if duration <= 0 {
		duration = slotStep
	}
	if !windowEnd.After(windowStart) {
		return nil
	}

	var slots []Interval
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(slotStep) {
		end := t.Add(duration)
		if !overlapsAny(t, end, busy) {
			slots = append(slots, Interval{Start: t, End: end})
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// Slots enumerates the bookable slots for a property on a given civil date.
// A missing or inactive calendar, a missing or inactive weekday window, or a
// blocked date all yield an empty list. The result is ordered by start time
// and is stable for identical inputs.
func (e *Evaluator) Slots(ctx context.Context, propertyID string, day time.Time, duration time.Duration) ([]Interval, error) {
	cal, found, err := e.store.GetCalendar(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !found || !cal.IsActive {
		return nil, nil
	}

	year, month, dom := day.Date()
	civil := time.Date(year, month, dom, 0, 0, 0, 0, time.UTC)

	if _, blocked, err := e.store.BlockedOn(ctx, propertyID, civil); err != nil {
		return nil, err
	} else if blocked {
		return nil, nil
	}

	win, found, err := e.store.GetWindow(ctx, propertyID, int(civil.Weekday()))
	if err != nil {
		return nil, err
	}
	if !found || !win.IsActive {
		return nil, nil
	}

	if duration <= 0 {
		if win.SlotDurationMinutes > 0 {
			duration = time.Duration(win.SlotDurationMinutes) * time.Minute
		} else {
			duration = slotStep
		}
	}

	// Business hours are wall-clock minutes in the property's own timezone,
	// never a fixed numeric offset.
	loc := Location(cal.Timezone)
	windowStart := time.Date(year, month, dom, win.StartMinute/60, win.StartMinute%60, 0, 0, loc)
	windowEnd := time.Date(year, month, dom, win.EndMinute/60, win.EndMinute%60, 0, 0, loc)

	busy, err := e.store.ListBookedIntervals(ctx, propertyID, windowStart, windowEnd, "")
	if err != nil {
		return nil, err
	}

	return SlotCandidates(windowStart, windowEnd, duration, busy), nil
}
