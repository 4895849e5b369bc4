package availability

import (
	"context"
	"testing"
	"time"
)

func TestSlotCandidatesFullDay(t *testing.T) {
	start := monday(9, 0)
	end := monday(17, 0)

	slots := SlotCandidates(start, end, 30*time.Minute, nil)
	if len(slots) != 16 {
		t.Fatalf("expected 16 half-hour slots in an 8 hour day, got %d", len(slots))
	}
	if !slots[0].Start.Equal(start) {
		t.Fatalf("first slot starts at %v", slots[0].Start)
	}
	last := slots[len(slots)-1]
	if !last.End.Equal(end) {
		t.Fatalf("last slot ends at %v, want %v", last.End, end)
	}
}

func TestSlotCandidatesExcludesBusy(t *testing.T) {
	start := monday(9, 0)
	end := monday(12, 0)
	busy := []Interval{{Start: monday(10, 0), End: monday(10, 30)}}

	slots := SlotCandidates(start, end, 30*time.Minute, busy)
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(monday(10, 0)) {
			t.Fatal("busy slot should be excluded")
		}
	}
}

func TestSlotCandidatesLongDurationKeepsStep(t *testing.T) {
	start := monday(9, 0)
	end := monday(11, 0)

	// 60-minute slots still advance on the half hour: 9:00, 9:30, 10:00.
	slots := SlotCandidates(start, end, time.Hour, nil)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if !slots[1].Start.Equal(monday(9, 30)) || !slots[1].End.Equal(monday(10, 30)) {
		t.Fatalf("unexpected second slot %+v", slots[1])
	}
}

func TestSlotCandidatesDurationLongerThanWindow(t *testing.T) {
	if slots := SlotCandidates(monday(9, 0), monday(9, 30), time.Hour, nil); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlotsEmptyWithoutCalendar(t *testing.T) {
	ev := NewEvaluator(&fakeStore{}, nil)

	slots, err := ev.Slots(context.Background(), "prop-1", monday(0, 0), 30*time.Minute)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("no calendar config should yield no slots, got %d", len(slots))
	}
}

func TestSlotsEmptyOnBlockedDate(t *testing.T) {
	store := configuredStore()
	store.hasBlocked = true
	ev := NewEvaluator(store, nil)

	slots, err := ev.Slots(context.Background(), "prop-1", monday(0, 0), 30*time.Minute)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("blocked date should yield no slots, got %d", len(slots))
	}
}

func TestSlotsEmptyOnInactiveWindow(t *testing.T) {
	store := configuredStore()
	store.window.IsActive = false
	ev := NewEvaluator(store, nil)

	slots, err := ev.Slots(context.Background(), "prop-1", monday(0, 0), 30*time.Minute)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("inactive window should yield no slots, got %d", len(slots))
	}
}

func TestSlotsUsesWindowSlotDuration(t *testing.T) {
	store := configuredStore()
	store.window.StartMinute = 9 * 60
	store.window.EndMinute = 11 * 60
	store.window.SlotDurationMinutes = 60
	ev := NewEvaluator(store, nil)

	slots, err := ev.Slots(context.Background(), "prop-1", monday(0, 0), 0)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 hour-long slots on the half-hour cadence, got %d", len(slots))
	}
	if got := slots[0].End.Sub(slots[0].Start); got != time.Hour {
		t.Fatalf("slot duration %v, want 1h", got)
	}
}

func TestSlotsSkipBooked(t *testing.T) {
	store := configuredStore()
	store.booked = []Interval{{Start: monday(10, 0), End: monday(10, 30)}}
	ev := NewEvaluator(store, nil)

	slots, err := ev.Slots(context.Background(), "prop-1", monday(0, 0), 30*time.Minute)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots with one booked, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(monday(10, 0)) {
			t.Fatal("booked 10:00 slot should be excluded")
		}
	}
}
