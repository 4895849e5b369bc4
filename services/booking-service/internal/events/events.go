package events

import (
	"encoding/json"
	"time"

	"github.com/alecrj/sbay-crm/libs/outbox"
)

const (
	EventAppointmentBooked      = "booking.appointment.booked.v1"
	EventAppointmentRescheduled = "booking.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "booking.appointment.cancelled.v1"
)

// AppointmentEvent is the payload shared by all appointment lifecycle events.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PropertyID    string    `json:"property_id,omitempty"`
	LeadID        string    `json:"lead_id,omitempty"`
	Title         string    `json:"title"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location,omitempty"`
	Attendees     []string  `json:"attendees,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func AppointmentEnvelope(eventType string, payload AppointmentEvent) (outbox.Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   payload.AppointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
