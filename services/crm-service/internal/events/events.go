package events

import (
	"encoding/json"
	"time"

	"github.com/alecrj/sbay-crm/libs/outbox"
)

const EventLeadCreated = "crm.lead.created.v1"

type LeadCreatedEvent struct {
	LeadID     string    `json:"lead_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source"`
	PropertyID string    `json:"property_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func LeadCreatedEnvelope(payload LeadCreatedEvent) (outbox.Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "lead",
		AggregateID:   payload.LeadID,
		EventType:     EventLeadCreated,
		Payload:       body,
	}, nil
}
