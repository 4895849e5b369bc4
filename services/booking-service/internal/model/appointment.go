package model

import "time"

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             string
	PropertyID     string
	LeadID         string
	Title          string
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	Location       string
	Attendees      []string
	Status         string
	Reminder24Sent bool
	Reminder2Sent  bool
	CancelledAt    *time.Time
	CreatedAt      time.Time
}
