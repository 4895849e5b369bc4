package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alecrj/sbay-crm/libs/lock"
	"github.com/alecrj/sbay-crm/libs/outbox"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/availability"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/events"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/storage"
)

type AppointmentHandler struct {
	repo       *storage.AppointmentRepository
	outboxRepo *outbox.Repository
	evaluator  *availability.Evaluator
	locker     *lock.Locker
	logger     *slog.Logger
}

func NewAppointmentHandler(repo *storage.AppointmentRepository, outboxRepo *outbox.Repository, evaluator *availability.Evaluator, locker *lock.Locker, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		evaluator:  evaluator,
		locker:     locker,
		logger:     logger,
	}
}

type appointmentRequest struct {
	PropertyID  string   `json:"property_id"`
	LeadID      string   `json:"lead_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Location    string   `json:"location"`
	Attendees   []string `json:"attendees"`
}

type appointmentItem struct {
	AppointmentID string   `json:"appointment_id"`
	PropertyID    string   `json:"property_id,omitempty"`
	LeadID        string   `json:"lead_id,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	Location      string   `json:"location,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
	Status        string   `json:"status"`
	CancelledAt   string   `json:"cancelled_at,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// Appointments dispatches /api/appointments and /api/appointments/{id}.
func (h *AppointmentHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/appointments"), "/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case id != "" && r.Method == http.MethodPut:
		h.reschedule(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.cancel(w, r, id)
	case id != "" && r.Method == http.MethodPatch:
		h.updateStatus(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.LeadID = strings.TrimSpace(req.LeadID)
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}

	start, end, ok := parseTimeRange(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	ctx := r.Context()

	// Short lease around the availability check narrows the race window
	// between two clients grabbing the same slot. The exclusion constraint
	// is still the hard guarantee.
	if h.locker != nil && req.PropertyID != "" {
		key := fmt.Sprintf("booking:%s:%d", req.PropertyID, start.Unix())
		acquired, err := h.locker.Acquire(ctx, key, 10*time.Second)
		if err != nil {
			h.logger.Warn("booking lock unavailable; relying on db constraint", "err", err)
		} else if !acquired {
			http.Error(w, "another booking for this slot is in progress", http.StatusConflict)
			return
		} else {
			defer h.locker.Release(ctx, key)
		}
	}

	if req.PropertyID != "" {
		decision := h.evaluator.Evaluate(ctx, availability.Request{
			PropertyID: req.PropertyID,
			Start:      start,
			End:        end,
		})
		if !decision.Available {
			http.Error(w, decision.Reason, http.StatusUnprocessableEntity)
			return
		}
	}

	appt := &model.Appointment{
		PropertyID:  req.PropertyID,
		LeadID:      req.LeadID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		StartTime:   start,
		EndTime:     end,
		Location:    strings.TrimSpace(req.Location),
		Attendees:   req.Attendees,
		Status:      model.StatusScheduled,
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	if err := h.insertEvent(ctx, tx, events.EventAppointmentBooked, appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toItem(*appt))
}

func (h *AppointmentHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	appt, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("property_id"))

	from, to, ok := parseListRange(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}

	limit := 100
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	appts, err := h.repo.List(r.Context(), propertyID, from, to, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) reschedule(w http.ResponseWriter, r *http.Request, id string) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	start, end, ok := parseTimeRange(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status == model.StatusCancelled {
		http.Error(w, "appointment is cancelled", http.StatusConflict)
		return
	}

	if appt.PropertyID != "" {
		decision := h.evaluator.Evaluate(ctx, availability.Request{
			PropertyID:           appt.PropertyID,
			Start:                start,
			End:                  end,
			ExcludeAppointmentID: appt.ID,
		})
		if !decision.Available {
			http.Error(w, decision.Reason, http.StatusUnprocessableEntity)
			return
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = appt.Title
	}
	description := appt.Description
	if req.Description != "" {
		description = strings.TrimSpace(req.Description)
	}
	location := appt.Location
	if req.Location != "" {
		location = strings.TrimSpace(req.Location)
	}

	if err := h.repo.UpdateSchedule(ctx, tx, appt.ID, start, end, title, description, location); err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	appt.StartTime = start
	appt.EndTime = end
	appt.Title = title
	appt.Description = description
	appt.Location = location

	if err := h.insertEvent(ctx, tx, events.EventAppointmentRescheduled, &appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *AppointmentHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	// Cancelling twice is a no-op, not an error.
	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		writeJSON(w, http.StatusOK, toItem(appt))
		return
	}

	cancelledAt, err := h.repo.Cancel(ctx, tx, appt.ID)
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt

	if err := h.insertEvent(ctx, tx, events.EventAppointmentCancelled, &appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *AppointmentHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if !model.ValidStatus(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if req.Status == model.StatusCancelled {
		http.Error(w, "use DELETE to cancel", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}

	appt, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

// CalendarEvents serves the calendar feed: appointments in a window, shaped
// for a month or week view.
func (h *AppointmentHandler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	from, to, ok := parseListRange(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}

	appts, err := h.repo.List(r.Context(), strings.TrimSpace(q.Get("property_id")), from, to, 500)
	if err != nil {
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}

	type event struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Start      string `json:"start"`
		End        string `json:"end"`
		PropertyID string `json:"property_id,omitempty"`
		Status     string `json:"status"`
	}
	events := make([]event, 0, len(appts))
	for _, appt := range appts {
		events = append(events, event{
			ID:         appt.ID,
			Title:      appt.Title,
			Start:      appt.StartTime.UTC().Format(time.RFC3339),
			End:        appt.EndTime.UTC().Format(time.RFC3339),
			PropertyID: appt.PropertyID,
			Status:     appt.Status,
		})
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *AppointmentHandler) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt *model.Appointment) error {
	evt, err := events.AppointmentEnvelope(eventType, events.AppointmentEvent{
		AppointmentID: appt.ID,
		PropertyID:    appt.PropertyID,
		LeadID:        appt.LeadID,
		Title:         appt.Title,
		StartTime:     appt.StartTime.UTC(),
		EndTime:       appt.EndTime.UTC(),
		Location:      appt.Location,
		Attendees:     appt.Attendees,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, evt)
}

func toItem(appt model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: appt.ID,
		PropertyID:    appt.PropertyID,
		LeadID:        appt.LeadID,
		Title:         appt.Title,
		Description:   appt.Description,
		StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
		Location:      appt.Location,
		Attendees:     appt.Attendees,
		Status:        appt.Status,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CancelledAt != nil {
		item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func parseTimeRange(w http.ResponseWriter, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(startStr))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(endStr))
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// parseListRange defaults to a month around now when bounds are omitted.
func parseListRange(w http.ResponseWriter, fromStr, toStr string) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 1, 0)

	if raw := strings.TrimSpace(fromStr); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if raw := strings.TrimSpace(toStr); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
