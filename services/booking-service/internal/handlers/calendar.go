package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alecrj/sbay-crm/services/booking-service/internal/model"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/storage"
)

type CalendarHandler struct {
	repo   *storage.CalendarRepository
	logger *slog.Logger
}

func NewCalendarHandler(repo *storage.CalendarRepository, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{repo: repo, logger: logger}
}

type calendarResponse struct {
	PropertyID string           `json:"property_id"`
	IsActive   bool             `json:"is_active"`
	Timezone   string           `json:"timezone"`
	Hours      []windowResponse `json:"hours,omitempty"`
}

type windowResponse struct {
	Weekday             int  `json:"weekday"`
	StartMinute         int  `json:"start_minute"`
	EndMinute           int  `json:"end_minute"`
	IsActive            bool `json:"is_active"`
	SlotDurationMinutes int  `json:"slot_duration_minutes"`
}

// Calendar dispatches /api/calendar?property_id= for GET/PUT/DELETE.
func (h *CalendarHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	propertyID := strings.TrimSpace(r.URL.Query().Get("property_id"))
	if propertyID == "" {
		http.Error(w, "property_id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getCalendar(w, r, propertyID)
	case http.MethodPut:
		h.putCalendar(w, r, propertyID)
	case http.MethodDelete:
		h.deleteCalendar(w, r, propertyID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalendarHandler) getCalendar(w http.ResponseWriter, r *http.Request, propertyID string) {
	cal, found, err := h.repo.GetCalendar(r.Context(), propertyID)
	if err != nil {
		http.Error(w, "failed to load calendar", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "calendar not found", http.StatusNotFound)
		return
	}

	windows, err := h.repo.ListWindows(r.Context(), propertyID)
	if err != nil {
		http.Error(w, "failed to load business hours", http.StatusInternalServerError)
		return
	}

	resp := calendarResponse{
		PropertyID: cal.PropertyID,
		IsActive:   cal.IsActive,
		Timezone:   cal.Timezone,
	}
	for _, win := range windows {
		resp.Hours = append(resp.Hours, windowResponse{
			Weekday:             win.Weekday,
			StartMinute:         win.StartMinute,
			EndMinute:           win.EndMinute,
			IsActive:            win.IsActive,
			SlotDurationMinutes: win.SlotDurationMinutes,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CalendarHandler) putCalendar(w http.ResponseWriter, r *http.Request, propertyID string) {
	var req struct {
		IsActive *bool  `json:"is_active"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	if err := h.repo.UpsertCalendar(r.Context(), propertyID, isActive, req.Timezone); err != nil {
		http.Error(w, "failed to save calendar", http.StatusInternalServerError)
		return
	}
	h.getCalendar(w, r, propertyID)
}

func (h *CalendarHandler) deleteCalendar(w http.ResponseWriter, r *http.Request, propertyID string) {
	if err := h.repo.DeleteCalendar(r.Context(), propertyID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "calendar not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete calendar", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Hours serves PUT /api/calendar/hours: upsert one weekday window.
func (h *CalendarHandler) Hours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		PropertyID          string `json:"property_id"`
		Weekday             int    `json:"weekday"`
		StartMinute         int    `json:"start_minute"`
		EndMinute           int    `json:"end_minute"`
		IsActive            bool   `json:"is_active"`
		SlotDurationMinutes int    `json:"slot_duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" {
		http.Error(w, "property_id required", http.StatusBadRequest)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "weekday must be 0..6", http.StatusBadRequest)
		return
	}
	if req.StartMinute < 0 || req.EndMinute > 24*60 || req.StartMinute >= req.EndMinute {
		if req.IsActive {
			http.Error(w, "invalid minute range", http.StatusBadRequest)
			return
		}
		// Inactive days may carry a zeroed range.
		req.StartMinute = 0
		req.EndMinute = 0
	}
	if req.SlotDurationMinutes < 0 || req.SlotDurationMinutes > 8*60 {
		http.Error(w, "invalid slot_duration_minutes", http.StatusBadRequest)
		return
	}

	err := h.repo.UpsertWindow(r.Context(), model.AvailabilityWindow{
		PropertyID:          req.PropertyID,
		Weekday:             req.Weekday,
		StartMinute:         req.StartMinute,
		EndMinute:           req.EndMinute,
		IsActive:            req.IsActive,
		SlotDurationMinutes: req.SlotDurationMinutes,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "calendar not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to save business hours", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blockedDateItem struct {
	ID          string `json:"id"`
	PropertyID  string `json:"property_id"`
	Date        string `json:"date"`
	Reason      string `json:"reason,omitempty"`
	AllDay      bool   `json:"all_day"`
	StartMinute *int   `json:"start_minute,omitempty"`
	EndMinute   *int   `json:"end_minute,omitempty"`
}

// BlockedDates dispatches /api/calendar/blocked-dates and
// /api/calendar/blocked-dates/{id}.
func (h *CalendarHandler) BlockedDates(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calendar/blocked-dates"), "/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		h.listBlockedDates(w, r)
	case id == "" && r.Method == http.MethodPost:
		h.createBlockedDate(w, r)
	case id != "" && r.Method == http.MethodDelete:
		h.deleteBlockedDate(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalendarHandler) listBlockedDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("property_id"))
	if propertyID == "" {
		http.Error(w, "property_id required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		to = t
	}

	blocked, err := h.repo.ListBlockedDates(r.Context(), propertyID, from, to)
	if err != nil {
		http.Error(w, "failed to list blocked dates", http.StatusInternalServerError)
		return
	}

	items := make([]blockedDateItem, 0, len(blocked))
	for _, bd := range blocked {
		items = append(items, toBlockedItem(bd))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CalendarHandler) createBlockedDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID  string `json:"property_id"`
		Date        string `json:"date"`
		Reason      string `json:"reason"`
		AllDay      *bool  `json:"all_day"`
		StartMinute *int   `json:"start_minute"`
		EndMinute   *int   `json:"end_minute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" {
		http.Error(w, "property_id required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	allDay := true
	if req.AllDay != nil {
		allDay = *req.AllDay
	}
	if !allDay {
		if req.StartMinute == nil || req.EndMinute == nil ||
			*req.StartMinute < 0 || *req.EndMinute > 24*60 || *req.StartMinute >= *req.EndMinute {
			http.Error(w, "partial-day block needs a valid minute range", http.StatusBadRequest)
			return
		}
	} else {
		req.StartMinute = nil
		req.EndMinute = nil
	}

	bd := model.BlockedDate{
		PropertyID:  req.PropertyID,
		Day:         day,
		Reason:      strings.TrimSpace(req.Reason),
		AllDay:      allDay,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
	}
	id, err := h.repo.CreateBlockedDate(r.Context(), bd)
	if err != nil {
		http.Error(w, "failed to create blocked date", http.StatusInternalServerError)
		return
	}
	bd.ID = id
	writeJSON(w, http.StatusCreated, toBlockedItem(bd))
}

func (h *CalendarHandler) deleteBlockedDate(w http.ResponseWriter, r *http.Request, id string) {
	propertyID := strings.TrimSpace(r.URL.Query().Get("property_id"))
	if propertyID == "" {
		http.Error(w, "property_id required", http.StatusBadRequest)
		return
	}
	if err := h.repo.DeleteBlockedDate(r.Context(), propertyID, id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "blocked date not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete blocked date", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toBlockedItem(bd model.BlockedDate) blockedDateItem {
	return blockedDateItem{
		ID:          bd.ID,
		PropertyID:  bd.PropertyID,
		Date:        bd.Day.Format("2006-01-02"),
		Reason:      bd.Reason,
		AllDay:      bd.AllDay,
		StartMinute: bd.StartMinute,
		EndMinute:   bd.EndMinute,
	}
}
