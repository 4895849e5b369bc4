package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alecrj/sbay-crm/services/booking-service/internal/availability"
)

type AvailabilityHandler struct {
	evaluator *availability.Evaluator
}

func NewAvailabilityHandler(evaluator *availability.Evaluator) *AvailabilityHandler {
	return &AvailabilityHandler{evaluator: evaluator}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Slots serves GET /api/availability/slots?property_id=&date=YYYY-MM-DD.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("property_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if propertyID == "" || dateStr == "" {
		http.Error(w, "property_id and date are required", http.StatusBadRequest)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	var duration time.Duration
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = time.Duration(n) * time.Minute
	}

	slots, err := h.evaluator.Slots(r.Context(), propertyID, day, duration)
	if err != nil {
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Check serves POST /api/availability/check with an explicit interval.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		PropertyID           string `json:"property_id"`
		StartTime            string `json:"start_time"`
		EndTime              string `json:"end_time"`
		ExcludeAppointmentID string `json:"exclude_appointment_id"`
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

	start, end, ok := parseTimeRange(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	decision := h.evaluator.Evaluate(r.Context(), availability.Request{
		PropertyID:           req.PropertyID,
		Start:                start,
		End:                  end,
		ExcludeAppointmentID: strings.TrimSpace(req.ExcludeAppointmentID),
	})
	writeJSON(w, http.StatusOK, decision)
}
