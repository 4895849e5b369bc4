package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alecrj/sbay-crm/libs/outbox"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/events"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/storage"
)

type LeadHandler struct {
	repo       *storage.LeadsRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewLeadHandler(repo *storage.LeadsRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type leadRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Source     string `json:"source"`
	Stage      string `json:"stage"`
	PropertyID string `json:"property_id"`
	Notes      string `json:"notes"`
}

type leadItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Company    string `json:"company,omitempty"`
	Source     string `json:"source"`
	Stage      string `json:"stage"`
	PropertyID string `json:"property_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Leads dispatches /api/leads and /api/leads/{id}.
func (h *LeadHandler) Leads(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/leads"), "/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case id != "" && r.Method == http.MethodPut:
		h.update(w, r, id)
	case id != "" && r.Method == http.MethodPatch:
		h.updateStage(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LeadHandler) create(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = model.SourceWebsite
	}
	stage := strings.TrimSpace(req.Stage)
	if stage == "" {
		stage = model.StageNew
	}
	if !model.ValidStage(stage) {
		http.Error(w, "invalid stage", http.StatusBadRequest)
		return
	}

	lead := &model.Lead{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      strings.TrimSpace(req.Phone),
		Company:    strings.TrimSpace(req.Company),
		Source:     source,
		Stage:      stage,
		PropertyID: strings.TrimSpace(req.PropertyID),
		Notes:      req.Notes,
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, lead)
	if err != nil {
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}
	lead.ID = id

	evt, err := events.LeadCreatedEnvelope(events.LeadCreatedEvent{
		LeadID:     id,
		Name:       lead.Name,
		Email:      lead.Email,
		Source:     lead.Source,
		PropertyID: lead.PropertyID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	lead.CreatedAt = time.Now().UTC()
	lead.UpdatedAt = lead.CreatedAt
	writeJSON(w, http.StatusCreated, toLeadItem(*lead))
}

func (h *LeadHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toLeadItem(lead))
}

func (h *LeadHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stage := strings.TrimSpace(q.Get("stage"))
	if stage != "" && !model.ValidStage(stage) {
		http.Error(w, "invalid stage", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	leads, err := h.repo.List(r.Context(), stage, strings.TrimSpace(q.Get("source")), limit)
	if err != nil {
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}

	items := make([]leadItem, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toLeadItem(lead))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *LeadHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		lead.Name = name
	}
	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !strings.Contains(email, "@") {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		lead.Email = email
	}
	if req.Phone != "" {
		lead.Phone = strings.TrimSpace(req.Phone)
	}
	if req.Company != "" {
		lead.Company = strings.TrimSpace(req.Company)
	}
	if req.Stage != "" {
		if !model.ValidStage(req.Stage) {
			http.Error(w, "invalid stage", http.StatusBadRequest)
			return
		}
		lead.Stage = req.Stage
	}
	if req.PropertyID != "" {
		lead.PropertyID = strings.TrimSpace(req.PropertyID)
	}
	if req.Notes != "" {
		lead.Notes = req.Notes
	}

	if err := h.repo.Update(r.Context(), lead); err != nil {
		http.Error(w, "failed to update lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toLeadItem(lead))
}

func (h *LeadHandler) updateStage(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if !model.ValidStage(req.Stage) {
		http.Error(w, "invalid stage", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStage(r.Context(), id, req.Stage); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update stage", http.StatusInternalServerError)
		return
	}

	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toLeadItem(lead))
}

func (h *LeadHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete lead", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toLeadItem(lead model.Lead) leadItem {
	return leadItem{
		ID:         lead.ID,
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Company:    lead.Company,
		Source:     lead.Source,
		Stage:      lead.Stage,
		PropertyID: lead.PropertyID,
		Notes:      lead.Notes,
		CreatedAt:  lead.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  lead.UpdatedAt.UTC().Format(time.RFC3339),
	}
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
