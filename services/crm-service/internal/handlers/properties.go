package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/storage"
)

type PropertyHandler struct {
	repo   *storage.PropertiesRepository
	logger *slog.Logger
}

func NewPropertyHandler(repo *storage.PropertiesRepository, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{repo: repo, logger: logger}
}

type propertyRequest struct {
	Title       string `json:"title"`
	Address     string `json:"address"`
	City        string `json:"city"`
	SquareFeet  int    `json:"square_feet"`
	PricePerSF  string `json:"price_per_sf"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type propertyItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	SquareFeet  int    `json:"square_feet,omitempty"`
	PricePerSF  string `json:"price_per_sf,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Properties dispatches /api/properties and /api/properties/{id}.
func (h *PropertyHandler) Properties(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/properties"), "/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case id != "" && r.Method == http.MethodPut:
		h.update(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PropertyHandler) create(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = model.PropertyAvailable
	}
	if !model.ValidPropertyStatus(status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if req.SquareFeet < 0 {
		http.Error(w, "invalid square_feet", http.StatusBadRequest)
		return
	}

	p := &model.Property{
		Title:       req.Title,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		SquareFeet:  req.SquareFeet,
		PricePerSF:  strings.TrimSpace(req.PricePerSF),
		Description: req.Description,
		Status:      status,
	}
	id, err := h.repo.Create(r.Context(), p)
	if err != nil {
		http.Error(w, "failed to create property", http.StatusInternalServerError)
		return
	}
	p.ID = id
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	writeJSON(w, http.StatusCreated, toPropertyItem(*p))
}

func (h *PropertyHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "property not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load property", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyItem(p))
}

func (h *PropertyHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	if status != "" && !model.ValidPropertyStatus(status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	props, err := h.repo.List(r.Context(), status, strings.TrimSpace(q.Get("city")), limit)
	if err != nil {
		http.Error(w, "failed to list properties", http.StatusInternalServerError)
		return
	}

	items := make([]propertyItem, 0, len(props))
	for _, p := range props {
		items = append(items, toPropertyItem(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PropertyHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "property not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load property", http.StatusInternalServerError)
		return
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		p.Title = title
	}
	if req.Address != "" {
		p.Address = strings.TrimSpace(req.Address)
	}
	if req.City != "" {
		p.City = strings.TrimSpace(req.City)
	}
	if req.SquareFeet > 0 {
		p.SquareFeet = req.SquareFeet
	}
	if req.PricePerSF != "" {
		p.PricePerSF = strings.TrimSpace(req.PricePerSF)
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Status != "" {
		if !model.ValidPropertyStatus(req.Status) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		p.Status = req.Status
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		http.Error(w, "failed to update property", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyItem(p))
}

func (h *PropertyHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "property not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete property", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPropertyItem(p model.Property) propertyItem {
	return propertyItem{
		ID:          p.ID,
		Title:       p.Title,
		Address:     p.Address,
		City:        p.City,
		SquareFeet:  p.SquareFeet,
		PricePerSF:  p.PricePerSF,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
