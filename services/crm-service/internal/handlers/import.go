package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alecrj/sbay-crm/services/crm-service/internal/importer"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
)

type ImportHandler struct {
	importer *importer.Importer
	logger   *slog.Logger
}

func NewImportHandler(imp *importer.Importer, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: imp, logger: logger}
}

// ImportLeads serves POST /api/leads/import. The body is the CSV itself, or
// a multipart form with a "file" field.
func (h *ImportHandler) ImportLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	switch source {
	case "", model.SourceCSVImport, model.SourceGoogleSheets:
	default:
		http.Error(w, "invalid source", http.StatusBadRequest)
		return
	}

	body := r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	res, err := h.importer.Import(r.Context(), body, source)
	if err != nil {
		h.logger.Error("lead import failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
