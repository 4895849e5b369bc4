package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alecrj/sbay-crm/services/notification-service/internal/queue"
)

type CronHandler struct {
	drainer *queue.Drainer
	logger  *slog.Logger
}

func NewCronHandler(drainer *queue.Drainer, logger *slog.Logger) *CronHandler {
	return &CronHandler{drainer: drainer, logger: logger}
}

// ProcessReminders serves POST /api/cron/process-reminders: one drain pass
// over the due notification queue.
func (h *CronHandler) ProcessReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.drainer.Drain(r.Context())
	if err != nil {
		h.logger.Error("reminder drain failed", "err", err)
		http.Error(w, "failed to process reminders", http.StatusInternalServerError)
		return
	}

	h.logger.Info("reminder drain complete", "processed", res.Processed, "failed", res.Failed)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res)
}
