package handlers

import (
	"gw-transaction-webhook/internal/api/middlew"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/pkg/response"
	"net/http"
	"time"
)

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// Health godoc
// @Summary      Проверка доступности
// @Tags         health
// @Produce      json
// @Success      200 {object} models.HealthResponse
// @Router       / [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	log := middlew.GetLogger(r.Context())

	response.WriteJSONSuccess(w, log, http.StatusOK, models.HealthResponse{
		Status:      "HEALTHY",
		CurrentTime: h.now().UTC().Format(time.RFC3339),
	})
}
